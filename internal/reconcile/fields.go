// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"pagecraft/internal/models"
)

const maxTextLength = 100_000

// fields checks values against schema and returns the accepted values.
// Keys the schema does not name and values of the wrong shape are dropped
// with a warning; missing values take the schema default when it has one.
func (v *validation) fields(path string, schema []models.FieldSchema, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	known := make(map[string]models.FieldSchema, len(schema))
	for _, f := range schema {
		known[f.Name] = f
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := known[k]
		if !ok {
			v.warn(path+"."+k, "unknown field dropped")
			continue
		}
		val, err := v.value(path+"."+k, f, values[k])
		if err != nil {
			v.warn(path+"."+k, "%s value dropped: %v", f.Kind, err)
			continue
		}
		out[k] = val
	}

	for _, f := range schema {
		if _, ok := out[f.Name]; ok {
			continue
		}
		if f.Default != nil {
			out[f.Name] = f.Default
		} else if f.Required {
			v.warn(path+"."+f.Name, "required field is empty")
		}
	}
	return out
}

// value returns the normalized value for one field.
func (v *validation) value(path string, f models.FieldSchema, raw any) (any, error) {
	if raw == nil {
		return nil, errors.New("null")
	}
	switch f.Kind {
	case models.FieldText, models.FieldTextarea, models.FieldMarkdown:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		if len(s) > maxTextLength {
			return nil, fmt.Errorf("longer than %d bytes", maxTextLength)
		}
		return s, nil

	case models.FieldNumber:
		return number(raw)

	case models.FieldCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return nil, errors.New("not a boolean")
		}
		return b, nil

	case models.FieldSelect:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		for _, o := range f.Options {
			if o.Value == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not an option", s)

	case models.FieldColor:
		return tagged(raw, "iscolor")
	case models.FieldURL:
		return tagged(raw, "url")
	case models.FieldEmail:
		return tagged(raw, "email")

	case models.FieldDate:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", s)

	case models.FieldRepeater:
		rows, ok := raw.([]any)
		if !ok {
			return nil, errors.New("not a list")
		}
		out := make([]any, 0, len(rows))
		for i, row := range rows {
			m, ok := row.(map[string]any)
			if !ok {
				v.warn(fmt.Sprintf("%s[%d]", path, i), "repeater row dropped: not an object")
				continue
			}
			out = append(out, v.fields(fmt.Sprintf("%s[%d]", path, i), f.SubFields, m))
		}
		return out, nil
	}
	return nil, errors.New("unknown field kind")
}

// tagged accepts empty strings and strings passing the validator tag.
func tagged(raw any, tag string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, errors.New("not a string")
	}
	if s == "" {
		return s, nil
	}
	if err := validate.Var(s, tag); err != nil {
		return nil, fmt.Errorf("%q fails %s", s, tag)
	}
	return s, nil
}

func number(raw any) (any, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	}
	return nil, errors.New("not a number")
}
