// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package binding

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/ohler55/ojg/jp"

	"pagecraft/internal/models"
)

// ErrInvalidFilter is returned for filters naming an unusable field or op.
var ErrInvalidFilter = errors.New("invalid filter")

// getter reads a field from an item. ok is false when the field is absent.
type getter func(models.ContentItem) (v any, ok bool)

// accessor builds a getter for a built-in column or a data path. Data
// paths are written "data.<jsonpath>"; any name that is not a built-in
// column is treated as a path into the item data.
func accessor(field string) (getter, error) {
	switch field {
	case "id":
		return func(it models.ContentItem) (any, bool) { return it.ID.String(), true }, nil
	case "title":
		return func(it models.ContentItem) (any, bool) { return it.Title, true }, nil
	case "slug":
		return func(it models.ContentItem) (any, bool) { return it.Slug, true }, nil
	case "status":
		return func(it models.ContentItem) (any, bool) { return string(it.Status), true }, nil
	case "created_at":
		return func(it models.ContentItem) (any, bool) { return it.CreatedAt, true }, nil
	case "updated_at":
		return func(it models.ContentItem) (any, bool) { return it.UpdatedAt, true }, nil
	case "published_at":
		return func(it models.ContentItem) (any, bool) {
			if it.PublishedAt == nil {
				return nil, false
			}
			return *it.PublishedAt, true
		}, nil
	}

	path := strings.TrimPrefix(field, "data.")
	if path == "" {
		return nil, fmt.Errorf("%w: empty field", ErrInvalidFilter)
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidFilter, field, err)
	}
	return func(it models.ContentItem) (any, bool) {
		if it.Data == nil {
			return nil, false
		}
		found := x.Get(it.Data)
		if len(found) == 0 || found[0] == nil {
			return nil, false
		}
		return found[0], true
	}, nil
}

type compiledFilter struct {
	get   getter
	op    models.FilterOp
	value any
}

type filterSet []compiledFilter

func compileFilters(filters []models.Filter) (filterSet, error) {
	out := make(filterSet, 0, len(filters))
	for _, f := range filters {
		op := f.Op
		if op == "" {
			op = models.FilterEq
		}
		switch op {
		case models.FilterEq, models.FilterNeq, models.FilterContains,
			models.FilterGt, models.FilterGte, models.FilterLt, models.FilterLte, models.FilterIn:
		default:
			return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, f.Op)
		}
		get, err := accessor(f.Field)
		if err != nil {
			return nil, err
		}
		out = append(out, compiledFilter{get: get, op: op, value: f.Value})
	}
	return out, nil
}

// match reports whether the item satisfies every filter.
func (fs filterSet) match(it models.ContentItem) bool {
	for _, f := range fs {
		if !f.match(it) {
			return false
		}
	}
	return true
}

func (f compiledFilter) match(it models.ContentItem) bool {
	v, ok := f.get(it)
	if !ok {
		return f.op == models.FilterNeq
	}
	switch f.op {
	case models.FilterEq:
		return equal(v, f.value)
	case models.FilterNeq:
		return !equal(v, f.value)
	case models.FilterContains:
		return containsValue(v, f.value)
	case models.FilterIn:
		for _, candidate := range toSlice(f.value) {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	case models.FilterGt:
		return compare(v, f.value) > 0
	case models.FilterGte:
		return compare(v, f.value) >= 0
	case models.FilterLt:
		return compare(v, f.value) < 0
	case models.FilterLte:
		return compare(v, f.value) <= 0
	}
	return false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// containsValue is a case-insensitive substring test on strings and a
// membership test on lists.
func containsValue(haystack, needle any) bool {
	if list, ok := haystack.([]any); ok {
		for _, v := range list {
			if equal(v, needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(haystack)), strings.ToLower(fmt.Sprint(needle)))
}

// compare orders two values: numerically when both are numbers,
// chronologically when both are times, and naturally as strings otherwise
// ("item 2" before "item 10").
func compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa == sb:
		return 0
	case natural.Less(sa, sb):
		return -1
	}
	return 1
}

// toFloat converts v to a finite number. NaN and infinities are rejected
// so they order as strings and keep compare a strict weak ordering.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// timeLayouts are the accepted textual forms of dates in filters and data.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
