// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
	"pagecraft/internal/slug"
)

// ErrValidation matches every *Error.
var ErrValidation = errors.New("validation failed")

// Error lists the problems that prevent a document from being stored.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// Warning is a problem that was corrected in place.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Schema is what a document is validated against.
type Schema struct {
	SectionTypes map[string]models.SectionType
	Widgets      map[string]models.WidgetDefinition
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks page against schema and corrects what can be corrected:
// grid rectangles are normalized, unknown resize policies are reset, an
// empty slug is derived from the title, and field values that do not match
// their schema are dropped. Each correction is reported as a warning.
// Unknown section types, unknown widget definitions and widgets placed
// where they are not allowed are not correctable and yield an *Error.
func Validate(page *models.Page, schema Schema) ([]Warning, error) {
	v := &validation{}

	if err := validate.Struct(page); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				v.fail(fe.Namespace(), "failed %q", fe.Tag())
			}
		} else {
			v.fail("page", "%v", err)
		}
	}

	if page.Slug == "" && page.Title != "" {
		page.Slug = slug.Generate(page.Title)
		v.warn("slug", "derived %q from the title", page.Slug)
	}
	if page.Slug != "" && !slug.Valid(page.Slug) {
		v.fail("slug", "%q is not a valid slug", page.Slug)
	}

	for i := range page.Sections {
		sec := &page.Sections[i]
		path := fmt.Sprintf("sections[%d]", i)
		v.rect(path, &sec.Grid)
		v.style(path, &sec.Style)

		st, known := schema.SectionTypes[sec.Type]
		if !known {
			v.fail(path+".type", "unknown section type %q", sec.Type)
		} else {
			sec.Settings = v.fields(path+".settings", st.Settings, sec.Settings)
		}
		if len(sec.Widgets) > 0 && (!sec.AllowsWidgets || (known && !st.AllowsWidgets)) {
			v.fail(path, "section type %q does not hold widgets", sec.Type)
		}

		for j := range sec.Widgets {
			w := &sec.Widgets[j]
			wpath := fmt.Sprintf("%s.widgets[%d]", path, j)
			v.rect(wpath, &w.Grid)
			v.style(wpath, &w.Style)

			def, ok := schema.Widgets[w.Definition]
			if !ok {
				v.fail(wpath+".definition", "unknown widget definition %q", w.Definition)
				continue
			}
			if known && st.AllowsWidgets && !st.AllowsWidget(w.Definition) {
				v.fail(wpath+".definition", "widget %q is not allowed in section type %q", w.Definition, sec.Type)
			}
			w.Fields = v.fields(wpath+".fields", def.Fields, w.Fields)
			w.Settings = v.fields(wpath+".settings", def.Settings, w.Settings)
		}
	}

	if v.errs != nil {
		e := &Error{}
		for _, err := range multierr.Errors(v.errs) {
			e.Problems = append(e.Problems, err.Error())
		}
		return v.warnings, e
	}
	return v.warnings, nil
}

type validation struct {
	warnings []Warning
	errs     error
}

func (v *validation) warn(path, format string, args ...any) {
	v.warnings = append(v.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validation) fail(path, format string, args ...any) {
	v.errs = multierr.Append(v.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

func (v *validation) rect(path string, r *models.GridRect) {
	if n := grid.Normalize(*r); n != *r {
		v.warn(path+".grid", "normalized %+v to %+v", *r, n)
		*r = n
	}
}

func (v *validation) style(path string, s *models.StyleAttrs) {
	if s.ResizeHandles != "" && !s.ResizeHandles.Valid() {
		v.warn(path+".style.resize_handles", "unknown policy %q reset to all", s.ResizeHandles)
		s.ResizeHandles = ""
	}
}
