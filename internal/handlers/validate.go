// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pagecraft/internal/models"
	"pagecraft/internal/slug"
)

// requests validates API request bodies. Field errors are reported under
// their JSON names.
var requests = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// createPageRequest is the body of POST /api/pages.
type createPageRequest struct {
	Title    string            `json:"title" validate:"required,max=300"`
	Slug     string            `json:"slug" validate:"max=300"`
	Template string            `json:"template" validate:"max=100"`
	Status   models.PageStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// page normalizes the request into a new page, deriving the slug from the
// title when none is given.
func (req *createPageRequest) page() *models.Page {
	p := &models.Page{
		Title:    strings.TrimSpace(req.Title),
		Slug:     strings.TrimSpace(req.Slug),
		Template: req.Template,
		Status:   req.Status,
	}
	if p.Slug == "" {
		p.Slug = slug.Generate(p.Title)
	}
	return p
}

// reorderRequest is the body of the reorder endpoints.
type reorderRequest struct {
	OrderedIDs []uuid.UUID `json:"ordered_ids" validate:"required,min=1,unique"`
}

// problems validates req and returns one message per failed rule.
func problems(req any) []string {
	err := requests.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s is too long (max %s)", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "unique":
		return field + " contains duplicates"
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}

// validateCreatePage returns the problems of a page creation request after
// the slug has been derived.
func validateCreatePage(req *createPageRequest, p *models.Page) []string {
	out := problems(req)
	if p.Title == "" && len(out) == 0 {
		out = append(out, "title is required")
	}
	if p.Slug == "" || !slug.Valid(p.Slug) {
		out = append(out, fmt.Sprintf("slug %q is not valid", p.Slug))
	}
	return out
}
