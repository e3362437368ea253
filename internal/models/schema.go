// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldKind is the closed set of field types a schema can declare. The
// editing shell maps each kind to one input control.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldMarkdown FieldKind = "markdown"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
	FieldCheckbox FieldKind = "checkbox"
	FieldColor    FieldKind = "color"
	FieldURL      FieldKind = "url"
	FieldEmail    FieldKind = "email"
	FieldDate     FieldKind = "date"
	FieldRepeater FieldKind = "repeater"
)

// Valid reports whether k is one of the known field kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldText, FieldTextarea, FieldMarkdown, FieldNumber, FieldSelect,
		FieldCheckbox, FieldColor, FieldURL, FieldEmail, FieldDate, FieldRepeater:
		return true
	}
	return false
}

// FieldOption is one choice of a select field.
type FieldOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldSchema describes one field of a widget or section schema. It is
// exposed read-only to the editing shell for properties panels.
type FieldSchema struct {
	Name      string        `json:"name" yaml:"name"`
	Kind      FieldKind     `json:"kind" yaml:"kind"`
	Label     string        `json:"label" yaml:"label"`
	Default   any           `json:"default,omitempty" yaml:"default"`
	Options   []FieldOption `json:"options,omitempty" yaml:"options"`
	Help      string        `json:"help,omitempty" yaml:"help"`
	Required  bool          `json:"required,omitempty" yaml:"required"`
	SubFields []FieldSchema `json:"sub_fields,omitempty" yaml:"sub_fields"`
}

// WidgetDefinition is a theme-provided widget type: its schemas and the
// content types it can bind to.
type WidgetDefinition struct {
	ID           uuid.UUID     `json:"id"`
	Slug         string        `json:"slug" yaml:"slug"`
	Name         string        `json:"name" yaml:"name"`
	Icon         string        `json:"icon" yaml:"icon"`
	Theme        string        `json:"theme" yaml:"-"`
	Fields       []FieldSchema `json:"fields" yaml:"fields"`
	Settings     []FieldSchema `json:"settings" yaml:"settings"`
	ContentTypes []string      `json:"content_types,omitempty" yaml:"content_types"`
	CreatedAt    time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"-"`
}

// AcceptsContentType reports whether the definition may bind items of the
// given content type slug. An empty list accepts any type.
func (d *WidgetDefinition) AcceptsContentType(slug string) bool {
	if len(d.ContentTypes) == 0 {
		return true
	}
	for _, ct := range d.ContentTypes {
		if ct == slug {
			return true
		}
	}
	return false
}

// ColumnLayout is how a section arranges its widgets.
type ColumnLayout string

const (
	ColumnLayoutGrid  ColumnLayout = "grid"
	ColumnLayoutStack ColumnLayout = "stack"
)

// SectionType is a theme-provided section template descriptor.
type SectionType struct {
	Slug           string        `json:"slug" yaml:"slug"`
	Name           string        `json:"name" yaml:"name"`
	ColumnLayout   ColumnLayout  `json:"column_layout" yaml:"column_layout"`
	AllowsWidgets  bool          `json:"allows_widgets" yaml:"allows_widgets"`
	AllowedWidgets []string      `json:"allowed_widgets,omitempty" yaml:"allowed_widgets"`
	Settings       []FieldSchema `json:"settings" yaml:"settings"`
	DefaultGrid    GridRect      `json:"default_grid" yaml:"default_grid"`
}

// AllowsWidget reports whether a widget definition may be placed in a
// section of this type. An empty allow-list permits every definition.
func (t *SectionType) AllowsWidget(definition string) bool {
	if !t.AllowsWidgets {
		return false
	}
	if len(t.AllowedWidgets) == 0 {
		return true
	}
	for _, w := range t.AllowedWidgets {
		if w == definition {
			return true
		}
	}
	return false
}
