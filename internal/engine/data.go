// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"html/template"
	"time"

	"github.com/google/uuid"

	"pagecraft/internal/models"
)

// PageInfo is the page identity available to every template.
type PageInfo struct {
	ID     uuid.UUID
	Title  string
	Slug   string
	Status models.PageStatus
}

// WidgetData holds the variables available to a widget template, e.g.
// {{field .Fields "title"}} or {{range .Items}}.
type WidgetData struct {
	ID         uuid.UUID
	Definition string
	Name       string
	Position   int
	Grid       models.GridRect
	Fields     map[string]any
	Settings   map[string]any
	Items      []models.ContentItemDTO // bound content, empty for static widgets
	Bound      bool                    // true when the widget carries a content query
	SectionID  uuid.UUID
	Page       PageInfo
	Mode       Mode
}

// SectionData holds the variables available to a section template. Widgets
// is the already rendered, wrapped widget markup in position order.
type SectionData struct {
	ID            uuid.UUID
	Type          string
	Name          string
	Position      int
	Grid          models.GridRect
	ColumnLayout  models.ColumnLayout
	AllowsWidgets bool
	Settings      map[string]any
	Widgets       template.HTML
	WidgetCount   int
	Page          PageInfo
	Mode          Mode
}

// LayoutData holds the variables available to a layout template.
type LayoutData struct {
	Title       string
	SiteName    string
	Page        PageInfo
	Body        template.HTML     // wrapped sections in position order
	BodyAttrs   template.HTMLAttr // selection attributes for the <body> tag
	Mode        Mode
	Year        int
	Now         time.Time
	Scripts     []string
	Stylesheets []string
}

// wrapData feeds the node wrapper templates.
type wrapData struct {
	ID      uuid.UUID
	Type    string
	Parent  uuid.UUID
	Class   string
	Style   template.CSS
	Preview bool
	Grid    string
	Resize  models.ResizePolicy
	Locked  bool
	Inner   template.HTML
}

// errorData feeds the visible error block rendered in place of a failed node.
type errorData struct {
	Level   string
	ID      uuid.UUID
	Type    string
	Detail  string
	Preview bool
}

// wrappers are the fixed element shells around every section and widget.
// The data-pc-* attributes let the rendering surface map pointer events
// back to document nodes.
var wrappers = template.Must(template.New("wrappers").Parse(`
{{- define "attrs"}}{{if .Class}} class="{{.Class}}"{{end}}{{if .Style}} style="{{.Style}}"{{end}}
{{- if .Preview}} data-pc-grid="{{.Grid}}" data-pc-resize="{{.Resize}}"{{if .Locked}} data-pc-locked="true"{{end}}{{end}}{{end}}
{{- define "section"}}<section data-pc-level="section" data-pc-id="{{.ID}}" data-pc-type="{{.Type}}"{{template "attrs" .}}>{{.Inner}}</section>{{end}}
{{- define "widget"}}<div data-pc-level="widget" data-pc-id="{{.ID}}" data-pc-type="{{.Type}}" data-pc-parent="{{.Parent}}"{{template "attrs" .}}>{{.Inner}}</div>{{end}}
{{- define "error"}}<div class="pc-render-error" role="alert" data-pc-error="{{.Level}}" data-pc-id="{{.ID}}" style="border: 2px solid #d9534f; padding: 1rem; color: #d9534f;">
{{- if .Preview}}Could not render {{.Level}} &ldquo;{{.Type}}&rdquo;: {{.Detail}}{{else}}This {{.Level}} could not be displayed.{{end}}</div>{{end}}
`))
