// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PageStatus represents the publishing state of a page.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
)

// Page is the top-level document composed of ordered sections. Sections
// are kept sorted by Position, which is a contiguous zero-based index.
type Page struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title" validate:"required,max=300"`
	Slug        string     `json:"slug" validate:"max=300"`
	Template    string     `json:"template" validate:"max=100"`
	Status      PageStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Sections    []Section  `json:"sections" validate:"dive"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublished returns true if the page is in published status.
func (p *Page) IsPublished() bool {
	return p.Status == PageStatusPublished
}

// FindSection returns the section with the given ID, or nil.
func (p *Page) FindSection(id uuid.UUID) *Section {
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			return &p.Sections[i]
		}
	}
	return nil
}

// FindWidget returns the widget with the given ID together with its
// owning section, or nils when no section holds it.
func (p *Page) FindWidget(id uuid.UUID) (*Section, *Widget) {
	for i := range p.Sections {
		s := &p.Sections[i]
		for j := range s.Widgets {
			if s.Widgets[j].ID == id {
				return s, &s.Widgets[j]
			}
		}
	}
	return nil, nil
}

// Clone returns a deep copy of the page graph. Map values are copied one
// level deep, which covers the JSON-decoded field and settings values.
func (p *Page) Clone() *Page {
	c := *p
	c.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		c.Sections[i] = s.clone()
	}
	return &c
}

// Section is a themed region of a page with its own grid rectangle and
// style attributes, holding ordered widgets.
type Section struct {
	ID            uuid.UUID      `json:"id"`
	PageID        uuid.UUID      `json:"page_id"`
	Type          string         `json:"type" validate:"required,max=100"`
	Position      int            `json:"position"`
	Grid          GridRect       `json:"grid"`
	Style         StyleAttrs     `json:"style"`
	AllowsWidgets bool           `json:"allows_widgets"`
	Settings      map[string]any `json:"settings,omitempty"`
	Widgets       []Widget       `json:"widgets" validate:"dive"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (s Section) clone() Section {
	s.Settings = cloneMap(s.Settings)
	widgets := make([]Widget, len(s.Widgets))
	for i, w := range s.Widgets {
		w.Fields = cloneMap(w.Fields)
		w.Settings = cloneMap(w.Settings)
		if w.Query != nil {
			q := *w.Query
			q.Filters = append([]Filter(nil), w.Query.Filters...)
			w.Query = &q
		}
		widgets[i] = w
	}
	s.Widgets = widgets
	return s
}

// Widget is a placement of a WidgetDefinition into a section. Its grid
// rectangle is scoped to the owning section's coordinate space.
type Widget struct {
	ID         uuid.UUID      `json:"id"`
	SectionID  uuid.UUID      `json:"section_id"`
	Definition string         `json:"definition" validate:"required,max=100"`
	Position   int            `json:"position"`
	Grid       GridRect       `json:"grid"`
	Style      StyleAttrs     `json:"style"`
	Fields     map[string]any `json:"fields,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	Query      *ContentQuery  `json:"query,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// GridRect positions a section on the page grid or a widget on its
// section's grid. Columns run 0..11.
type GridRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
