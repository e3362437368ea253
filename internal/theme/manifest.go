// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v3"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
	"pagecraft/internal/slug"
	"pagecraft/internal/style"
)

// ManifestFile is the name of the manifest at the root of a theme directory.
const ManifestFile = "theme.yaml"

// Manifest describes a theme: its identity, the parent it inherits
// templates from, its grid class convention, and the section types and
// widget definitions it provides.
type Manifest struct {
	Slug         string                    `yaml:"slug"`
	Name         string                    `yaml:"name"`
	Parent       string                    `yaml:"parent"`
	Grid         style.GridConvention      `yaml:"grid"`
	SectionTypes []models.SectionType      `yaml:"section_types"`
	Widgets      []models.WidgetDefinition `yaml:"widgets"`
}

// ParseManifest decodes and validates a theme manifest. Every problem found
// is reported, not just the first.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	for i := range m.SectionTypes {
		st := &m.SectionTypes[i]
		if st.ColumnLayout == "" {
			st.ColumnLayout = models.ColumnLayoutGrid
		}
		if st.DefaultGrid == (models.GridRect{}) {
			st.DefaultGrid = models.GridRect{W: grid.Columns, H: 1}
		}
		st.DefaultGrid = grid.Normalize(st.DefaultGrid)
	}
	for i := range m.Widgets {
		m.Widgets[i].Theme = m.Slug
	}
	return &m, nil
}

// loadManifest reads the manifest at the root of fsys. A theme without a
// manifest is allowed and yields nil.
func loadManifest(fsys fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

func (m *Manifest) validate() error {
	var errs error
	if !slug.Valid(m.Slug) {
		errs = multierr.Append(errs, fmt.Errorf("slug %q is not a valid slug", m.Slug))
	}
	if m.Name == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}
	if m.Parent == m.Slug && m.Parent != "" {
		errs = multierr.Append(errs, errors.New("a theme cannot be its own parent"))
	}

	seen := make(map[string]bool)
	for _, st := range m.SectionTypes {
		if !slug.Valid(st.Slug) {
			errs = multierr.Append(errs, fmt.Errorf("section type %q: invalid slug", st.Slug))
		}
		if seen["section:"+st.Slug] {
			errs = multierr.Append(errs, fmt.Errorf("section type %q: declared twice", st.Slug))
		}
		seen["section:"+st.Slug] = true
		switch st.ColumnLayout {
		case "", models.ColumnLayoutGrid, models.ColumnLayoutStack:
		default:
			errs = multierr.Append(errs, fmt.Errorf("section type %q: unknown column layout %q", st.Slug, st.ColumnLayout))
		}
		errs = multierr.Append(errs, validateSchema("section type "+st.Slug+" settings", st.Settings))
	}
	for _, w := range m.Widgets {
		if !slug.Valid(w.Slug) {
			errs = multierr.Append(errs, fmt.Errorf("widget %q: invalid slug", w.Slug))
		}
		if seen["widget:"+w.Slug] {
			errs = multierr.Append(errs, fmt.Errorf("widget %q: declared twice", w.Slug))
		}
		seen["widget:"+w.Slug] = true
		errs = multierr.Append(errs, validateSchema("widget "+w.Slug+" fields", w.Fields))
		errs = multierr.Append(errs, validateSchema("widget "+w.Slug+" settings", w.Settings))
	}
	return errs
}

// validateSchema checks field names are unique and kinds are known. Select
// fields need options and repeaters need sub-fields.
func validateSchema(where string, fields []models.FieldSchema) error {
	var errs error
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: field without a name", where))
			continue
		}
		if names[f.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%s: field %q declared twice", where, f.Name))
		}
		names[f.Name] = true
		if !f.Kind.Valid() {
			errs = multierr.Append(errs, fmt.Errorf("%s: field %q has unknown kind %q", where, f.Name, f.Kind))
			continue
		}
		switch f.Kind {
		case models.FieldSelect:
			if len(f.Options) == 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s: select field %q has no options", where, f.Name))
			}
		case models.FieldRepeater:
			if len(f.SubFields) == 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s: repeater field %q has no sub-fields", where, f.Name))
			}
			errs = multierr.Append(errs, validateSchema(where+"."+f.Name, f.SubFields))
		}
	}
	return errs
}

// Catalog is the merged view of a theme and its ancestors. Entries declared
// closer to the child win over inherited ones with the same slug.
type Catalog struct {
	Theme        string
	Lineage      []string
	Grid         style.GridConvention
	SectionTypes []models.SectionType
	Widgets      []models.WidgetDefinition
}

func (c *Catalog) inherits(theme string) bool {
	return contains(c.Lineage, theme)
}

// SectionType returns the section type with the given slug, or nil.
func (c *Catalog) SectionType(slug string) *models.SectionType {
	for i := range c.SectionTypes {
		if c.SectionTypes[i].Slug == slug {
			return &c.SectionTypes[i]
		}
	}
	return nil
}

// Widget returns the widget definition with the given slug, or nil.
func (c *Catalog) Widget(slug string) *models.WidgetDefinition {
	for i := range c.Widgets {
		if c.Widgets[i].Slug == slug {
			return &c.Widgets[i]
		}
	}
	return nil
}

// SectionTypeMap indexes the section types by slug.
func (c *Catalog) SectionTypeMap() map[string]models.SectionType {
	out := make(map[string]models.SectionType, len(c.SectionTypes))
	for _, st := range c.SectionTypes {
		out[st.Slug] = st
	}
	return out
}

// WidgetMap indexes the widget definitions by slug.
func (c *Catalog) WidgetMap() map[string]models.WidgetDefinition {
	out := make(map[string]models.WidgetDefinition, len(c.Widgets))
	for _, w := range c.Widgets {
		out[w.Slug] = w
	}
	return out
}

// mergeCatalog folds manifests ordered child first into one Catalog.
func mergeCatalog(theme string, manifests []*Manifest) *Catalog {
	c := &Catalog{Theme: theme}
	seenSection := make(map[string]bool)
	seenWidget := make(map[string]bool)
	var conv style.GridConvention
	for _, m := range manifests {
		if m == nil {
			continue
		}
		if conv.Span == "" {
			conv.Span = m.Grid.Span
		}
		if conv.SpanBreakpoint == "" {
			conv.SpanBreakpoint = m.Grid.SpanBreakpoint
		}
		if conv.Offset == "" {
			conv.Offset = m.Grid.Offset
		}
		if conv.OffsetBreakpoint == "" {
			conv.OffsetBreakpoint = m.Grid.OffsetBreakpoint
		}
		for _, st := range m.SectionTypes {
			if !seenSection[st.Slug] {
				seenSection[st.Slug] = true
				c.SectionTypes = append(c.SectionTypes, st)
			}
		}
		for _, w := range m.Widgets {
			if !seenWidget[w.Slug] {
				seenWidget[w.Slug] = true
				c.Widgets = append(c.Widgets, w)
			}
		}
	}
	c.Grid = conv
	return c
}
