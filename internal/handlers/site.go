// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"pagecraft/internal/engine"
	"pagecraft/internal/models"
	"pagecraft/internal/reconcile"
	"pagecraft/internal/theme"
)

// SurfaceScript is the preview-only script that turns a rendered page into
// the editor's rendering surface.
const SurfaceScript = "/static/pagecraft-surface.js"

// Site resolves the active theme and its schema for each request. Nothing
// about the active theme is cached here: activation takes effect on the
// next request.
type Site struct {
	themes       ThemeStore
	defs         DefinitionStore
	catalogs     Catalogs
	defaultTheme string
	name         string
}

// NewSite creates a Site. defaultTheme is used while no theme is marked
// active in the database.
func NewSite(themes ThemeStore, defs DefinitionStore, catalogs Catalogs, defaultTheme, name string) *Site {
	return &Site{themes: themes, defs: defs, catalogs: catalogs, defaultTheme: defaultTheme, name: name}
}

// ActiveTheme returns the slug of the active theme.
func (s *Site) ActiveTheme(ctx context.Context) (string, error) {
	t, err := s.themes.FindActive(ctx)
	if err != nil {
		return "", err
	}
	if t == nil {
		return s.defaultTheme, nil
	}
	return t.Slug, nil
}

// Schema is the active theme's section types together with the widget
// definition registry.
type Schema struct {
	Theme        string
	Catalog      *theme.Catalog
	SectionTypes map[string]models.SectionType
	Widgets      map[string]models.WidgetDefinition
}

// Schema loads the schema documents are validated and rendered against.
func (s *Site) Schema(ctx context.Context) (*Schema, error) {
	slug, err := s.ActiveTheme(ctx)
	if err != nil {
		return nil, fmt.Errorf("active theme: %w", err)
	}
	cat, err := s.catalogs.Catalog(slug)
	if err != nil {
		return nil, err
	}
	defs, err := s.defs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("widget definitions: %w", err)
	}
	widgets := make(map[string]models.WidgetDefinition, len(defs))
	for _, d := range defs {
		widgets[d.Slug] = d
	}
	return &Schema{
		Theme:        slug,
		Catalog:      cat,
		SectionTypes: cat.SectionTypeMap(),
		Widgets:      widgets,
	}, nil
}

// RenderContext builds the render context of one request.
func (sc *Schema) RenderContext(mode engine.Mode, siteName string) engine.RenderContext {
	rc := engine.RenderContext{
		Theme:        sc.Theme,
		Grid:         sc.Catalog.Grid,
		SectionTypes: sc.SectionTypes,
		Widgets:      sc.Widgets,
		Mode:         mode,
		SiteName:     siteName,
	}
	if mode == engine.ModePreview {
		rc.Scripts = []string{SurfaceScript}
	}
	return rc
}

// reconcile returns the schema in the shape document validation takes.
func (sc *Schema) reconcile() reconcile.Schema {
	return reconcile.Schema{SectionTypes: sc.SectionTypes, Widgets: sc.Widgets}
}

// SyncTheme registers a theme and its lineage and upserts the widget
// definitions of its catalog. The template cache of the theme is dropped.
func (s *Site) SyncTheme(ctx context.Context, provider *theme.FSProvider, slug string) (int, error) {
	lineage, err := provider.Lineage(slug)
	if err != nil {
		return 0, err
	}
	for _, name := range lineage {
		m, err := provider.Manifest(name)
		if err != nil {
			return 0, err
		}
		t := &models.Theme{Slug: name, Name: name}
		if m != nil {
			t.Name, t.Parent = m.Name, m.Parent
		}
		if t.Name == "" {
			t.Name = name
		}
		if _, err := s.themes.Upsert(ctx, t); err != nil {
			return 0, err
		}
	}

	s.catalogs.InvalidateTheme(slug)
	cat, err := s.catalogs.Catalog(slug)
	if err != nil {
		return 0, err
	}
	n, err := s.defs.Sync(ctx, cat.Widgets)
	if err != nil {
		return 0, err
	}
	slog.Info("theme synced", "theme", slug, "lineage", lineage, "widgets", n)
	return n, nil
}
