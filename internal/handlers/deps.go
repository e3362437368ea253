// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"

	"github.com/google/uuid"

	"pagecraft/internal/engine"
	"pagecraft/internal/models"
	"pagecraft/internal/theme"
)

// PageStore is the page persistence the handlers need. It is implemented
// by *store.PageStore.
type PageStore interface {
	List(ctx context.Context) ([]models.Page, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Page, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Page, error)
	Create(ctx context.Context, p *models.Page) (*models.Page, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveDocument(ctx context.Context, p *models.Page) (*models.Page, error)
	ReorderSections(ctx context.Context, pageID uuid.UUID, ordered []uuid.UUID) error
	ReorderWidgets(ctx context.Context, sectionID uuid.UUID, ordered []uuid.UUID) error
}

// DefinitionStore is the widget definition registry.
type DefinitionStore interface {
	List(ctx context.Context) ([]models.WidgetDefinition, error)
	Sync(ctx context.Context, defs []models.WidgetDefinition) (int, error)
	Delete(ctx context.Context, slug string) error
}

// ThemeStore tracks installed themes and the active one.
type ThemeStore interface {
	FindActive(ctx context.Context) (*models.Theme, error)
	Upsert(ctx context.Context, t *models.Theme) (*models.Theme, error)
	Activate(ctx context.Context, slug string) error
}

// ContentTypeLister lists the content types widgets can bind to.
type ContentTypeLister interface {
	ListContentTypes(ctx context.Context) ([]models.ContentType, error)
}

// SaveLocker serializes document saves per page.
type SaveLocker interface {
	Acquire(ctx context.Context, pageID uuid.UUID) (func(), error)
}

// Catalogs gives access to theme manifests and the template cache.
type Catalogs interface {
	Catalog(theme string) (*theme.Catalog, error)
	InvalidateTheme(theme string)
}

// Renderer renders page documents.
type Renderer interface {
	RenderPage(ctx context.Context, rc engine.RenderContext, page *models.Page) (*engine.Document, error)
}
