// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pagecraft/internal/engine"
	"pagecraft/internal/liveedit"
	"pagecraft/internal/models"
	"pagecraft/internal/reconcile"
	"pagecraft/internal/store"
)

// EditorDeps are the collaborators of the editor API.
type EditorDeps struct {
	Pages       PageStore
	Definitions DefinitionStore
	Themes      ThemeStore
	Content     ContentTypeLister
	Catalogs    Catalogs
	Renderer    Renderer
	Locker      SaveLocker
	Site        *Site
	Hub         *liveedit.Hub
}

// Editor groups the JSON API used by the editor shell, the preview
// endpoint its surface frame loads, and the live-edit relay.
type Editor struct {
	pages    PageStore
	defs     DefinitionStore
	themes   ThemeStore
	content  ContentTypeLister
	catalogs Catalogs
	locker   SaveLocker
	site     *Site
	hub      *liveedit.Hub
	public   *Public
}

// NewEditor creates a new Editor handler group.
func NewEditor(d EditorDeps) *Editor {
	return &Editor{
		pages:    d.Pages,
		defs:     d.Definitions,
		themes:   d.Themes,
		content:  d.Content,
		catalogs: d.Catalogs,
		locker:   d.Locker,
		site:     d.Site,
		hub:      d.Hub,
		public:   NewPublic(d.Pages, d.Site, d.Renderer),
	}
}

// Preview renders a page in preview mode, published or not. While the page
// is being edited live the working document is rendered instead of the
// stored one.
func (e *Editor) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page, live := e.hub.Document(id)
	if !live {
		var err error
		page, err = e.pages.FindByID(r.Context(), id)
		if err != nil {
			e.public.failHTML(w, "find page for preview", err)
			return
		}
	}
	if page == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	e.public.render(w, r, page, engine.ModePreview)
}

// ListPages returns every page without its sections.
func (e *Editor) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := e.pages.List(r.Context())
	if err != nil {
		fail(w, "list pages", err)
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

// CreatePage creates an empty page.
func (e *Editor) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := req.page()
	if probs := validateCreatePage(&req, page); len(probs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: reconcile.ErrValidation.Error(), Problems: probs})
		return
	}
	created, err := e.pages.Create(r.Context(), page)
	if err != nil {
		fail(w, "create page", err)
		return
	}
	slog.Info("page created", "page_id", created.ID, "slug", created.Slug)
	writeJSON(w, http.StatusCreated, created)
}

// GetPage returns the stored document of a page.
func (e *Editor) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	page, err := e.pages.FindByID(r.Context(), id)
	if err != nil {
		fail(w, "find page", err)
		return
	}
	if page == nil {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeletePage removes a page with its sections and widgets.
func (e *Editor) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	if err := e.pages.Delete(r.Context(), id); err != nil {
		fail(w, "delete page", err)
		return
	}
	slog.Info("page deleted", "page_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// saveResponse is the body returned by a successful save.
type saveResponse struct {
	Page     *models.Page        `json:"page"`
	Warnings []reconcile.Warning `json:"warnings"`
}

// SaveDocument replaces the stored document of a page with the request
// body. Corrections made during validation are returned as warnings.
func (e *Editor) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	var page models.Page
	if err := decodeJSON(r, &page); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if page.ID != id && page.ID != uuid.Nil {
		writeError(w, http.StatusBadRequest, "document id does not match the path")
		return
	}
	page.ID = id

	saved, warnings, err := e.save(r.Context(), &page)
	if err != nil {
		fail(w, "save document", err)
		return
	}
	if warnings == nil {
		warnings = []reconcile.Warning{}
	}
	writeJSON(w, http.StatusOK, saveResponse{Page: saved, Warnings: warnings})
}

// save validates page against the active schema and stores it while
// holding the page's save lock.
func (e *Editor) save(ctx context.Context, page *models.Page) (*models.Page, []reconcile.Warning, error) {
	sc, err := e.site.Schema(ctx)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := reconcile.Validate(page, sc.reconcile())
	if err != nil {
		return nil, warnings, err
	}
	release, err := e.locker.Acquire(ctx, page.ID)
	if err != nil {
		return nil, warnings, err
	}
	defer release()

	saved, err := e.pages.SaveDocument(ctx, page)
	if err != nil {
		return nil, warnings, err
	}
	for _, warn := range warnings {
		slog.Warn("document corrected on save", "page_id", page.ID, "path", warn.Path, "message", warn.Message)
	}
	return saved, warnings, nil
}

// ReorderSections persists a new section order for a page.
func (e *Editor) ReorderSections(w http.ResponseWriter, r *http.Request) {
	e.reorder(w, r, "reorder sections", e.pages.ReorderSections)
}

// ReorderWidgets persists a new widget order for a section.
func (e *Editor) ReorderWidgets(w http.ResponseWriter, r *http.Request) {
	e.reorder(w, r, "reorder widgets", e.pages.ReorderWidgets)
}

func (e *Editor) reorder(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, uuid.UUID, []uuid.UUID) error) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if probs := problems(&req); len(probs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: reconcile.ErrValidation.Error(), Problems: probs})
		return
	}
	if err := apply(r.Context(), id, req.OrderedIDs); err != nil {
		fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WidgetSchema lists the registered widget definitions.
func (e *Editor) WidgetSchema(w http.ResponseWriter, r *http.Request) {
	defs, err := e.defs.List(r.Context())
	if err != nil {
		fail(w, "list widget definitions", err)
		return
	}
	if defs == nil {
		defs = []models.WidgetDefinition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// SectionSchema lists the section types of the active theme.
func (e *Editor) SectionSchema(w http.ResponseWriter, r *http.Request) {
	sc, err := e.site.Schema(r.Context())
	if err != nil {
		fail(w, "load schema", err)
		return
	}
	types := make([]models.SectionType, 0, len(sc.SectionTypes))
	for _, t := range sc.SectionTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Slug < types[j].Slug })
	writeJSON(w, http.StatusOK, types)
}

// DeleteDefinition removes a widget definition nothing references.
func (e *Editor) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	if err := e.defs.Delete(r.Context(), slugParam); err != nil {
		fail(w, "delete widget definition", err)
		return
	}
	slog.Info("widget definition deleted", "slug", slugParam)
	w.WriteHeader(http.StatusNoContent)
}

// ActivateTheme makes a registered theme the active one. The next render
// uses it. Themes are registered by the themes sync command.
func (e *Editor) ActivateTheme(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	if err := e.themes.Activate(r.Context(), slugParam); err != nil {
		fail(w, "activate theme", err)
		return
	}
	e.catalogs.InvalidateTheme(slugParam)
	slog.Info("theme activated", "theme", slugParam)
	w.WriteHeader(http.StatusNoContent)
}

// ContentTypes lists the content types widgets can bind to.
func (e *Editor) ContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := e.content.ListContentTypes(r.Context())
	if err != nil {
		fail(w, "list content types", err)
		return
	}
	if types == nil {
		types = []models.ContentType{}
	}
	writeJSON(w, http.StatusOK, types)
}
