// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"pagecraft/internal/liveedit"
	"pagecraft/internal/models"
)

// SessionLoader returns the loader the live-edit hub uses to open a
// session on the stored document of a page.
func SessionLoader(pages PageStore, site *Site) liveedit.SessionLoader {
	return func(ctx context.Context, pageID uuid.UUID) (*liveedit.Session, error) {
		page, err := pages.FindByID(ctx, pageID)
		if err != nil || page == nil {
			return nil, err
		}
		sc, err := site.Schema(ctx)
		if err != nil {
			return nil, err
		}
		return liveedit.NewSession(page, liveedit.Schema{
			SectionTypes: sc.SectionTypes,
			Widgets:      sc.Widgets,
		}, pages), nil
	}
}

// Live upgrades the request to a websocket and joins the page's live-edit
// room as the role named by the role query parameter.
func (e *Editor) Live(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	role := liveedit.Role(r.URL.Query().Get("role"))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be shell or surface")
		return
	}

	err := e.hub.ServeWS(w, r, id, role)
	switch {
	case err == nil:
	case errors.Is(err, liveedit.ErrNoSession):
		writeError(w, http.StatusNotFound, "page not found")
	case errors.Is(err, liveedit.ErrUpgrade):
		// The upgrader has already answered the request.
		slog.Warn("live upgrade failed", "page_id", id, "error", err)
	default:
		slog.Error("live session failed", "page_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
	}
}

// LiveSave persists the working document of the page's live session. Both
// peers are told about progress and outcome over the socket.
func (e *Editor) LiveSave(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	var warnings int
	saver := liveedit.SaverFunc(func(ctx context.Context, page *models.Page) (*models.Page, error) {
		saved, warns, err := e.save(ctx, page)
		warnings = len(warns)
		return saved, err
	})

	err := e.hub.Save(r.Context(), id, saver)
	if errors.Is(err, liveedit.ErrNoSession) {
		writeError(w, http.StatusNotFound, "no live session for this page")
		return
	}
	if err != nil {
		fail(w, "live save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "warnings": warnings})
}
