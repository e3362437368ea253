// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pagecraft/internal/engine"
	"pagecraft/internal/models"
)

// HomeSlug is the slug of the page served at the site root.
const HomeSlug = "home"

// Public groups handlers for the public-facing site. Pages are rendered on
// every request against the active theme; clients revalidate with ETags.
type Public struct {
	pages    PageStore
	site     *Site
	renderer Renderer
}

// NewPublic creates a new Public handler group.
func NewPublic(pages PageStore, site *Site, renderer Renderer) *Public {
	return &Public{pages: pages, site: site, renderer: renderer}
}

// Homepage renders the published page with the home slug, or a welcome
// page while there is none.
func (p *Public) Homepage(w http.ResponseWriter, r *http.Request) {
	page, err := p.pages.FindPublishedBySlug(r.Context(), HomeSlug)
	if err != nil {
		p.failHTML(w, "find home page", err)
		return
	}
	if page == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>` + html.EscapeString(p.site.name) + `</title></head>
<body style="font-family:sans-serif;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0">
<div style="text-align:center">
<h1>` + html.EscapeString(p.site.name) + `</h1>
<p>Your site is running. Publish a page with the slug "home" to replace this screen.</p>
</div></body></html>`))
		return
	}
	p.render(w, r, page, engine.ModePublic)
}

// Page renders a published page by its slug.
func (p *Public) Page(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	page, err := p.pages.FindPublishedBySlug(r.Context(), slugParam)
	if err != nil {
		p.failHTML(w, "find page by slug", err)
		return
	}
	if page == nil {
		p.notFound(w, slugParam)
		return
	}
	p.render(w, r, page, engine.ModePublic)
}

// render renders page against the active theme and answers conditional
// requests with 304 when the output is unchanged.
func (p *Public) render(w http.ResponseWriter, r *http.Request, page *models.Page, mode engine.Mode) {
	ctx := r.Context()
	sc, err := p.site.Schema(ctx)
	if err != nil {
		p.failHTML(w, "load schema", err)
		return
	}
	doc, err := p.renderer.RenderPage(ctx, sc.RenderContext(mode, p.site.name), page)
	if err != nil {
		p.failHTML(w, "render page", err)
		return
	}
	for _, warn := range doc.Warnings {
		slog.Warn("render warning", "page_id", page.ID, "level", warn.Level, "id", warn.ID, "message", warn.Message)
	}

	w.Header().Set("ETag", doc.ETag)
	if mode == engine.ModePreview {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
		if etagMatch(r.Header.Get("If-None-Match"), doc.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(doc.HTML)
}

// etagMatch reports whether an If-None-Match header lists etag.
func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func (p *Public) notFound(w http.ResponseWriter, slugParam string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Not Found</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4rem">
<h1>404</h1>
<p>No page at /` + html.EscapeString(slugParam) + `.</p>
<a href="/">Back to home</a>
</body></html>`))
}

func (p *Public) failHTML(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}
