// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// Pagecraft. It organizes routes into the public site, the preview frame
// and the editor API.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pagecraft/internal/handlers"
	"pagecraft/internal/middleware"
)

// Options tune the middleware stacks.
type Options struct {
	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool
	// Static is served under /static/. Nil disables it.
	Static fs.FS
	// WriteLimiter bounds state-changing API requests per client.
	WriteLimiter *middleware.RateLimiter
	// SaveLimiter bounds document saves per client and page.
	SaveLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(public *handlers.Public, editor *handlers.Editor, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(opts.Static))))
	}

	csrf := middleware.NewCSRF(opts.SecureCookies)

	// Preview frame, loaded by the editor shell from the same origin.
	r.With(csrf).Get("/preview/{id}", editor.Preview)

	// Editor API, JSON with double-submit CSRF protection.
	r.Route("/api", func(r chi.Router) {
		r.Use(csrf)

		r.Get("/schema/widgets", editor.WidgetSchema)
		r.Get("/schema/sections", editor.SectionSchema)
		r.Get("/content-types", editor.ContentTypes)

		r.Route("/pages", func(r chi.Router) {
			r.Get("/", editor.ListPages)
			r.Get("/{id}", editor.GetPage)
			r.Get("/{id}/live", editor.Live)

			r.Group(func(r chi.Router) {
				limit(r, opts.WriteLimiter)
				r.Post("/", editor.CreatePage)
				r.Delete("/{id}", editor.DeletePage)
				r.Post("/{id}/sections/reorder", editor.ReorderSections)

				r.Group(func(r chi.Router) {
					limit(r, opts.SaveLimiter)
					r.Put("/{id}/document", editor.SaveDocument)
					r.Post("/{id}/live/save", editor.LiveSave)
				})
			})
		})

		r.Group(func(r chi.Router) {
			limit(r, opts.WriteLimiter)
			r.Post("/sections/{id}/widgets/reorder", editor.ReorderWidgets)
			r.Delete("/widget-definitions/{slug}", editor.DeleteDefinition)
			r.Post("/themes/{slug}/activate", editor.ActivateTheme)
		})
	})

	// Public routes, rendered against the active theme.
	r.Get("/", public.Homepage)
	r.Get("/{slug}", public.Page)

	return r
}

func limit(r chi.Router, rl *middleware.RateLimiter) {
	if rl != nil {
		r.Use(rl.Middleware)
	}
}

// SaveKey buckets save requests by the page they target.
func SaveKey(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
