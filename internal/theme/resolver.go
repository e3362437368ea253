// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package theme resolves section, widget and layout templates for a theme.
// A theme is a directory of html/template files plus an optional
// theme.yaml manifest. Lookups follow a fixed fallback chain: the type's own
// template, the kind's default template, then a built-in placeholder that
// renders a visibly marked "template not found" block. Only a theme whose
// storage cannot be reached at all is reported as an error.
package theme

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
)

// Kind is the kind of node a template renders.
type Kind string

const (
	KindSection Kind = "section"
	KindWidget  Kind = "widget"
	KindLayout  Kind = "layout"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSection || k == KindWidget || k == KindLayout
}

// Source records which step of the fallback chain produced a handle.
type Source int

const (
	SourceOverride Source = iota
	SourceDefault
	SourcePlaceholder
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceDefault:
		return "default"
	default:
		return "placeholder"
	}
}

// DefaultSlug is the file name, without extension, of a kind's generic template.
const DefaultSlug = "default"

// ErrInvalidTemplate wraps parse failures of a theme template file. It is
// recoverable: callers render a visible error block in place of the node.
var ErrInvalidTemplate = errors.New("invalid template")

// Handle is a resolved, compiled template.
type Handle struct {
	Theme  string
	Kind   Kind
	Slug   string
	Path   string
	Source Source

	tmpl    *template.Template
	lineage []string
}

// Placeholder reports whether the handle is the built-in missing-template block.
func (h *Handle) Placeholder() bool {
	return h.Source == SourcePlaceholder
}

// Execute renders the template with data. Section and widget placeholders
// ignore data and describe what was missing.
func (h *Handle) Execute(w io.Writer, data any) error {
	if h.Placeholder() && h.Kind != KindLayout {
		data = placeholderData{Kind: h.Kind, Slug: h.Slug}
	}
	return h.tmpl.Execute(w, data)
}

// Render executes the template into a string.
func (h *Handle) Render(data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := h.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s template %q: %w", h.Kind, h.Path, err)
	}
	return template.HTML(buf.String()), nil
}

func (h *Handle) inherits(theme string) bool {
	return contains(h.lineage, theme)
}

// lineageProvider is implemented by providers that can name the themes on
// a search path. It lets cache invalidation reach child themes.
type lineageProvider interface {
	Lineage(theme string) ([]string, error)
}

// catalogProvider is implemented by providers that read theme manifests.
type catalogProvider interface {
	Catalog(theme string) (*Catalog, error)
}

// Resolver maps (theme, kind, type slug) to compiled templates. It caches
// every resolution, placeholders included, until the theme is invalidated.
type Resolver struct {
	provider Provider
	funcs    template.FuncMap
	cache    *templateCache
}

// NewResolver creates a Resolver over provider. extra is merged over the
// default function map.
func NewResolver(provider Provider, extra template.FuncMap) *Resolver {
	funcs := FuncMap()
	for k, v := range extra {
		funcs[k] = v
	}
	return &Resolver{provider: provider, funcs: funcs, cache: newTemplateCache()}
}

// Resolve returns the template for slug. Missing templates never error;
// they resolve to the kind's default or to a placeholder. The error is
// ErrStorageUnavailable when the theme's search path cannot be obtained,
// or ErrInvalidTemplate when the chosen file does not parse.
func (r *Resolver) Resolve(theme string, kind Kind, slug string) (*Handle, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("resolve template: unknown kind %q", kind)
	}
	key := cacheKey{theme: theme, kind: kind, slug: slug}
	if h := r.cache.get(key); h != nil {
		return h, nil
	}

	search, err := r.provider.SearchPath(theme)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, slug, err)
	}
	if len(search) == 0 {
		return nil, fmt.Errorf("resolve %s %q: %w: empty search path for theme %q", kind, slug, ErrStorageUnavailable, theme)
	}

	h, err := r.lookup(search, theme, kind, slug)
	if err != nil {
		return nil, err
	}
	h.lineage = r.lineage(theme)
	r.cache.put(key, h)
	return h, nil
}

// lookup walks the fallback chain over the search path.
func (r *Resolver) lookup(search []fs.FS, theme string, kind Kind, slug string) (*Handle, error) {
	candidates := []struct {
		slug   string
		source Source
	}{
		{slug, SourceOverride},
		{DefaultSlug, SourceDefault},
	}
	for _, c := range candidates {
		if c.slug == "" || (c.source == SourceOverride && !validName(c.slug)) {
			continue
		}
		name := path.Join(string(kind)+"s", c.slug+".html")
		for _, fsys := range search {
			src, err := fs.ReadFile(fsys, name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve %s %q: %w: read %s: %v", kind, slug, ErrStorageUnavailable, name, err)
			}
			tmpl, err := r.compile(name, string(src), search)
			if err != nil {
				return nil, fmt.Errorf("%w: theme %q %s: %v", ErrInvalidTemplate, theme, name, err)
			}
			return &Handle{Theme: theme, Kind: kind, Slug: slug, Path: name, Source: c.source, tmpl: tmpl}, nil
		}
	}

	slog.Warn("template not found, using placeholder", "theme", theme, "kind", kind, "slug", slug)
	return Placeholder(theme, kind, slug), nil
}

// Placeholder returns the built-in handle for kind. For layouts it is a
// minimal document shell around the page body.
func Placeholder(theme string, kind Kind, slug string) *Handle {
	return &Handle{Theme: theme, Kind: kind, Slug: slug, Source: SourcePlaceholder, tmpl: placeholderFor(kind)}
}

// compile parses one template file together with the shared partials of
// the search path. Partials are parsed ancestor first so a child theme's
// partial replaces its parent's definition of the same name.
func (r *Resolver) compile(name, src string, search []fs.FS) (*template.Template, error) {
	tmpl := template.New(name).Funcs(r.funcs)
	for i := len(search) - 1; i >= 0; i-- {
		matches, err := fs.Glob(search[i], "partials/*.html")
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			b, err := fs.ReadFile(search[i], m)
			if err != nil {
				return nil, err
			}
			if _, err := tmpl.New(m).Parse(string(b)); err != nil {
				return nil, err
			}
		}
	}
	if _, err := tmpl.Parse(src); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Catalog returns the merged manifest data of a theme. Providers that do
// not read manifests yield an empty catalog.
func (r *Resolver) Catalog(theme string) (*Catalog, error) {
	if c := r.cache.catalog(theme); c != nil {
		return c, nil
	}
	cp, ok := r.provider.(catalogProvider)
	if !ok {
		return &Catalog{Theme: theme, Lineage: []string{theme}}, nil
	}
	c, err := cp.Catalog(theme)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	r.cache.putCatalog(theme, c)
	return c, nil
}

// InvalidateTheme drops cached templates of theme and of themes inheriting
// from it. Called after a theme sync or activation.
func (r *Resolver) InvalidateTheme(theme string) {
	r.cache.invalidate(theme)
}

// InvalidateAll clears the template cache.
func (r *Resolver) InvalidateAll() {
	r.cache.invalidateAll()
}

func (r *Resolver) lineage(theme string) []string {
	if lp, ok := r.provider.(lineageProvider); ok {
		if names, err := lp.Lineage(theme); err == nil {
			return names
		}
	}
	return []string{theme}
}

// validName rejects type slugs that would escape the kind directory.
func validName(slug string) bool {
	return fs.ValidPath(slug) && path.Base(slug) == slug && slug != "." && slug != ".."
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
