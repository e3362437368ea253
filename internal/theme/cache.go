// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache.go holds compiled theme templates in memory so a render does not
// re-parse template files. Entries are keyed by theme, kind and type slug
// and dropped per theme when the theme is synced or activated.
package theme

import (
	"log/slog"
	"sync"
)

// cacheKey identifies one resolved template.
type cacheKey struct {
	theme string
	kind  Kind
	slug  string
}

// templateCache is a concurrency-safe cache of resolved handles and merged
// catalogs.
type templateCache struct {
	mu       sync.RWMutex
	entries  map[cacheKey]*Handle
	catalogs map[string]*Catalog
}

func newTemplateCache() *templateCache {
	return &templateCache{
		entries:  make(map[cacheKey]*Handle),
		catalogs: make(map[string]*Catalog),
	}
}

// get returns a cached handle, or nil on miss.
func (c *templateCache) get(k cacheKey) *Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[k]
}

func (c *templateCache) put(k cacheKey, h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = h
	slog.Debug("template cached", "theme", k.theme, "kind", k.kind, "slug", k.slug, "size", len(c.entries))
}

func (c *templateCache) catalog(theme string) *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalogs[theme]
}

func (c *templateCache) putCatalog(theme string, cat *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogs[theme] = cat
}

// invalidate drops every entry of a theme. Child themes that inherit from
// it are dropped too since their search path includes it.
func (c *templateCache) invalidate(theme string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, h := range c.entries {
		if k.theme == theme || h.inherits(theme) {
			delete(c.entries, k)
		}
	}
	for slug, cat := range c.catalogs {
		if slug == theme || cat.inherits(theme) {
			delete(c.catalogs, slug)
		}
	}
	slog.Debug("template cache invalidated", "theme", theme)
}

// invalidateAll clears the cache.
func (c *templateCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*Handle)
	c.catalogs = make(map[string]*Catalog)
	slog.Debug("template cache fully cleared")
}
