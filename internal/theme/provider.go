// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// ErrStorageUnavailable is returned when a theme's template storage cannot
// be reached at all. It is the only fatal resolver condition.
var ErrStorageUnavailable = errors.New("theme storage unavailable")

// maxDepth bounds the parent chain to catch cycles and runaway manifests.
const maxDepth = 8

// Provider supplies the template search path for a theme, most specific
// entry first.
type Provider interface {
	SearchPath(theme string) ([]fs.FS, error)
}

// FSProvider serves themes stored as top-level directories of a file
// system. Each directory may carry a theme.yaml whose parent field extends
// the search path with the parent theme's directory.
type FSProvider struct {
	fsys fs.FS
}

// NewFSProvider creates a provider over fsys.
func NewFSProvider(fsys fs.FS) *FSProvider {
	return &FSProvider{fsys: fsys}
}

// NewDirProvider creates a provider over the themes directory on disk.
func NewDirProvider(root string) *FSProvider {
	return NewFSProvider(os.DirFS(root))
}

// SearchPath returns the theme's directory followed by its ancestors'.
func (p *FSProvider) SearchPath(theme string) ([]fs.FS, error) {
	dirs, _, _, err := p.chain(theme)
	return dirs, err
}

// Lineage returns the theme slug followed by its ancestors' slugs.
func (p *FSProvider) Lineage(theme string) ([]string, error) {
	_, _, names, err := p.chain(theme)
	return names, err
}

// Catalog returns the merged manifests of the theme and its ancestors.
func (p *FSProvider) Catalog(theme string) (*Catalog, error) {
	_, manifests, names, err := p.chain(theme)
	if err != nil {
		return nil, err
	}
	c := mergeCatalog(theme, manifests)
	c.Lineage = names
	return c, nil
}

// Manifest returns the theme's own manifest, or nil if it has none.
func (p *FSProvider) Manifest(theme string) (*Manifest, error) {
	dir, err := p.dir(theme)
	if err != nil {
		return nil, err
	}
	return loadManifest(dir)
}

// List returns the slugs of all theme directories, sorted.
func (p *FSProvider) List() ([]string, error) {
	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// chain walks the parent links starting at theme.
func (p *FSProvider) chain(theme string) ([]fs.FS, []*Manifest, []string, error) {
	var dirs []fs.FS
	var manifests []*Manifest
	var names []string
	visited := make(map[string]bool)

	for current := theme; current != ""; {
		if visited[current] {
			return nil, nil, nil, fmt.Errorf("theme %q: parent cycle at %q", theme, current)
		}
		if len(dirs) == maxDepth {
			return nil, nil, nil, fmt.Errorf("theme %q: parent chain deeper than %d", theme, maxDepth)
		}
		visited[current] = true

		dir, err := p.dir(current)
		if err != nil {
			return nil, nil, nil, err
		}
		m, err := loadManifest(dir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("theme %q: %w", current, err)
		}
		dirs = append(dirs, dir)
		manifests = append(manifests, m)
		names = append(names, current)
		if m == nil {
			break
		}
		current = m.Parent
	}
	return dirs, manifests, names, nil
}

// dir returns the sub file system for one theme directory.
func (p *FSProvider) dir(theme string) (fs.FS, error) {
	if theme == "" || !fs.ValidPath(theme) || strings.Contains(theme, "/") || isHidden(theme) {
		return nil, fmt.Errorf("%w: invalid theme name %q", ErrStorageUnavailable, theme)
	}
	info, err := fs.Stat(p.fsys, theme)
	if err != nil {
		return nil, fmt.Errorf("%w: theme %q: %v", ErrStorageUnavailable, theme, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: theme %q is not a directory", ErrStorageUnavailable, theme)
	}
	sub, err := fs.Sub(p.fsys, theme)
	if err != nil {
		return nil, fmt.Errorf("%w: theme %q: %v", ErrStorageUnavailable, theme, err)
	}
	return sub, nil
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
