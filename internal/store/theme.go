// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"pagecraft/internal/models"
)

// ThemeStore records the installed themes and which one is active.
type ThemeStore struct {
	db *sql.DB
}

// NewThemeStore creates a new ThemeStore.
func NewThemeStore(db *sql.DB) *ThemeStore {
	return &ThemeStore{db: db}
}

const themeColumns = `id, slug, name, parent, is_active, created_at, updated_at`

func scanTheme(row scanner) (*models.Theme, error) {
	var t models.Theme
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Parent, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all themes ordered by slug.
func (s *ThemeStore) List(ctx context.Context) ([]models.Theme, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+themeColumns+` FROM themes ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var items []models.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// FindBySlug returns the theme with the given slug, or nil.
func (s *ThemeStore) FindBySlug(ctx context.Context, slug string) (*models.Theme, error) {
	t, err := scanTheme(s.db.QueryRowContext(ctx, `SELECT `+themeColumns+` FROM themes WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find theme by slug: %w", err)
	}
	return t, nil
}

// FindActive returns the active theme, or nil if none is active.
func (s *ThemeStore) FindActive(ctx context.Context) (*models.Theme, error) {
	t, err := scanTheme(s.db.QueryRowContext(ctx, `SELECT `+themeColumns+` FROM themes WHERE is_active LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active theme: %w", err)
	}
	return t, nil
}

// Upsert registers a theme by slug, updating its name and parent when it
// already exists. The active flag is not touched.
func (s *ThemeStore) Upsert(ctx context.Context, t *models.Theme) (*models.Theme, error) {
	out, err := scanTheme(s.db.QueryRowContext(ctx, `
		INSERT INTO themes (slug, name, parent) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, parent = EXCLUDED.parent, updated_at = NOW()
		RETURNING `+themeColumns,
		t.Slug, t.Name, t.Parent,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert theme: %w", err)
	}
	return out, nil
}

// Activate makes the theme with the given slug the only active theme.
func (s *ThemeStore) Activate(ctx context.Context, slug string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE themes SET is_active = FALSE WHERE is_active AND slug <> $1`, slug); err != nil {
		return fmt.Errorf("deactivate themes: %w", err)
	}
	result, err := tx.ExecContext(ctx, `UPDATE themes SET is_active = TRUE, updated_at = NOW() WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("activate theme: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
