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

// WidgetDefinitionStore is the registry of widget definitions known to
// the database. Definitions are keyed by slug and synced from theme
// manifests.
type WidgetDefinitionStore struct {
	db *sql.DB
}

// NewWidgetDefinitionStore creates a new WidgetDefinitionStore.
func NewWidgetDefinitionStore(db *sql.DB) *WidgetDefinitionStore {
	return &WidgetDefinitionStore{db: db}
}

const definitionColumns = `id, slug, name, icon, theme, fields, settings, content_types, created_at, updated_at`

func scanDefinition(row scanner) (*models.WidgetDefinition, error) {
	var d models.WidgetDefinition
	var fields, settings, types []byte
	if err := row.Scan(&d.ID, &d.Slug, &d.Name, &d.Icon, &d.Theme,
		&fields, &settings, &types, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := scanJSON(fields, &d.Fields, settings, &d.Settings, types, &d.ContentTypes); err != nil {
		return nil, fmt.Errorf("definition %s: %w", d.Slug, err)
	}
	return &d, nil
}

// List returns every definition ordered by slug.
func (s *WidgetDefinitionStore) List(ctx context.Context) ([]models.WidgetDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM widget_definitions ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list widget definitions: %w", err)
	}
	defer rows.Close()

	var defs []models.WidgetDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan widget definition: %w", err)
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

// FindBySlug returns the definition with the given slug, or nil.
func (s *WidgetDefinitionStore) FindBySlug(ctx context.Context, slug string) (*models.WidgetDefinition, error) {
	d, err := scanDefinition(s.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM widget_definitions WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find widget definition: %w", err)
	}
	return d, nil
}

// Sync upserts defs by slug in one transaction. Definitions not in defs
// are left alone, since pages may still reference them.
func (s *WidgetDefinitionStore) Sync(ctx context.Context, defs []models.WidgetDefinition) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sync widget definitions begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range defs {
		fields, err := jsonArg(d.Fields, "[]")
		if err != nil {
			return 0, err
		}
		settings, err := jsonArg(d.Settings, "[]")
		if err != nil {
			return 0, err
		}
		types, err := jsonArg(d.ContentTypes, "[]")
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO widget_definitions (slug, name, icon, theme, fields, settings, content_types)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE SET
			    name = EXCLUDED.name, icon = EXCLUDED.icon, theme = EXCLUDED.theme,
			    fields = EXCLUDED.fields, settings = EXCLUDED.settings,
			    content_types = EXCLUDED.content_types, updated_at = NOW()
		`, d.Slug, d.Name, d.Icon, d.Theme, fields, settings, types); err != nil {
			return 0, fmt.Errorf("upsert widget definition %s: %w", d.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sync widget definitions commit: %w", err)
	}
	return len(defs), nil
}

// Delete removes a definition. It fails with ErrDefinitionInUse while any
// widget references it.
func (s *WidgetDefinitionStore) Delete(ctx context.Context, slug string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM widget_definitions WHERE slug = $1`, slug)
	if pgCode(err) == codeForeignKeyViolation {
		return ErrDefinitionInUse
	}
	if err != nil {
		return fmt.Errorf("delete widget definition: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Usage returns how many widgets reference the definition.
func (s *WidgetDefinitionStore) Usage(ctx context.Context, slug string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM widgets WHERE definition = $1`, slug).Scan(&n); err != nil {
		return 0, fmt.Errorf("count widget definition usage: %w", err)
	}
	return n, nil
}
