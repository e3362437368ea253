// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pagecraft/internal/models"
)

// ContentStore reads and writes content types and items. It is the
// content source of widget bindings.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

const contentTypeColumns = `id, slug, name, deleted_at, created_at`

const contentItemColumns = `id, type_id, title, slug, status, data, published_at, created_at, updated_at`

func scanContentType(row scanner) (*models.ContentType, error) {
	var t models.ContentType
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.DeletedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanContentItem(row scanner) (*models.ContentItem, error) {
	var c models.ContentItem
	var data []byte
	if err := row.Scan(&c.ID, &c.TypeID, &c.Title, &c.Slug, &c.Status, &data,
		&c.PublishedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := jsonScan(data, &c.Data); err != nil {
		return nil, fmt.Errorf("content item %s: %w", c.ID, err)
	}
	return &c, nil
}

// ListContentTypes returns the content types that are not deleted.
func (s *ContentStore) ListContentTypes(ctx context.Context) ([]models.ContentType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contentTypeColumns+` FROM content_types
		WHERE deleted_at IS NULL ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list content types: %w", err)
	}
	defer rows.Close()

	var types []models.ContentType
	for rows.Next() {
		t, err := scanContentType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content type: %w", err)
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// FindContentType returns a content type by id, including soft-deleted
// ones. Returns nil if not found.
func (s *ContentStore) FindContentType(ctx context.Context, id uuid.UUID) (*models.ContentType, error) {
	t, err := scanContentType(s.db.QueryRowContext(ctx,
		`SELECT `+contentTypeColumns+` FROM content_types WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content type: %w", err)
	}
	return t, nil
}

// CreateContentType inserts a content type.
func (s *ContentStore) CreateContentType(ctx context.Context, slug, name string) (*models.ContentType, error) {
	t, err := scanContentType(s.db.QueryRowContext(ctx, `
		INSERT INTO content_types (slug, name) VALUES ($1, $2)
		RETURNING `+contentTypeColumns, slug, name))
	if err != nil {
		return nil, fmt.Errorf("create content type: %w", err)
	}
	return t, nil
}

// DeleteContentType soft-deletes a content type. Widgets bound to it then
// render an empty list.
func (s *ContentStore) DeleteContentType(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE content_types SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete content type: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublishedItems returns every published item of a content type.
// Filtering, ordering and limits are applied by the binding resolver.
func (s *ContentStore) ListPublishedItems(ctx context.Context, typeID uuid.UUID) ([]models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contentItemColumns+` FROM content_items
		WHERE type_id = $1 AND status = 'published'
		ORDER BY created_at DESC
	`, typeID)
	if err != nil {
		return nil, fmt.Errorf("list published items: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		c, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// CreateItem inserts a content item and returns it with the generated ID.
func (s *ContentStore) CreateItem(ctx context.Context, c *models.ContentItem) (*models.ContentItem, error) {
	if c.Status == "" {
		c.Status = models.ContentStatusDraft
	}
	if c.Status == models.ContentStatusPublished && c.PublishedAt == nil {
		now := time.Now()
		c.PublishedAt = &now
	}
	data, err := jsonArg(c.Data, "{}")
	if err != nil {
		return nil, err
	}
	created, err := scanContentItem(s.db.QueryRowContext(ctx, `
		INSERT INTO content_items (type_id, title, slug, status, data, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contentItemColumns,
		c.TypeID, c.Title, c.Slug, c.Status, data, c.PublishedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return created, nil
}
