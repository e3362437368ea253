// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
	"pagecraft/internal/reconcile"
)

// PageStore handles page documents: the page row together with its
// sections and widgets.
type PageStore struct {
	db *sql.DB
}

// NewPageStore creates a new PageStore with the given database connection.
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, title, slug, template, status, published_at, created_at, updated_at`

const sectionColumns = `s.id, s.page_id, s.type, s.position, s.grid, s.style, s.allows_widgets, s.settings, s.created_at, s.updated_at`

const widgetColumns = `w.id, w.section_id, w.definition, w.position, w.grid, w.style, w.fields, w.settings, w.query, w.created_at, w.updated_at`

// querier is the part of *sql.DB and *sql.Tx the graph loader needs.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanPage(row scanner) (*models.Page, error) {
	var p models.Page
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Template, &p.Status,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all pages without their sections, most recently updated first.
func (s *PageStore) List(ctx context.Context) ([]models.Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// FindByID loads the full page document. Returns nil if not found.
func (s *PageStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by id: %w", err)
	}
	if err := loadGraph(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FindPublishedBySlug loads the published page with the given slug.
// Returns nil if no published page has it.
func (s *PageStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+` FROM pages WHERE slug = $1 AND status = 'published'
	`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page by slug: %w", err)
	}
	if err := loadGraph(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a page row. Sections are ignored; store them with
// SaveDocument.
func (s *PageStore) Create(ctx context.Context, p *models.Page) (*models.Page, error) {
	if p.Status == "" {
		p.Status = models.PageStatusDraft
	}
	if p.Status == models.PageStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	created, err := scanPage(s.db.QueryRowContext(ctx, `
		INSERT INTO pages (title, slug, template, status, published_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pageColumns,
		p.Title, p.Slug, p.Template, p.Status, p.PublishedAt,
	))
	if pgCode(err) == codeUniqueViolation {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	created.Sections = []models.Section{}
	return created, nil
}

// Delete removes a page with its sections and widgets.
func (s *PageStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDocument makes the stored document equal to page in one transaction.
// The page row is locked for the duration, so saves of the same page are
// serialized. On any failure nothing is written and page is not modified.
// The stored document is returned as read back after commit.
func (s *PageStore) SaveDocument(ctx context.Context, page *models.Page) (*models.Page, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save document begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanPage(tx.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1 FOR UPDATE`, page.ID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("save document lock page: %w", err)
	}
	if err := loadGraph(ctx, tx, existing); err != nil {
		return nil, err
	}

	publishedAt := existing.PublishedAt
	if page.Status == models.PageStatusPublished && publishedAt == nil {
		now := time.Now()
		publishedAt = &now
	}
	status := page.Status
	if status == "" {
		status = existing.Status
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE pages SET title = $1, slug = $2, template = $3, status = $4,
		       published_at = $5, updated_at = NOW()
		WHERE id = $6
	`, page.Title, page.Slug, page.Template, status, publishedAt, page.ID); err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("save document update page: %w", err)
	}

	plan := reconcile.Diff(existing, page)
	if err := applyPlan(ctx, tx, plan); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save document commit: %w", err)
	}

	slog.Debug("page document saved", "page_id", page.ID,
		"sections_inserted", len(plan.InsertSections),
		"sections_deleted", len(plan.DeleteSections),
		"widgets_inserted", len(plan.InsertWidgets),
		"widgets_deleted", len(plan.DeleteWidgets),
	)
	return s.FindByID(ctx, page.ID)
}

// applyPlan writes a reconcile plan. Sections are inserted before widgets
// that may reference them, and widgets are moved out before their old
// sections are deleted.
func applyPlan(ctx context.Context, tx *sql.Tx, plan reconcile.Plan) error {
	for _, sec := range plan.InsertSections {
		args, err := sectionArgs(sec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sections (id, page_id, type, position, grid, style, allows_widgets, settings)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, args...); err != nil {
			return fmt.Errorf("insert section %s: %w", sec.ID, err)
		}
	}
	for _, sec := range plan.UpdateSections {
		args, err := sectionArgs(sec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE sections SET page_id = $2, type = $3, position = $4, grid = $5, style = $6,
			       allows_widgets = $7, settings = $8, updated_at = NOW()
			WHERE id = $1
		`, args...); err != nil {
			return fmt.Errorf("update section %s: %w", sec.ID, err)
		}
	}
	for _, w := range plan.UpdateWidgets {
		args, err := widgetArgs(w)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE widgets SET section_id = $2, definition = $3, position = $4, grid = $5, style = $6,
			       fields = $7, settings = $8, query = $9, updated_at = NOW()
			WHERE id = $1
		`, args...); err != nil {
			return fmt.Errorf("update widget %s: %w", w.ID, err)
		}
	}
	for _, w := range plan.InsertWidgets {
		args, err := widgetArgs(w)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO widgets (id, section_id, definition, position, grid, style, fields, settings, query)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, args...); err != nil {
			return fmt.Errorf("insert widget %s: %w", w.ID, err)
		}
	}
	for _, id := range plan.DeleteWidgets {
		if _, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete widget %s: %w", id, err)
		}
	}
	for _, id := range plan.DeleteSections {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete section %s: %w", id, err)
		}
	}
	return nil
}

func sectionArgs(sec models.Section) ([]any, error) {
	g, err := jsonArg(sec.Grid, "{}")
	if err != nil {
		return nil, err
	}
	st, err := jsonArg(sec.Style, "{}")
	if err != nil {
		return nil, err
	}
	settings, err := jsonArg(sec.Settings, "{}")
	if err != nil {
		return nil, err
	}
	return []any{sec.ID, sec.PageID, sec.Type, sec.Position, g, st, sec.AllowsWidgets, settings}, nil
}

func widgetArgs(w models.Widget) ([]any, error) {
	g, err := jsonArg(w.Grid, "{}")
	if err != nil {
		return nil, err
	}
	st, err := jsonArg(w.Style, "{}")
	if err != nil {
		return nil, err
	}
	fields, err := jsonArg(w.Fields, "{}")
	if err != nil {
		return nil, err
	}
	settings, err := jsonArg(w.Settings, "{}")
	if err != nil {
		return nil, err
	}
	var query any
	if w.Query != nil {
		if query, err = jsonArg(w.Query, "{}"); err != nil {
			return nil, err
		}
	}
	return []any{w.ID, w.SectionID, w.Definition, w.Position, g, st, fields, settings, query}, nil
}

// ReorderSections stores a new section order for a page. ordered must be a
// permutation of the page's section ids.
func (s *PageStore) ReorderSections(ctx context.Context, pageID uuid.UUID, ordered []uuid.UUID) error {
	return s.reorder(ctx, "sections", "page_id", pageID, ordered)
}

// ReorderWidgets stores a new widget order within a section. ordered must
// be a permutation of the section's widget ids.
func (s *PageStore) ReorderWidgets(ctx context.Context, sectionID uuid.UUID, ordered []uuid.UUID) error {
	return s.reorder(ctx, "widgets", "section_id", sectionID, ordered)
}

func (s *PageStore) reorder(ctx context.Context, table, parentColumn string, parent uuid.UUID, ordered []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reorder %s begin tx: %w", table, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE `+parentColumn+` = $1 ORDER BY position FOR UPDATE`, parent)
	if err != nil {
		return fmt.Errorf("reorder %s lock: %w", table, err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("reorder %s scan: %w", table, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reorder %s: %w", table, err)
	}

	positions, err := grid.Reorder(ids, ordered)
	if err != nil {
		return fmt.Errorf("reorder %s: %w", table, err)
	}
	for id, pos := range positions {
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET position = $1, updated_at = NOW() WHERE id = $2`, pos, id); err != nil {
			return fmt.Errorf("reorder %s update: %w", table, err)
		}
	}
	return tx.Commit()
}

// loadGraph fills p.Sections with its sections and their widgets, both
// sorted by position.
func loadGraph(ctx context.Context, q querier, p *models.Page) error {
	rows, err := q.QueryContext(ctx, `
		SELECT `+sectionColumns+` FROM sections s
		WHERE s.page_id = $1 ORDER BY s.position, s.created_at
	`, p.ID)
	if err != nil {
		return fmt.Errorf("load sections: %w", err)
	}
	defer rows.Close()

	p.Sections = []models.Section{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var sec models.Section
		var g, st, settings []byte
		if err := rows.Scan(&sec.ID, &sec.PageID, &sec.Type, &sec.Position, &g, &st,
			&sec.AllowsWidgets, &settings, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return fmt.Errorf("scan section: %w", err)
		}
		if err := scanJSON(g, &sec.Grid, st, &sec.Style, settings, &sec.Settings); err != nil {
			return fmt.Errorf("section %s: %w", sec.ID, err)
		}
		sec.Widgets = []models.Widget{}
		index[sec.ID] = len(p.Sections)
		p.Sections = append(p.Sections, sec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load sections: %w", err)
	}
	rows.Close()

	wrows, err := q.QueryContext(ctx, `
		SELECT `+widgetColumns+` FROM widgets w
		JOIN sections s ON s.id = w.section_id
		WHERE s.page_id = $1 ORDER BY s.position, w.position, w.created_at
	`, p.ID)
	if err != nil {
		return fmt.Errorf("load widgets: %w", err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var w models.Widget
		var g, st, fields, settings, query []byte
		if err := wrows.Scan(&w.ID, &w.SectionID, &w.Definition, &w.Position, &g, &st,
			&fields, &settings, &query, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return fmt.Errorf("scan widget: %w", err)
		}
		if err := scanJSON(g, &w.Grid, st, &w.Style, fields, &w.Fields, settings, &w.Settings); err != nil {
			return fmt.Errorf("widget %s: %w", w.ID, err)
		}
		if len(query) > 0 {
			w.Query = &models.ContentQuery{}
			if err := jsonScan(query, w.Query); err != nil {
				return fmt.Errorf("widget %s: %w", w.ID, err)
			}
		}
		i, ok := index[w.SectionID]
		if !ok {
			continue
		}
		p.Sections[i].Widgets = append(p.Sections[i].Widgets, w)
	}
	return wrows.Err()
}

// scanJSON decodes pairs of (column bytes, destination).
func scanJSON(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := jsonScan(pairs[i].([]byte), pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
