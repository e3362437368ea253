// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type seedPost struct {
	title, slug, status string
	data                map[string]any
}

var seedPosts = []seedPost{
	{"Hello, Pagecraft", "hello-pagecraft", "published", map[string]any{"excerpt": "Pages built from sections and widgets.", "category": "news"}},
	{"Designing with the grid", "designing-with-the-grid", "published", map[string]any{"excerpt": "Twelve columns, any layout.", "category": "guides"}},
	{"Binding live content", "binding-live-content", "published", map[string]any{"excerpt": "Widgets that list your latest posts.", "category": "guides"}},
	{"Unfinished thoughts", "unfinished-thoughts", "draft", map[string]any{"excerpt": "Not ready yet."}},
}

// Seed populates the database with development data: a "post" content type
// with a few items and a published home page. Each part is skipped when its
// table already has rows. Widgets are only added for definitions that have
// been synced from a theme.
func Seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	postType, err := seedContent(ctx, tx)
	if err != nil {
		return err
	}
	if err := seedHome(ctx, tx, postType); err != nil {
		return err
	}
	return tx.Commit()
}

func seedContent(ctx context.Context, tx *sql.Tx) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM content_types WHERE slug = 'post'`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("seed check content types: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO content_types (slug, name) VALUES ('post', 'Posts') RETURNING id`,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("seed insert content type: %w", err)
	}

	base := time.Now().Add(-time.Duration(len(seedPosts)) * time.Hour)
	for i, p := range seedPosts {
		data, err := json.Marshal(p.data)
		if err != nil {
			return uuid.Nil, fmt.Errorf("seed encode post data: %w", err)
		}
		created := base.Add(time.Duration(i) * time.Hour)
		var publishedAt *time.Time
		if p.status == "published" {
			publishedAt = &created
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_items (type_id, title, slug, status, data, published_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		`, id, p.title, p.slug, p.status, data, publishedAt, created); err != nil {
			return uuid.Nil, fmt.Errorf("seed insert post %q: %w", p.slug, err)
		}
	}
	slog.Info("seeded content", "type", "post", "items", len(seedPosts))
	return id, nil
}

func seedHome(ctx context.Context, tx *sql.Tx, postType uuid.UUID) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count); err != nil {
		return fmt.Errorf("seed check pages: %w", err)
	}
	if count > 0 {
		slog.Info("pages already seeded, skipping")
		return nil
	}

	var pageID, heroID, listID uuid.UUID
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO pages (title, slug, status, published_at) VALUES ('Home', 'home', 'published', NOW())
		RETURNING id
	`).Scan(&pageID); err != nil {
		return fmt.Errorf("seed insert page: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO sections (page_id, type, position, grid, settings)
		VALUES ($1, 'hero', 0, '{"x":0,"y":0,"w":12,"h":2}', '{}') RETURNING id
	`, pageID).Scan(&heroID); err != nil {
		return fmt.Errorf("seed insert hero section: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO sections (page_id, type, position, settings)
		VALUES ($1, 'content', 1, '{"container":"boxed"}') RETURNING id
	`, pageID).Scan(&listID); err != nil {
		return fmt.Errorf("seed insert content section: %w", err)
	}

	defined := func(slug string) (bool, error) {
		var ok bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM widget_definitions WHERE slug = $1)`, slug).Scan(&ok)
		return ok, err
	}

	widgets := 0
	if ok, err := defined("heading"); err != nil {
		return fmt.Errorf("seed check definitions: %w", err)
	} else if ok {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO widgets (section_id, definition, position, fields)
			VALUES ($1, 'heading', 0, '{"text":"Welcome to Pagecraft","level":"h1"}')
		`, heroID); err != nil {
			return fmt.Errorf("seed insert heading: %w", err)
		}
		widgets++
	}
	if ok, err := defined("content-list"); err != nil {
		return fmt.Errorf("seed check definitions: %w", err)
	} else if ok {
		query, _ := json.Marshal(map[string]any{"content_type_id": postType, "limit": 3})
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO widgets (section_id, definition, position, settings, query)
			VALUES ($1, 'content-list', 0, '{"columns":3,"show_excerpt":true}', $2)
		`, listID, query); err != nil {
			return fmt.Errorf("seed insert content list: %w", err)
		}
		widgets++
	}

	slog.Info("seeded home page", "page_id", pageID, "widgets", widgets)
	return nil
}
