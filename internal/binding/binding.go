// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package binding resolves a widget's content query into an ordered,
// bounded list of content items at render time. Every call reads fresh
// data from the content source; nothing is cached between calls.
package binding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pagecraft/internal/models"
)

const (
	// DefaultLimit applies when a query sets no limit.
	DefaultLimit = 5
	// MaxLimit caps any requested limit.
	MaxLimit = 50
	// DefaultOrderBy is the sort field when a query names none.
	DefaultOrderBy = "created_at"
	// DefaultConcurrency bounds parallel queries in ResolveAll.
	DefaultConcurrency = 4
)

// ContentSource is the storage collaborator the resolver reads from.
// FindContentType returns (nil, nil) for unknown ids.
type ContentSource interface {
	FindContentType(ctx context.Context, id uuid.UUID) (*models.ContentType, error)
	ListPublishedItems(ctx context.Context, typeID uuid.UUID) ([]models.ContentItem, error)
}

// Resolver turns content queries into item lists.
type Resolver struct {
	source      ContentSource
	concurrency int
}

// NewResolver creates a Resolver reading from source.
func NewResolver(source ContentSource) *Resolver {
	return &Resolver{source: source, concurrency: DefaultConcurrency}
}

// WithConcurrency sets how many queries ResolveAll runs at once.
func (r *Resolver) WithConcurrency(n int) *Resolver {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

// Resolve runs one query. A nil query, a query without a content type, and
// a query naming an unknown or deleted content type all yield an empty
// list, not an error. Errors are reserved for source failures and
// malformed filters.
func (r *Resolver) Resolve(ctx context.Context, q *models.ContentQuery) ([]models.ContentItemDTO, error) {
	empty := []models.ContentItemDTO{}
	if q == nil || q.ContentTypeID == nil || *q.ContentTypeID == uuid.Nil {
		return empty, nil
	}

	ct, err := r.source.FindContentType(ctx, *q.ContentTypeID)
	if err != nil {
		return nil, fmt.Errorf("find content type: %w", err)
	}
	if ct == nil || ct.IsDeleted() {
		return empty, nil
	}

	filters, err := compileFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	items, err := r.source.ListPublishedItems(ctx, ct.ID)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}

	matched := make([]models.ContentItem, 0, len(items))
	for _, it := range items {
		if filters.match(it) {
			matched = append(matched, it)
		}
	}

	sortItems(matched, q.OrderBy, q.OrderDirection)

	limit := EffectiveLimit(q.Limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]models.ContentItemDTO, len(matched))
	for i, it := range matched {
		out[i] = toDTO(ct, it)
	}
	return out, nil
}

// EffectiveLimit applies the default and the cap to a requested limit.
func EffectiveLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Results holds the outcome of ResolveAll keyed by widget id. A widget
// whose query failed has an empty item list and an entry in Errors.
type Results struct {
	Items  map[uuid.UUID][]models.ContentItemDTO
	Errors map[uuid.UUID]error
}

// ResolveAll runs the queries of several widgets concurrently. Queries are
// read-only and independent, so one failing query never affects another.
func (r *Resolver) ResolveAll(ctx context.Context, queries map[uuid.UUID]*models.ContentQuery) Results {
	res := Results{
		Items:  make(map[uuid.UUID][]models.ContentItemDTO, len(queries)),
		Errors: make(map[uuid.UUID]error),
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for id, q := range queries {
		g.Go(func() error {
			items, err := r.Resolve(ctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("content query failed", "widget_id", id, "error", err)
				res.Errors[id] = err
				items = []models.ContentItemDTO{}
			}
			res.Items[id] = items
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func toDTO(ct *models.ContentType, it models.ContentItem) models.ContentItemDTO {
	data := it.Data
	if data == nil {
		data = map[string]any{}
	}
	return models.ContentItemDTO{
		ID:          it.ID,
		Type:        ct.Slug,
		Title:       it.Title,
		Slug:        it.Slug,
		Data:        data,
		PublishedAt: it.PublishedAt,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

// sortItems orders items by field and direction. Items whose field is
// missing sort last in either direction; ties fall back to the item id so
// the order is total.
func sortItems(items []models.ContentItem, orderBy string, dir models.SortDirection) {
	if orderBy == "" {
		orderBy = DefaultOrderBy
	}
	desc := dir != models.SortAsc
	get, err := accessor(orderBy)
	if err != nil {
		slog.Warn("invalid order_by, using default", "order_by", orderBy, "error", err)
		get, _ = accessor(DefaultOrderBy)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, aok := get(items[i])
		b, bok := get(items[j])
		switch {
		case aok && !bok:
			return true
		case !aok && bok:
			return false
		case aok && bok:
			if c := compare(a, b); c != 0 {
				if desc {
					return c > 0
				}
				return c < 0
			}
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}
