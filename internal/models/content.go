// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
)

// ContentType groups content items that widgets can bind to (e.g.
// "article", "event"). Soft-deleted types have DeletedAt set.
type ContentType struct {
	ID        uuid.UUID  `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsDeleted returns true if the content type has been soft-deleted.
func (t *ContentType) IsDeleted() bool {
	return t.DeletedAt != nil
}

// ContentItem is a stored entry of a content type. Type-specific fields
// live in Data as decoded JSON.
type ContentItem struct {
	ID          uuid.UUID      `json:"id"`
	TypeID      uuid.UUID      `json:"type_id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Status      ContentStatus  `json:"status"`
	Data        map[string]any `json:"data"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsPublished returns true if the content item is in published status.
func (c *ContentItem) IsPublished() bool {
	return c.Status == ContentStatusPublished
}

// ContentItemDTO is the render-time projection of a content item handed
// to widget templates.
type ContentItemDTO struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Data        map[string]any `json:"data"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SortDirection is the ordering of a content query.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterOp is a comparison operator of a content query filter.
type FilterOp string

const (
	FilterEq       FilterOp = "eq"
	FilterNeq      FilterOp = "neq"
	FilterContains FilterOp = "contains"
	FilterGt       FilterOp = "gt"
	FilterGte      FilterOp = "gte"
	FilterLt       FilterOp = "lt"
	FilterLte      FilterOp = "lte"
	FilterIn       FilterOp = "in"
)

// Filter narrows a content query. Field is either a built-in column
// (title, slug, created_at, updated_at, published_at) or "data." followed
// by a JSONPath into the item data.
type Filter struct {
	Field string   `json:"field" validate:"required,max=200"`
	Op    FilterOp `json:"op" validate:"omitempty,oneof=eq neq contains gt gte lt lte in"`
	Value any      `json:"value"`
}

// ContentQuery selects, filters, orders and limits the content items
// bound into a widget. A nil ContentTypeID marks a static widget.
type ContentQuery struct {
	ContentTypeID  *uuid.UUID    `json:"content_type_id,omitempty"`
	Limit          int           `json:"limit,omitempty" validate:"gte=0"`
	OrderBy        string        `json:"order_by,omitempty" validate:"max=200"`
	OrderDirection SortDirection `json:"order_direction,omitempty" validate:"omitempty,oneof=asc desc"`
	Filters        []Filter      `json:"filters,omitempty" validate:"dive"`
}
