// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store holds the PostgreSQL-backed repositories for pages,
// widget definitions, themes and content. Lookups return (nil, nil) when
// a row does not exist; mutations of a missing row return ErrNotFound.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a mutation targets a missing row.
	ErrNotFound = errors.New("not found")
	// ErrDefinitionInUse is returned when deleting a widget definition
	// that widgets still reference.
	ErrDefinitionInUse = errors.New("widget definition is in use")
	// ErrSlugTaken is returned when a page slug collides with another page.
	ErrSlugTaken = errors.New("slug already in use")
)

// PostgreSQL error codes checked by the stores.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// jsonArg encodes v for a JSONB parameter. A nil map or slice is stored
// as the column's empty value rather than SQL NULL.
func jsonArg(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// jsonScan decodes a JSONB column into dst. Empty input leaves dst alone.
func jsonScan(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
