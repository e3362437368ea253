// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"pagecraft/internal/cache"
	"pagecraft/internal/grid"
	"pagecraft/internal/liveedit"
	"pagecraft/internal/reconcile"
	"pagecraft/internal/store"
	"pagecraft/internal/theme"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

// errorResponse is the body of every API error.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

// writeError sends a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// uuidParam parses a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	var verr *reconcile.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSlugTaken),
		errors.Is(err, store.ErrDefinitionInUse),
		errors.Is(err, cache.ErrLocked),
		errors.Is(err, liveedit.ErrSaveInProgress),
		errors.Is(err, grid.ErrOrderMismatch):
		return http.StatusConflict
	case isTransient(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// isTransient reports errors worth retrying: unavailable theme storage,
// timeouts and dropped database connections.
func isTransient(err error) bool {
	return errors.Is(err, theme.ErrStorageUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err)
}

// fail writes the error response matching err. Server-side failures are
// logged with the operation name.
func fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
		writeError(w, status, http.StatusText(status))
		return
	}
	var verr *reconcile.Error
	if errors.As(err, &verr) {
		writeJSON(w, status, errorResponse{Error: reconcile.ErrValidation.Error(), Problems: verr.Problems})
		return
	}
	writeError(w, status, err.Error())
}
