// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package grid implements the 12-column layout rules shared by sections
// (page grid) and widgets (their section's grid): rectangle
// normalization, contiguous ordering and handle-constrained resizing.
// Overlapping rectangles are permitted; only the column bounds are enforced.
package grid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pagecraft/internal/models"
)

// Columns is the width of every grid in columns.
const Columns = 12

// ErrOrderMismatch is returned by Reorder when the requested order is not
// a permutation of the existing ids.
var ErrOrderMismatch = errors.New("order mismatch")

// Normalize clamps a rectangle into the grid: x in [0,11], w in [1,12],
// y >= 0, h >= 1. When x+w still overflows, x is kept and w shrinks.
func Normalize(r models.GridRect) models.GridRect {
	r.X = clamp(r.X, 0, Columns-1)
	r.W = clamp(r.W, 1, Columns)
	if r.X+r.W > Columns {
		r.W = Columns - r.X
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.H < 1 {
		r.H = 1
	}
	return r
}

// Valid reports whether r already satisfies the grid invariants.
func Valid(r models.GridRect) bool {
	return Normalize(r) == r
}

// Reorder assigns contiguous zero-based positions following newOrder.
// newOrder must contain every id exactly once.
func Reorder(ids, newOrder []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(ids) != len(newOrder) {
		return nil, fmt.Errorf("%w: got %d ids, want %d", ErrOrderMismatch, len(newOrder), len(ids))
	}

	known := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	positions := make(map[uuid.UUID]int, len(newOrder))
	for i, id := range newOrder {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown id %s", ErrOrderMismatch, id)
		}
		if _, dup := positions[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrOrderMismatch, id)
		}
		positions[id] = i
	}
	return positions, nil
}

// SameOrder reports whether two id sequences are identical.
func SameOrder(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Delta is a resize request in grid units. DX and DY move the west and
// north edges and only apply under the "all" policy.
type Delta struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
	DW int `json:"dw"`
	DH int `json:"dh"`
}

// ApplyResize applies delta to r along the axes the handle policy allows.
// With the "none" policy or a locked position the delta is dropped and r
// is returned unchanged. The result is normalized.
func ApplyResize(r models.GridRect, policy models.ResizePolicy, locked bool, d Delta) models.GridRect {
	if locked || policy == models.ResizeNone {
		return r
	}

	switch policy {
	case models.ResizeSE:
		r.W += d.DW
		r.H += d.DH
	case models.ResizeE:
		r.W += d.DW
	case models.ResizeS:
		r.H += d.DH
	case models.ResizeAll, "":
		r.X += d.DX
		r.Y += d.DY
		r.W += d.DW
		r.H += d.DH
	default:
		// Unknown policies behave like "none".
		return r
	}
	return Normalize(r)
}

// Compact returns ids paired with contiguous positions in the given order.
func Compact(ids []uuid.UUID) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		out[id] = i
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
