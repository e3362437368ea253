// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package liveedit

import (
	"errors"

	"github.com/google/uuid"

	"pagecraft/internal/grid"
)

// ErrNoAffordance is returned when a drag starts without an active
// reordering affordance.
var ErrNoAffordance = errors.New("no reordering affordance")

// ErrDragState is returned when a drag operation is called out of sequence.
var ErrDragState = errors.New("drag not in the expected state")

type dragState int

const (
	dragging dragState = iota
	dropped
	finished
)

// Drag is one optimistic reorder. Place only changes local order; Drop is
// the single point that yields a reorder message. After a drop the change
// is either committed or rolled back to the order captured at the start.
type Drag struct {
	aff      Affordance
	original []uuid.UUID
	order    []uuid.UUID
	state    dragState
}

// BeginDrag starts a drag over order within the affordance's scope.
func BeginDrag(aff Affordance, order []uuid.UUID) (*Drag, error) {
	if aff.Kind == AffordanceNone || aff.Kind == "" {
		return nil, ErrNoAffordance
	}
	return &Drag{
		aff:      aff,
		original: append([]uuid.UUID(nil), order...),
		order:    append([]uuid.UUID(nil), order...),
	}, nil
}

// Affordance returns the scope the drag reorders.
func (d *Drag) Affordance() Affordance { return d.aff }

// Order returns a copy of the current local order.
func (d *Drag) Order() []uuid.UUID {
	return append([]uuid.UUID(nil), d.order...)
}

// Original returns a copy of the order captured when the drag began.
func (d *Drag) Original() []uuid.UUID {
	return append([]uuid.UUID(nil), d.original...)
}

// Active reports whether the drag still accepts moves.
func (d *Drag) Active() bool { return d.state == dragging }

// Pending reports whether the drag was dropped and awaits its outcome.
func (d *Drag) Pending() bool { return d.state == dropped }

// Place replaces the local order in one step. order must be a permutation
// of the original ids.
func (d *Drag) Place(order []uuid.UUID) error {
	if d.state != dragging {
		return ErrDragState
	}
	if _, err := grid.Reorder(d.original, order); err != nil {
		return err
	}
	d.order = append([]uuid.UUID(nil), order...)
	return nil
}

// Drop ends the drag. It returns the reorder message and true when the
// order changed; an unchanged order finishes the drag without a message.
func (d *Drag) Drop() (Message, bool) {
	if d.state != dragging {
		return Message{}, false
	}
	if grid.SameOrder(d.original, d.order) {
		d.state = finished
		return Message{}, false
	}
	d.state = dropped
	if d.aff.Kind == AffordanceReorderWidgets {
		return New(TypeReorderWidgets, ReorderWidgets{SectionID: d.aff.Scope, OrderedIDs: d.Order()}), true
	}
	return New(TypeReorderSections, ReorderSections{OrderedIDs: d.Order()}), true
}

// Cancel abandons an active drag and returns the restored order. It never
// produces a message.
func (d *Drag) Cancel() []uuid.UUID {
	if d.state == dragging {
		d.order = d.Original()
		d.state = finished
	}
	return d.Order()
}

// Rollback restores the original order after the dropped change failed to
// persist.
func (d *Drag) Rollback() []uuid.UUID {
	if d.state == dropped {
		d.order = d.Original()
		d.state = finished
	}
	return d.Order()
}

// Commit accepts the dropped order.
func (d *Drag) Commit() {
	if d.state == dropped {
		d.state = finished
	}
}
