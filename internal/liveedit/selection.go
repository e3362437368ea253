// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package liveedit

import (
	"github.com/google/uuid"
)

// Node identifies a document element found on the pointer path. Type and
// Parent come from the element's data-pc-type and data-pc-parent attributes.
type Node struct {
	Level  Level     `json:"level"`
	ID     uuid.UUID `json:"id"`
	Type   string    `json:"type,omitempty"`
	Parent uuid.UUID `json:"parent,omitempty"`
}

// IsZero reports whether n names no element.
func (n Node) IsZero() bool {
	return n.Level == "" && n.ID == uuid.Nil
}

func (n Node) same(o Node) bool {
	return n.Level == o.Level && n.ID == o.ID
}

// State is one state of the selection machine, e.g. "widget-hover".
type State struct {
	Level    Level
	Selected bool
}

func (s State) String() string {
	if s.Level == "" {
		return "none"
	}
	if s.Selected {
		return string(s.Level) + "-selected"
	}
	return string(s.Level) + "-hover"
}

// AffordanceKind is the reordering interaction enabled by the selection.
type AffordanceKind string

const (
	AffordanceNone            AffordanceKind = "none"
	AffordanceReorderSections AffordanceKind = "reorder-sections"
	AffordanceReorderWidgets  AffordanceKind = "reorder-widgets"
)

// Affordance is the single active reordering affordance. Scope is the page
// id for section reordering and the section id for widget reordering.
type Affordance struct {
	Kind  AffordanceKind
	Scope uuid.UUID
}

// Allows reports whether nodes of level may be reordered within scope.
func (a Affordance) Allows(level Level, scope uuid.UUID) bool {
	switch level {
	case LevelSection:
		return a.Kind == AffordanceReorderSections && a.Scope == scope
	case LevelWidget:
		return a.Kind == AffordanceReorderWidgets && a.Scope == scope
	}
	return false
}

// Selection tracks what the pointer hovers and what was clicked. It turns
// pointer and keyboard input into protocol messages and emits nothing for
// transitions that do not change its state. The zero value is ready to use.
type Selection struct {
	hovered  Node
	selected Node
}

// State reports the visible state. A selection wins over a hover.
func (s *Selection) State() State {
	if !s.selected.IsZero() {
		return State{Level: s.selected.Level, Selected: true}
	}
	if !s.hovered.IsZero() {
		return State{Level: s.hovered.Level}
	}
	return State{}
}

// Selected returns the selected node, zero when nothing is selected.
func (s *Selection) Selected() Node { return s.selected }

// Hovered returns the hovered node, zero when nothing is hovered.
func (s *Selection) Hovered() Node { return s.hovered }

// Enter handles the pointer entering an element. path lists the document
// nodes under the pointer; the most specific one is the target.
func (s *Selection) Enter(path []Node) []Message {
	target, ok := deepest(path)
	if !ok {
		return nil
	}
	if target.same(s.selected) {
		if s.hovered.IsZero() {
			return nil
		}
		s.hovered = Node{}
		return []Message{New(TypeHover, Hover{})}
	}
	if target.same(s.hovered) {
		return nil
	}
	s.hovered = target
	return []Message{New(TypeHover, Hover{Level: target.Level, ID: target.ID})}
}

// Leave handles the pointer leaving the document elements. A selection
// stays in place.
func (s *Selection) Leave() []Message {
	if s.hovered.IsZero() {
		return nil
	}
	s.hovered = Node{}
	return []Message{New(TypeHover, Hover{})}
}

// Click selects the most specific node on path. Clicks that land inside an
// interactive child such as a link or form control do not select.
func (s *Selection) Click(path []Node, interactive bool) []Message {
	if interactive {
		return nil
	}
	target, ok := deepest(path)
	if !ok || target.same(s.selected) {
		return nil
	}
	s.selected = target
	s.hovered = Node{}

	meta := map[string]string{}
	if target.Type != "" {
		meta["type"] = target.Type
	}
	if target.Parent != uuid.Nil {
		meta["parent"] = target.Parent.String()
	}
	if len(meta) == 0 {
		meta = nil
	}
	return []Message{New(TypeSelect, Select{Level: target.Level, ID: target.ID, Metadata: meta})}
}

// Escape collapses the machine to none.
func (s *Selection) Escape() []Message {
	if s.selected.IsZero() && s.hovered.IsZero() {
		return nil
	}
	s.selected = Node{}
	s.hovered = Node{}
	return []Message{New(TypeClearSelection, ClearSelection{})}
}

// Apply mirrors a selection message produced elsewhere and reports whether
// it changed the state. Duplicates and unrelated messages return false.
func (s *Selection) Apply(m Message) bool {
	switch p := m.Payload.(type) {
	case Hover:
		n := Node{Level: p.Level, ID: p.ID}
		if n.same(s.hovered) {
			return false
		}
		s.hovered = n
		return true
	case Select:
		n := Node{Level: p.Level, ID: p.ID, Type: p.Metadata["type"]}
		if n.same(s.selected) {
			return false
		}
		s.selected = n
		s.hovered = Node{}
		return true
	case ClearSelection:
		if s.selected.IsZero() && s.hovered.IsZero() {
			return false
		}
		s.selected = Node{}
		s.hovered = Node{}
		return true
	}
	return false
}

// Forget drops id from the selection, used when the node was deleted.
func (s *Selection) Forget(id uuid.UUID) {
	if s.selected.ID == id {
		s.selected = Node{}
	}
	if s.hovered.ID == id {
		s.hovered = Node{}
	}
}

// Affordance reports the reordering interaction for the current selection.
func (s *Selection) Affordance() Affordance {
	switch s.selected.Level {
	case LevelPage:
		return Affordance{Kind: AffordanceReorderSections, Scope: s.selected.ID}
	case LevelSection:
		return Affordance{Kind: AffordanceReorderWidgets, Scope: s.selected.ID}
	}
	return Affordance{Kind: AffordanceNone}
}

// deepest returns the most specific valid node on path.
func deepest(path []Node) (Node, bool) {
	var best Node
	for _, n := range path {
		if n.ID == uuid.Nil || n.Level.depth() == 0 {
			continue
		}
		if n.Level.depth() >= best.Level.depth() {
			best = n
		}
	}
	return best, !best.IsZero()
}
