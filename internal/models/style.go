// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// ResizePolicy controls which resize handles the editor exposes for a
// section or widget.
type ResizePolicy string

const (
	ResizeAll  ResizePolicy = "all"
	ResizeSE   ResizePolicy = "se"
	ResizeE    ResizePolicy = "e"
	ResizeS    ResizePolicy = "s"
	ResizeNone ResizePolicy = "none"
)

// Valid reports whether p is one of the known policies.
func (p ResizePolicy) Valid() bool {
	switch p {
	case ResizeAll, ResizeSE, ResizeE, ResizeS, ResizeNone:
		return true
	}
	return false
}

// Sides holds per-side spacing values in CSS shorthand order:
// top, right, bottom, left. Empty strings mean the side is unset.
type Sides [4]string

// IsZero returns true if no side has a value.
func (s Sides) IsZero() bool {
	return s == Sides{}
}

// StyleAttrs are the structured style attributes shared by sections and
// widgets. Values are operator input and must pass through the style
// composer before reaching markup.
type StyleAttrs struct {
	BackgroundColor string       `json:"background_color,omitempty"`
	Padding         Sides        `json:"padding"`
	Margin          Sides        `json:"margin"`
	CSSClasses      string       `json:"css_classes,omitempty"`
	ColSpan         string       `json:"col_span,omitempty"`
	ColOffset       string       `json:"col_offset,omitempty"`
	MinWidth        string       `json:"min_width,omitempty"`
	MaxWidth        string       `json:"max_width,omitempty"`
	MinHeight       string       `json:"min_height,omitempty"`
	MaxHeight       string       `json:"max_height,omitempty"`
	ResizeHandles   ResizePolicy `json:"resize_handles,omitempty"`
	LockedPosition  bool         `json:"locked_position"`
}

// Handles returns the effective resize policy, defaulting to "all".
func (s StyleAttrs) Handles() ResizePolicy {
	if s.ResizeHandles == "" || !s.ResizeHandles.Valid() {
		return ResizeAll
	}
	return s.ResizeHandles
}
