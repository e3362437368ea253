// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package liveedit implements the message protocol between the editing
// shell and the rendering surface. Both sides exchange self-contained JSON
// envelopes over a best-effort channel: there are no acknowledgements and
// no ordering guarantees across message types, so every message either
// carries the full state it describes or is an idempotent request.
package liveedit

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
)

// Type names a message in the protocol vocabulary.
type Type string

const (
	TypeHover                  Type = "hover"
	TypeSelect                 Type = "select"
	TypeClearSelection         Type = "clear-selection"
	TypeZoomChanged            Type = "zoom-changed"
	TypeAddSection             Type = "add-section"
	TypeEditSectionRequested   Type = "edit-section-requested"
	TypeDeleteSectionRequested Type = "delete-section-requested"
	TypeReorderSections        Type = "reorder-sections"
	TypeAddWidget              Type = "add-widget"
	TypeEditWidgetRequested    Type = "edit-widget-requested"
	TypeDeleteWidgetRequested  Type = "delete-widget-requested"
	TypeReorderWidgets         Type = "reorder-widgets"
	TypeConfirmDelete          Type = "confirm-delete"
	TypeCancelDelete           Type = "cancel-delete"
	TypeReorderRejected        Type = "reorder-rejected"
	TypeDocumentChanged        Type = "document-changed"

	TypeResize        Type = "resize"
	TypeUpdateSection Type = "update-section"
	TypeUpdateWidget  Type = "update-widget"
	TypeProperties    Type = "properties"
	TypeSaveState     Type = "save-state"
)

// Level is the depth of a node in the page document.
type Level string

const (
	LevelPage    Level = "page"
	LevelSection Level = "section"
	LevelWidget  Level = "widget"
)

// depth orders levels from least to most specific. Unknown levels are 0.
func (l Level) depth() int {
	switch l {
	case LevelPage:
		return 1
	case LevelSection:
		return 2
	case LevelWidget:
		return 3
	}
	return 0
}

// Hover reports the element under the pointer. A zero Level means the
// pointer left every element.
type Hover struct {
	Level Level     `json:"level,omitempty" validate:"omitempty,oneof=page section widget"`
	ID    uuid.UUID `json:"id" validate:"required_with=Level"`
}

// Select reports a clicked element.
type Select struct {
	Level    Level             `json:"level" validate:"required,oneof=page section widget"`
	ID       uuid.UUID         `json:"id" validate:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ClearSelection has no payload.
type ClearSelection struct{}

// ZoomChanged carries the surface zoom factor.
type ZoomChanged struct {
	Zoom float64 `json:"zoom" validate:"gt=0,lte=5"`
}

// AddSection asks for a new section of Type. A nil Position appends.
type AddSection struct {
	Type     string `json:"type" validate:"required,max=100"`
	Position *int   `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// AddWidget asks for a new widget inside SectionID. A nil Position appends.
type AddWidget struct {
	SectionID  uuid.UUID `json:"sectionId" validate:"required"`
	Definition string    `json:"definition" validate:"required,max=100"`
	Position   *int      `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// NodeRef names one section or widget. It is the payload of the edit and
// delete requests.
type NodeRef struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

// ReorderSections carries the complete new section order of the page.
type ReorderSections struct {
	OrderedIDs []uuid.UUID `json:"orderedIds" validate:"required,min=1,dive,required"`
}

// ReorderWidgets carries the complete new widget order of one section.
type ReorderWidgets struct {
	SectionID  uuid.UUID   `json:"sectionId" validate:"required"`
	OrderedIDs []uuid.UUID `json:"orderedIds" validate:"required,min=1,dive,required"`
}

// DeleteDecision confirms or cancels a pending delete request.
type DeleteDecision struct {
	Level Level     `json:"level" validate:"required,oneof=section widget"`
	ID    uuid.UUID `json:"id" validate:"required"`
}

// ReorderRejected tells the surface to restore OrderedIDs, the order the
// document still has. SectionID is set for widget reorders.
type ReorderRejected struct {
	Level      Level       `json:"level" validate:"required,oneof=section widget"`
	SectionID  uuid.UUID   `json:"sectionId,omitempty"`
	OrderedIDs []uuid.UUID `json:"orderedIds"`
	Reason     string      `json:"reason,omitempty"`
}

// DocumentChanged announces a new revision of the working document.
type DocumentChanged struct {
	PageID   uuid.UUID `json:"pageId" validate:"required"`
	Revision int64     `json:"revision" validate:"gte=0"`
	Dirty    bool      `json:"dirty"`
}

// Resize applies a grid delta through the node's resize handles.
type Resize struct {
	Level Level      `json:"level" validate:"required,oneof=section widget"`
	ID    uuid.UUID  `json:"id" validate:"required"`
	Delta grid.Delta `json:"delta"`
}

// UpdateSection replaces the non-nil attributes of a section.
type UpdateSection struct {
	ID            uuid.UUID          `json:"id" validate:"required"`
	Settings      map[string]any     `json:"settings,omitempty"`
	Style         *models.StyleAttrs `json:"style,omitempty"`
	AllowsWidgets *bool              `json:"allowsWidgets,omitempty"`
}

// UpdateWidget replaces the non-nil attributes of a widget.
type UpdateWidget struct {
	ID       uuid.UUID            `json:"id" validate:"required"`
	Fields   map[string]any       `json:"fields,omitempty"`
	Settings map[string]any       `json:"settings,omitempty"`
	Style    *models.StyleAttrs   `json:"style,omitempty"`
	Query    *models.ContentQuery `json:"query,omitempty"`
}

// Properties describes the selected node for the shell's properties panel.
type Properties struct {
	Level          Level                `json:"level"`
	ID             uuid.UUID            `json:"id"`
	Type           string               `json:"type,omitempty"`
	Name           string               `json:"name,omitempty"`
	Fields         []models.FieldSchema `json:"fields,omitempty"`
	Settings       []models.FieldSchema `json:"settings,omitempty"`
	Values         map[string]any       `json:"values,omitempty"`
	SettingsValues map[string]any       `json:"settingsValues,omitempty"`
	Style          models.StyleAttrs    `json:"style"`
	Grid           models.GridRect      `json:"grid"`
}

// SaveState tells the shell whether a save is running so it can disable
// its save trigger.
type SaveState struct {
	InFlight bool   `json:"inFlight"`
	Error    string `json:"error,omitempty"`
}

// payloads maps every type to a constructor of its payload.
var payloads = map[Type]func() any{
	TypeHover:                  func() any { return &Hover{} },
	TypeSelect:                 func() any { return &Select{} },
	TypeClearSelection:         func() any { return &ClearSelection{} },
	TypeZoomChanged:            func() any { return &ZoomChanged{} },
	TypeAddSection:             func() any { return &AddSection{} },
	TypeEditSectionRequested:   func() any { return &NodeRef{} },
	TypeDeleteSectionRequested: func() any { return &NodeRef{} },
	TypeReorderSections:        func() any { return &ReorderSections{} },
	TypeAddWidget:              func() any { return &AddWidget{} },
	TypeEditWidgetRequested:    func() any { return &NodeRef{} },
	TypeDeleteWidgetRequested:  func() any { return &NodeRef{} },
	TypeReorderWidgets:         func() any { return &ReorderWidgets{} },
	TypeConfirmDelete:          func() any { return &DeleteDecision{} },
	TypeCancelDelete:           func() any { return &DeleteDecision{} },
	TypeReorderRejected:        func() any { return &ReorderRejected{} },
	TypeDocumentChanged:        func() any { return &DocumentChanged{} },
	TypeResize:                 func() any { return &Resize{} },
	TypeUpdateSection:          func() any { return &UpdateSection{} },
	TypeUpdateWidget:           func() any { return &UpdateWidget{} },
	TypeProperties:             func() any { return &Properties{} },
	TypeSaveState:              func() any { return &SaveState{} },
}

// ErrMalformed is returned by Decode for envelopes that cannot be used.
// Receivers log and drop such messages.
var ErrMalformed = errors.New("malformed message")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Message is a decoded envelope. Payload holds a value of the type's
// payload struct, e.g. Select for TypeSelect.
type Message struct {
	Type    Type
	Payload any
}

type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a message.
func New(t Type, payload any) Message {
	return Message{Type: t, Payload: payload}
}

// MarshalJSON encodes the {type, payload} envelope.
func (m Message) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if m.Payload != nil {
		b, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", m.Type, err)
		}
		raw = b
	}
	return json.Marshal(envelope{Type: m.Type, Payload: raw})
}

// Decode parses and validates one envelope. Unknown types, undecodable
// payloads and payloads failing validation all yield ErrMalformed.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	newPayload, ok := payloads[env.Type]
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}

	p := newPayload()
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, p); err != nil {
			return Message{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
		}
	}
	if err := validate.Struct(p); err != nil {
		return Message{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return Message{Type: env.Type, Payload: reflect.ValueOf(p).Elem().Interface()}, nil
}

// Encode marshals m.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}
