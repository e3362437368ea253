// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package liveedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
)

// ErrSaveInProgress is returned when a save starts while another one for
// the same document has not finished.
var ErrSaveInProgress = errors.New("save already in progress")

// Persister stores reorders immediately, outside a full document save.
type Persister interface {
	ReorderSections(ctx context.Context, pageID uuid.UUID, ordered []uuid.UUID) error
	ReorderWidgets(ctx context.Context, sectionID uuid.UUID, ordered []uuid.UUID) error
}

// Saver persists a whole page document and returns the stored version.
type Saver interface {
	SaveDocument(ctx context.Context, page *models.Page) (*models.Page, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, page *models.Page) (*models.Page, error)

// SaveDocument calls f.
func (f SaverFunc) SaveDocument(ctx context.Context, page *models.Page) (*models.Page, error) {
	return f(ctx, page)
}

// Schema is the set of section types and widget definitions the session
// can create and describe.
type Schema struct {
	SectionTypes map[string]models.SectionType
	Widgets      map[string]models.WidgetDefinition
}

// SaveGuard makes a save exclusive with itself.
type SaveGuard struct {
	inFlight atomic.Bool
}

// TryAcquire claims the guard, returning false when a save is running.
func (g *SaveGuard) TryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *SaveGuard) Release() {
	g.inFlight.Store(false)
}

// InFlight reports whether a save is running.
func (g *SaveGuard) InFlight() bool {
	return g.inFlight.Load()
}

// Session is the shell-side coordinator of one page being edited. It owns
// the working document: mutation messages change it in memory, reorders of
// already stored nodes are persisted at once, and everything else waits for
// an explicit Save.
type Session struct {
	mu        sync.Mutex
	doc       *models.Page
	stored    map[uuid.UUID][]uuid.UUID // persisted child order per page or section id
	schema    Schema
	persister Persister
	sel       Selection
	pending   map[uuid.UUID]Level // delete requests awaiting confirmation
	dirty     bool
	revision  int64
	zoom      float64
	guard     SaveGuard
}

// NewSession starts a session over a copy of page, which must be the
// stored version.
func NewSession(page *models.Page, schema Schema, persister Persister) *Session {
	doc := page.Clone()
	return &Session{
		doc:       doc,
		stored:    storedOrders(doc),
		schema:    schema,
		persister: persister,
		pending:   make(map[uuid.UUID]Level),
		zoom:      1,
	}
}

// PageID returns the id of the edited page.
func (s *Session) PageID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// Document returns a copy of the working document.
func (s *Session) Document() *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Dirty reports whether the working document has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Revision increments with every change to the working document.
func (s *Session) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Selected returns the node the shell currently shows properties for.
func (s *Session) Selected() Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Selected()
}

// Zoom returns the last reported surface zoom.
func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Guard exposes the save guard so callers can report save state.
func (s *Session) Guard() *SaveGuard { return &s.guard }

// Handle applies one inbound message and returns the messages it causes.
// Messages that do not apply to the current document are logged and
// ignored.
func (s *Session) Handle(ctx context.Context, m Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch p := m.Payload.(type) {
	case Hover:
		return nil
	case Select:
		if !s.sel.Apply(m) {
			return nil
		}
		return s.describe(Node{Level: p.Level, ID: p.ID})
	case ClearSelection:
		s.sel.Apply(m)
		return nil
	case ZoomChanged:
		s.zoom = p.Zoom
		return nil
	case AddSection:
		return s.addSection(p)
	case AddWidget:
		return s.addWidget(p)
	case NodeRef:
		return s.nodeRequest(m.Type, p.ID)
	case DeleteDecision:
		return s.decide(m.Type, p)
	case ReorderSections:
		return s.reorderSections(ctx, p)
	case ReorderWidgets:
		return s.reorderWidgets(ctx, p)
	case Resize:
		return s.resize(p)
	case UpdateSection:
		return s.updateSection(p)
	case UpdateWidget:
		return s.updateWidget(p)
	}
	return nil
}

// Save persists the working document through saver. Only one save runs at
// a time; a second call returns ErrSaveInProgress. On failure the working
// document is kept as it was so the operator can retry.
func (s *Session) Save(ctx context.Context, saver Saver) ([]Message, error) {
	if !s.guard.TryAcquire() {
		return nil, ErrSaveInProgress
	}
	defer s.guard.Release()

	s.mu.Lock()
	snapshot := s.doc.Clone()
	rev := s.revision
	s.mu.Unlock()

	saved, err := saver.SaveDocument(ctx, snapshot)
	if err != nil {
		return []Message{New(TypeSaveState, SaveState{Error: err.Error()})}, fmt.Errorf("save page %s: %w", snapshot.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = storedOrders(saved)
	if s.revision == rev {
		s.doc = saved.Clone()
		s.dirty = false
	}
	s.revision++
	slog.Info("page saved", "page_id", saved.ID, "revision", s.revision, "dirty", s.dirty)
	return []Message{New(TypeSaveState, SaveState{}), s.changed()}, nil
}

func (s *Session) changed() Message {
	return New(TypeDocumentChanged, DocumentChanged{PageID: s.doc.ID, Revision: s.revision, Dirty: s.dirty})
}

func (s *Session) touch() []Message {
	s.dirty = true
	s.revision++
	return []Message{s.changed()}
}

func (s *Session) addSection(p AddSection) []Message {
	st, ok := s.schema.SectionTypes[p.Type]
	if !ok {
		slog.Warn("add-section: unknown section type", "page_id", s.doc.ID, "type", p.Type)
		return nil
	}
	sec := models.Section{
		ID:            uuid.New(),
		PageID:        s.doc.ID,
		Type:          st.Slug,
		Grid:          grid.Normalize(st.DefaultGrid),
		AllowsWidgets: st.AllowsWidgets,
		Settings:      defaults(st.Settings),
		Widgets:       []models.Widget{},
	}
	at := insertAt(p.Position, len(s.doc.Sections))
	s.doc.Sections = append(s.doc.Sections[:at], append([]models.Section{sec}, s.doc.Sections[at:]...)...)
	for i := range s.doc.Sections {
		s.doc.Sections[i].Position = i
	}
	slog.Debug("section added", "page_id", s.doc.ID, "section_id", sec.ID, "type", sec.Type)
	return s.touch()
}

func (s *Session) addWidget(p AddWidget) []Message {
	sec := s.doc.FindSection(p.SectionID)
	if sec == nil {
		slog.Warn("add-widget: unknown section", "page_id", s.doc.ID, "section_id", p.SectionID)
		return nil
	}
	if st, ok := s.schema.SectionTypes[sec.Type]; ok && !st.AllowsWidget(p.Definition) {
		slog.Warn("add-widget: not allowed in section", "section_id", sec.ID, "definition", p.Definition)
		return nil
	}
	if !sec.AllowsWidgets {
		slog.Warn("add-widget: section takes no widgets", "section_id", sec.ID)
		return nil
	}
	def, ok := s.schema.Widgets[p.Definition]
	if !ok {
		slog.Warn("add-widget: unknown widget definition", "section_id", sec.ID, "definition", p.Definition)
		return nil
	}
	w := models.Widget{
		ID:         uuid.New(),
		SectionID:  sec.ID,
		Definition: def.Slug,
		Grid:       grid.Normalize(models.GridRect{W: grid.Columns, H: 1}),
		Fields:     defaults(def.Fields),
		Settings:   defaults(def.Settings),
	}
	at := insertAt(p.Position, len(sec.Widgets))
	sec.Widgets = append(sec.Widgets[:at], append([]models.Widget{w}, sec.Widgets[at:]...)...)
	for i := range sec.Widgets {
		sec.Widgets[i].Position = i
	}
	slog.Debug("widget added", "section_id", sec.ID, "widget_id", w.ID, "definition", w.Definition)
	return s.touch()
}

// nodeRequest handles the edit and delete requests.
func (s *Session) nodeRequest(t Type, id uuid.UUID) []Message {
	level := LevelSection
	if t == TypeEditWidgetRequested || t == TypeDeleteWidgetRequested {
		level = LevelWidget
	}
	if !s.exists(level, id) {
		slog.Warn("request for unknown node", "type", t, "level", level, "id", id)
		return nil
	}

	switch t {
	case TypeDeleteSectionRequested, TypeDeleteWidgetRequested:
		s.pending[id] = level
		slog.Debug("delete awaiting confirmation", "level", level, "id", id)
		return nil
	default:
		n := Node{Level: level, ID: id}
		s.sel.Apply(New(TypeSelect, Select{Level: level, ID: id}))
		return s.describe(n)
	}
}

func (s *Session) decide(t Type, p DeleteDecision) []Message {
	level, ok := s.pending[p.ID]
	if !ok || level != p.Level {
		slog.Warn("delete decision without a request", "type", t, "level", p.Level, "id", p.ID)
		return nil
	}
	delete(s.pending, p.ID)
	if t == TypeCancelDelete {
		return nil
	}

	switch p.Level {
	case LevelSection:
		kept := s.doc.Sections[:0]
		for _, sec := range s.doc.Sections {
			if sec.ID == p.ID {
				for _, w := range sec.Widgets {
					s.sel.Forget(w.ID)
					delete(s.pending, w.ID)
				}
				continue
			}
			kept = append(kept, sec)
		}
		s.doc.Sections = kept
		for i := range s.doc.Sections {
			s.doc.Sections[i].Position = i
		}
	case LevelWidget:
		sec, _ := s.doc.FindWidget(p.ID)
		if sec == nil {
			return nil
		}
		kept := sec.Widgets[:0]
		for _, w := range sec.Widgets {
			if w.ID != p.ID {
				kept = append(kept, w)
			}
		}
		sec.Widgets = kept
		for i := range sec.Widgets {
			sec.Widgets[i].Position = i
		}
	}
	s.sel.Forget(p.ID)
	slog.Info("node deleted from working document", "page_id", s.doc.ID, "level", p.Level, "id", p.ID)
	return s.touch()
}

func (s *Session) reorderSections(ctx context.Context, p ReorderSections) []Message {
	current := make([]uuid.UUID, len(s.doc.Sections))
	for i, sec := range s.doc.Sections {
		current[i] = sec.ID
	}
	aff := Affordance{Kind: AffordanceReorderSections, Scope: s.doc.ID}
	order, out, ok := s.reorder(ctx, aff, current, p.OrderedIDs)
	if !ok {
		return out
	}

	positions := grid.Compact(order)
	sorted := make([]models.Section, len(s.doc.Sections))
	for _, sec := range s.doc.Sections {
		sec.Position = positions[sec.ID]
		sorted[sec.Position] = sec
	}
	s.doc.Sections = sorted
	return append(out, s.changed())
}

func (s *Session) reorderWidgets(ctx context.Context, p ReorderWidgets) []Message {
	sec := s.doc.FindSection(p.SectionID)
	if sec == nil {
		slog.Warn("reorder-widgets: unknown section", "section_id", p.SectionID)
		return []Message{New(TypeReorderRejected, ReorderRejected{
			Level: LevelWidget, SectionID: p.SectionID, OrderedIDs: []uuid.UUID{}, Reason: "unknown section",
		})}
	}
	current := make([]uuid.UUID, len(sec.Widgets))
	for i, w := range sec.Widgets {
		current[i] = w.ID
	}
	aff := Affordance{Kind: AffordanceReorderWidgets, Scope: sec.ID}
	order, out, ok := s.reorder(ctx, aff, current, p.OrderedIDs)
	if !ok {
		return out
	}

	positions := grid.Compact(order)
	sorted := make([]models.Widget, len(sec.Widgets))
	for _, w := range sec.Widgets {
		w.Position = positions[w.ID]
		sorted[w.Position] = w
	}
	sec.Widgets = sorted
	return append(out, s.changed())
}

// reorder runs a requested order through a drag so a failed persist rolls
// back to the current order. It returns the accepted order and true when
// the document should change.
func (s *Session) reorder(ctx context.Context, aff Affordance, current, requested []uuid.UUID) ([]uuid.UUID, []Message, bool) {
	level := LevelSection
	var sectionID uuid.UUID
	if aff.Kind == AffordanceReorderWidgets {
		level, sectionID = LevelWidget, aff.Scope
	}
	reject := func(reason string, order []uuid.UUID) []Message {
		return []Message{New(TypeReorderRejected, ReorderRejected{
			Level: level, SectionID: sectionID, OrderedIDs: order, Reason: reason,
		})}
	}

	if !s.sel.Affordance().Allows(level, aff.Scope) {
		slog.Warn("reorder outside the selected scope", "level", level, "scope", aff.Scope, "selected", s.sel.Selected().Level)
		return nil, reject("reordering is not enabled by the current selection", current), false
	}

	d, err := BeginDrag(aff, current)
	if err != nil {
		return nil, reject(err.Error(), current), false
	}
	if err := d.Place(requested); err != nil {
		slog.Warn("reorder rejected", "level", level, "scope", aff.Scope, "error", err)
		return nil, reject(err.Error(), d.Cancel()), false
	}
	if _, changed := d.Drop(); !changed {
		return nil, nil, false
	}

	if s.persister != nil && sameSet(s.stored[aff.Scope], current) {
		if err := s.persist(ctx, aff, d.Order()); err != nil {
			slog.Error("persist reorder", "level", level, "scope", aff.Scope, "error", err)
			return nil, reject("could not save the new order", d.Rollback()), false
		}
		s.stored[aff.Scope] = d.Order()
		d.Commit()
		s.revision++
		return d.Order(), nil, true
	}

	// The scope holds unsaved changes; the order is stored with the next save.
	d.Commit()
	s.dirty = true
	s.revision++
	return d.Order(), nil, true
}

func (s *Session) persist(ctx context.Context, aff Affordance, order []uuid.UUID) error {
	if aff.Kind == AffordanceReorderWidgets {
		return s.persister.ReorderWidgets(ctx, aff.Scope, order)
	}
	return s.persister.ReorderSections(ctx, aff.Scope, order)
}

func (s *Session) resize(p Resize) []Message {
	var rect *models.GridRect
	var attrs models.StyleAttrs
	switch p.Level {
	case LevelSection:
		if sec := s.doc.FindSection(p.ID); sec != nil {
			rect, attrs = &sec.Grid, sec.Style
		}
	case LevelWidget:
		if _, w := s.doc.FindWidget(p.ID); w != nil {
			rect, attrs = &w.Grid, w.Style
		}
	}
	if rect == nil {
		slog.Warn("resize: unknown node", "level", p.Level, "id", p.ID)
		return nil
	}
	next := grid.ApplyResize(*rect, attrs.Handles(), attrs.LockedPosition, p.Delta)
	if next == *rect {
		return nil
	}
	*rect = next
	return s.touch()
}

func (s *Session) updateSection(p UpdateSection) []Message {
	sec := s.doc.FindSection(p.ID)
	if sec == nil {
		slog.Warn("update-section: unknown section", "id", p.ID)
		return nil
	}
	if p.Settings != nil {
		sec.Settings = p.Settings
	}
	if p.Style != nil {
		sec.Style = *p.Style
	}
	if p.AllowsWidgets != nil {
		sec.AllowsWidgets = *p.AllowsWidgets
	}
	return s.touch()
}

func (s *Session) updateWidget(p UpdateWidget) []Message {
	_, w := s.doc.FindWidget(p.ID)
	if w == nil {
		slog.Warn("update-widget: unknown widget", "id", p.ID)
		return nil
	}
	if p.Fields != nil {
		w.Fields = p.Fields
	}
	if p.Settings != nil {
		w.Settings = p.Settings
	}
	if p.Style != nil {
		w.Style = *p.Style
	}
	if p.Query != nil {
		w.Query = p.Query
	}
	return s.touch()
}

// describe builds the properties message for n.
func (s *Session) describe(n Node) []Message {
	props := Properties{Level: n.Level, ID: n.ID}
	switch n.Level {
	case LevelPage:
		if n.ID != s.doc.ID {
			return nil
		}
		props.Name = s.doc.Title
		props.Values = map[string]any{"title": s.doc.Title, "slug": s.doc.Slug, "status": string(s.doc.Status)}
	case LevelSection:
		sec := s.doc.FindSection(n.ID)
		if sec == nil {
			return nil
		}
		props.Type, props.Grid, props.Style = sec.Type, sec.Grid, sec.Style
		props.SettingsValues = sec.Settings
		if st, ok := s.schema.SectionTypes[sec.Type]; ok {
			props.Name = st.Name
			props.Settings = st.Settings
		}
	case LevelWidget:
		_, w := s.doc.FindWidget(n.ID)
		if w == nil {
			return nil
		}
		props.Type, props.Grid, props.Style = w.Definition, w.Grid, w.Style
		props.Values, props.SettingsValues = w.Fields, w.Settings
		if def, ok := s.schema.Widgets[w.Definition]; ok {
			props.Name = def.Name
			props.Fields, props.Settings = def.Fields, def.Settings
		}
	default:
		return nil
	}
	return []Message{New(TypeProperties, props)}
}

func (s *Session) exists(level Level, id uuid.UUID) bool {
	if level == LevelSection {
		return s.doc.FindSection(id) != nil
	}
	_, w := s.doc.FindWidget(id)
	return w != nil
}

// storedOrders records the child order of the page and of every section.
func storedOrders(page *models.Page) map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID, len(page.Sections)+1)
	sections := make([]uuid.UUID, len(page.Sections))
	for i, sec := range page.Sections {
		sections[i] = sec.ID
		widgets := make([]uuid.UUID, len(sec.Widgets))
		for j, w := range sec.Widgets {
			widgets[j] = w.ID
		}
		out[sec.ID] = widgets
	}
	out[page.ID] = sections
	return out
}

func sameSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uuid.UUID]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}

func insertAt(pos *int, n int) int {
	if pos == nil || *pos > n {
		return n
	}
	return *pos
}

// defaults returns the schema's default values keyed by field name.
func defaults(fields []models.FieldSchema) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}
