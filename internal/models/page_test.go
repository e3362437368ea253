package models

import (
	"testing"

	"github.com/google/uuid"
)

func samplePage() *Page {
	sid := uuid.New()
	return &Page{
		ID:     uuid.New(),
		Title:  "Home",
		Status: PageStatusDraft,
		Sections: []Section{{
			ID:       sid,
			Type:     "hero",
			Settings: map[string]any{"tone": "dark"},
			Widgets: []Widget{{
				ID:         uuid.New(),
				SectionID:  sid,
				Definition: "heading",
				Fields:     map[string]any{"text": "Hello"},
				Query:      &ContentQuery{Limit: 3, Filters: []Filter{{Field: "title", Value: "x"}}},
			}},
		}},
	}
}

func TestPageIsPublished(t *testing.T) {
	p := &Page{Status: PageStatusPublished}
	if !p.IsPublished() {
		t.Error("published page should report IsPublished")
	}
	p.Status = PageStatusDraft
	if p.IsPublished() {
		t.Error("draft page should not report IsPublished")
	}
}

// TestPageCloneIsDeep ensures edits on a clone never leak into the original
// document, which the editor relies on to keep its state after a failed save.
func TestPageCloneIsDeep(t *testing.T) {
	orig := samplePage()
	c := orig.Clone()

	c.Title = "Changed"
	c.Sections[0].Settings["tone"] = "light"
	c.Sections[0].Widgets[0].Fields["text"] = "Bye"
	c.Sections[0].Widgets[0].Query.Limit = 10
	c.Sections[0].Widgets[0].Query.Filters[0].Value = "y"
	c.Sections[0].Widgets = append(c.Sections[0].Widgets, Widget{ID: uuid.New()})

	if orig.Title != "Home" {
		t.Errorf("title leaked: %q", orig.Title)
	}
	if orig.Sections[0].Settings["tone"] != "dark" {
		t.Error("section settings leaked into original")
	}
	w := orig.Sections[0].Widgets
	if len(w) != 1 {
		t.Fatalf("widget slice leaked: len %d", len(w))
	}
	if w[0].Fields["text"] != "Hello" {
		t.Error("widget fields leaked into original")
	}
	if w[0].Query.Limit != 3 || w[0].Query.Filters[0].Value != "x" {
		t.Error("widget query leaked into original")
	}
}

func TestPageFindSectionAndWidget(t *testing.T) {
	p := samplePage()
	sid := p.Sections[0].ID
	wid := p.Sections[0].Widgets[0].ID

	if s := p.FindSection(sid); s == nil || s.Type != "hero" {
		t.Errorf("FindSection: got %+v", s)
	}
	if s := p.FindSection(uuid.New()); s != nil {
		t.Error("FindSection should return nil for unknown id")
	}

	s, w := p.FindWidget(wid)
	if s == nil || w == nil || s.ID != sid || w.Definition != "heading" {
		t.Errorf("FindWidget: got %v %v", s, w)
	}
	if s, w := p.FindWidget(uuid.New()); s != nil || w != nil {
		t.Error("FindWidget should return nils for unknown id")
	}
}

func TestStyleAttrsHandles(t *testing.T) {
	tests := []struct {
		in   ResizePolicy
		want ResizePolicy
	}{
		{"", ResizeAll},
		{"bogus", ResizeAll},
		{ResizeSE, ResizeSE},
		{ResizeNone, ResizeNone},
	}
	for _, tt := range tests {
		if got := (StyleAttrs{ResizeHandles: tt.in}).Handles(); got != tt.want {
			t.Errorf("Handles(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSectionTypeAllowsWidget(t *testing.T) {
	st := &SectionType{AllowsWidgets: true, AllowedWidgets: []string{"heading"}}
	if !st.AllowsWidget("heading") {
		t.Error("heading should be allowed")
	}
	if st.AllowsWidget("gallery") {
		t.Error("gallery should not be allowed")
	}
	st.AllowedWidgets = nil
	if !st.AllowsWidget("gallery") {
		t.Error("empty allow-list should allow any widget")
	}
	st.AllowsWidgets = false
	if st.AllowsWidget("heading") {
		t.Error("section without widgets should allow none")
	}
}

func TestWidgetDefinitionAcceptsContentType(t *testing.T) {
	d := &WidgetDefinition{ContentTypes: []string{"article"}}
	if !d.AcceptsContentType("article") || d.AcceptsContentType("event") {
		t.Error("content type filter mismatch")
	}
	d.ContentTypes = nil
	if !d.AcceptsContentType("event") {
		t.Error("empty list should accept any type")
	}
}
