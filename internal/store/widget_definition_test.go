package store

import (
	"context"
	"errors"
	"testing"

	"pagecraft/internal/models"
)

func TestWidgetDefinitionSync(t *testing.T) {
	db := testDB(t)
	s := NewWidgetDefinitionStore(db)
	ctx := context.Background()
	slugs := testDefinitions(t, db, "card")

	def := models.WidgetDefinition{
		Slug: slugs["card"], Name: "Card v2", Theme: "test",
		Fields: []models.FieldSchema{
			{Name: "title", Kind: models.FieldText, Required: true},
			{Name: "size", Kind: models.FieldSelect, Default: "md", Options: []models.FieldOption{{Value: "sm"}, {Value: "md"}}},
		},
		ContentTypes: []string{"post"},
	}
	if n, err := s.Sync(ctx, []models.WidgetDefinition{def}); err != nil || n != 1 {
		t.Fatalf("Sync: %d, %v", n, err)
	}

	got, err := s.FindBySlug(ctx, def.Slug)
	if err != nil || got == nil {
		t.Fatalf("FindBySlug: %v, %v", got, err)
	}
	if got.Name != "Card v2" {
		t.Errorf("name not updated: %q", got.Name)
	}
	if len(got.Fields) != 2 || got.Fields[1].Default != "md" {
		t.Errorf("fields: %+v", got.Fields)
	}
	if !got.AcceptsContentType("post") || got.AcceptsContentType("event") {
		t.Errorf("content types: %v", got.ContentTypes)
	}

	if missing, _ := s.FindBySlug(ctx, "no-such-definition"); missing != nil {
		t.Error("expected nil for unknown slug")
	}
}

func TestWidgetDefinitionDeleteInUse(t *testing.T) {
	db := testDB(t)
	s := NewWidgetDefinitionStore(db)
	ctx := context.Background()
	slugs := testDefinitions(t, db, "used", "unused")
	p := testPage(t, db)

	doc := p.Clone()
	doc.Sections = []models.Section{{Type: "hero", AllowsWidgets: true, Widgets: []models.Widget{
		{Definition: slugs["used"]},
	}}}
	if _, err := NewPageStore(db).SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	if n, err := s.Usage(ctx, slugs["used"]); err != nil || n != 1 {
		t.Errorf("Usage: %d, %v", n, err)
	}
	if err := s.Delete(ctx, slugs["used"]); !errors.Is(err, ErrDefinitionInUse) {
		t.Errorf("Delete referenced: got %v, want ErrDefinitionInUse", err)
	}
	if err := s.Delete(ctx, slugs["unused"]); err != nil {
		t.Errorf("Delete unreferenced: %v", err)
	}
	if err := s.Delete(ctx, slugs["unused"]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing: got %v, want ErrNotFound", err)
	}
}
