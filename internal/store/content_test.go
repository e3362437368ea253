package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"pagecraft/internal/models"
)

func TestContentStorePublishedItems(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	slug := "test-type-" + uuid.NewString()[:8]
	ct, err := s.CreateContentType(ctx, slug, "Test Type")
	if err != nil {
		t.Fatalf("CreateContentType: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM content_items WHERE type_id = $1", ct.ID)
		db.Exec("DELETE FROM content_types WHERE id = $1", ct.ID)
	})

	tests := []struct {
		slug   string
		status models.ContentStatus
	}{
		{"first", models.ContentStatusPublished},
		{"second", models.ContentStatusPublished},
		{"draft", models.ContentStatusDraft},
	}
	for _, tt := range tests {
		item, err := s.CreateItem(ctx, &models.ContentItem{
			TypeID: ct.ID, Title: tt.slug, Slug: tt.slug, Status: tt.status,
			Data: map[string]any{"category": "news"},
		})
		if err != nil {
			t.Fatalf("CreateItem %s: %v", tt.slug, err)
		}
		if (item.PublishedAt != nil) != (tt.status == models.ContentStatusPublished) {
			t.Errorf("%s: published_at = %v", tt.slug, item.PublishedAt)
		}
	}

	items, err := s.ListPublishedItems(ctx, ct.ID)
	if err != nil {
		t.Fatalf("ListPublishedItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 published items, got %d", len(items))
	}
	for _, it := range items {
		if it.Data["category"] != "news" {
			t.Errorf("data not decoded: %v", it.Data)
		}
	}

	found, err := s.FindContentType(ctx, ct.ID)
	if err != nil || found == nil || found.IsDeleted() {
		t.Fatalf("FindContentType: %+v, %v", found, err)
	}
	if err := s.DeleteContentType(ctx, ct.ID); err != nil {
		t.Fatalf("DeleteContentType: %v", err)
	}
	if err := s.DeleteContentType(ctx, ct.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	found, _ = s.FindContentType(ctx, ct.ID)
	if found == nil || !found.IsDeleted() {
		t.Error("soft-deleted type should still be found, marked deleted")
	}
	if missing, _ := s.FindContentType(ctx, uuid.New()); missing != nil {
		t.Error("expected nil for unknown id")
	}
}
