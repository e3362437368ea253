package handlers

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestCreatePageRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      createPageRequest
		wantSlug string
		wantErr  string
	}{
		{"derived slug", createPageRequest{Title: "  Hello World  "}, "hello-world", ""},
		{"kept slug", createPageRequest{Title: "Hi", Slug: "greeting"}, "greeting", ""},
		{"missing title", createPageRequest{}, "", "title is required"},
		{"invalid slug", createPageRequest{Title: "Hi", Slug: "a b"}, "a b", "is not valid"},
		{"bad status", createPageRequest{Title: "Hi", Status: "gone"}, "hi", "status must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.req.page()
			if p.Slug != tt.wantSlug {
				t.Errorf("slug = %q, want %q", p.Slug, tt.wantSlug)
			}
			probs := validateCreatePage(&tt.req, p)
			joined := strings.Join(probs, "; ")
			if tt.wantErr == "" && len(probs) > 0 {
				t.Errorf("unexpected problems: %s", joined)
			}
			if tt.wantErr != "" && !strings.Contains(joined, tt.wantErr) {
				t.Errorf("problems %q do not mention %q", joined, tt.wantErr)
			}
		})
	}
}

func TestReorderRequestProblems(t *testing.T) {
	id := uuid.New()
	if probs := problems(&reorderRequest{}); len(probs) != 1 || probs[0] != "ordered_ids is required" {
		t.Errorf("empty = %v", probs)
	}
	if probs := problems(&reorderRequest{OrderedIDs: []uuid.UUID{id, id}}); len(probs) != 1 || probs[0] != "ordered_ids contains duplicates" {
		t.Errorf("duplicates = %v", probs)
	}
	if probs := problems(&reorderRequest{OrderedIDs: []uuid.UUID{id}}); probs != nil {
		t.Errorf("valid = %v", probs)
	}
}
