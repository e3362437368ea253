package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pagecraft/internal/models"
)

func TestHomepageRendersHomeSlug(t *testing.T) {
	env := newTestEnv(t, homePage())

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>Welcome aboard</h1>", "Home | Test Site", "First", "Second"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, SurfaceScript) {
		t.Error("public output includes the surface script")
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestHomepageFallback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Your site is running") {
		t.Errorf("expected welcome page, got %s", rec.Body.String())
	}
}

func TestPageBySlug(t *testing.T) {
	about := homePage()
	about.Title, about.Slug = "About", "about"
	draft := homePage()
	draft.Title, draft.Slug, draft.Status = "Draft", "draft-page", models.PageStatusDraft
	env := newTestEnv(t, about, draft)

	tests := []struct {
		path string
		want int
	}{
		{"/about", http.StatusOK},
		{"/draft-page", http.StatusNotFound},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestPageNotModified(t *testing.T) {
	env := newTestEnv(t, homePage())

	first := env.do(t, http.MethodGet, "/", nil)
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("304 response has a body")
	}
}

func TestPageRendersActiveTheme(t *testing.T) {
	env := newTestEnv(t, homePage())
	env.themes.registered["landing"] = &models.Theme{Slug: "landing", Name: "Landing", Parent: "starter"}
	env.themes.registered["starter"] = &models.Theme{Slug: "starter", Name: "Starter"}

	before := env.do(t, http.MethodGet, "/", nil).Header().Get("ETag")
	if rec := env.do(t, http.MethodPost, "/api/themes/landing/activate", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("activate = %d, body = %s", rec.Code, rec.Body.String())
	}
	after := env.do(t, http.MethodGet, "/", nil)
	if after.Code != http.StatusOK {
		t.Fatalf("status = %d", after.Code)
	}
	if after.Header().Get("ETag") == before {
		t.Error("output unchanged after switching to the landing theme")
	}
}

func TestEtagMatch(t *testing.T) {
	tests := []struct {
		header, etag string
		want         bool
	}{
		{"", `"a"`, false},
		{`"a"`, `"a"`, true},
		{`W/"a"`, `"a"`, true},
		{`"b", "a"`, `"a"`, true},
		{"*", `"a"`, true},
		{`"b"`, `"a"`, false},
	}
	for _, tt := range tests {
		if got := etagMatch(tt.header, tt.etag); got != tt.want {
			t.Errorf("etagMatch(%q, %q) = %v, want %v", tt.header, tt.etag, got, tt.want)
		}
	}
}
