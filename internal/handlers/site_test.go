package handlers

import (
	"testing"

	"pagecraft/internal/engine"
	"pagecraft/internal/models"
	"pagecraft/internal/theme"
)

func TestSiteFallsBackToDefaultTheme(t *testing.T) {
	env := newTestEnv(t)

	slug, err := env.site.ActiveTheme(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if slug != "starter" {
		t.Errorf("active theme = %q, want starter", slug)
	}

	sc, err := env.site.Schema(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sc.SectionTypes["hero"]; !ok {
		t.Error("schema is missing the hero section type")
	}
	if _, ok := sc.Widgets["heading"]; !ok {
		t.Error("schema is missing the heading widget")
	}

	public := sc.RenderContext(engine.ModePublic, "Site")
	if len(public.Scripts) != 0 {
		t.Errorf("public scripts = %v", public.Scripts)
	}
	preview := sc.RenderContext(engine.ModePreview, "Site")
	if len(preview.Scripts) != 1 || preview.Scripts[0] != SurfaceScript {
		t.Errorf("preview scripts = %v", preview.Scripts)
	}
	if public.Grid.Span == "" {
		t.Error("grid convention not taken from the theme")
	}
}

func TestSyncTheme(t *testing.T) {
	env := newTestEnv(t)
	env.defs.defs = map[string]models.WidgetDefinition{}

	n, err := env.site.SyncTheme(t.Context(), theme.NewDirProvider(themesDir), "landing")
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 || len(env.defs.defs) != n {
		t.Errorf("synced %d definitions, registry holds %d", n, len(env.defs.defs))
	}
	landing, ok := env.themes.registered["landing"]
	if !ok || landing.Parent != "starter" {
		t.Errorf("landing not registered with its parent: %+v", landing)
	}
	if _, ok := env.themes.registered["starter"]; !ok {
		t.Error("parent theme not registered")
	}
}
