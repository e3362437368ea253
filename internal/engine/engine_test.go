package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	"pagecraft/internal/binding"
	"pagecraft/internal/models"
	"pagecraft/internal/style"
	"pagecraft/internal/theme"
)

func themeFS() fstest.MapFS {
	return fstest.MapFS{
		"demo/theme.yaml":              {Data: []byte("slug: demo\nname: Demo\n")},
		"demo/layouts/default.html":    {Data: []byte(`<html><head><title>{{.Title}}</title></head><body {{.BodyAttrs}}>{{.Body}}</body></html>`)},
		"demo/sections/default.html":   {Data: []byte(`<div class="inner" data-settings-tone="{{.Settings.tone}}">{{.Widgets}}</div>`)},
		"demo/widgets/heading.html":    {Data: []byte(`<h2>{{field .Fields "text"}}</h2>`)},
		"demo/widgets/list.html":       {Data: []byte(`<ul>{{range .Items}}<li>{{.Title}}</li>{{end}}</ul>`)},
		"demo/widgets/broken.html":     {Data: []byte(`{{index .Fields.text 3}}`)},
		"demo/widgets/fails.html":      {Data: []byte(`{{fail "boom"}}`)},
		"demo/widgets/syntax.html":     {Data: []byte(`{{if}}`)},
		"plain/sections/default.html":  {Data: []byte(`{{.Widgets}}`)},
		"plain/widgets/default.html":   {Data: []byte(`<span>w</span>`)},
	}
}

// staticContent returns canned items for every query.
type staticContent struct {
	items []models.ContentItemDTO
	fail  map[uuid.UUID]bool
	calls int
}

func (s *staticContent) ResolveAll(_ context.Context, queries map[uuid.UUID]*models.ContentQuery) binding.Results {
	s.calls++
	res := binding.Results{Items: map[uuid.UUID][]models.ContentItemDTO{}, Errors: map[uuid.UUID]error{}}
	for id := range queries {
		if s.fail[id] {
			res.Items[id] = []models.ContentItemDTO{}
			res.Errors[id] = errors.New("db down")
			continue
		}
		res.Items[id] = s.items
	}
	return res
}

func newEngine(content ContentResolver) *Engine {
	return New(theme.NewResolver(theme.NewFSProvider(themeFS()), nil), content)
}

func renderContext(mode Mode) RenderContext {
	return RenderContext{
		Theme: "demo",
		Grid:  style.DefaultConvention,
		SectionTypes: map[string]models.SectionType{
			"band": {Slug: "band", Name: "Band", AllowsWidgets: true, Settings: []models.FieldSchema{
				{Name: "tone", Kind: models.FieldSelect, Default: "light"},
			}},
			"spacer": {Slug: "spacer", Name: "Spacer", AllowsWidgets: false},
		},
		Widgets: map[string]models.WidgetDefinition{
			"heading": {Slug: "heading", Name: "Heading", Fields: []models.FieldSchema{
				{Name: "text", Kind: models.FieldText, Default: "Untitled"},
			}},
			"list":   {Slug: "list", Name: "List"},
			"broken": {Slug: "broken", Name: "Broken"},
			"fails":  {Slug: "fails", Name: "Fails"},
			"syntax": {Slug: "syntax", Name: "Syntax"},
		},
		Mode:     mode,
		SiteName: "Test",
		Now:      func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func section(pos int, typ string, widgets ...models.Widget) models.Section {
	return models.Section{
		ID:            uuid.New(),
		Type:          typ,
		Position:      pos,
		Grid:          models.GridRect{X: 0, Y: pos, W: 12, H: 1},
		AllowsWidgets: true,
		Widgets:       widgets,
	}
}

func widget(pos int, def string, fields map[string]any) models.Widget {
	return models.Widget{
		ID:         uuid.New(),
		Definition: def,
		Position:   pos,
		Grid:       models.GridRect{X: 0, Y: 0, W: 6, H: 1},
		Fields:     fields,
	}
}

func TestRenderPageOrderAndWrappers(t *testing.T) {
	w1 := widget(1, "heading", map[string]any{"text": "Second"})
	w0 := widget(0, "heading", map[string]any{"text": "First"})
	w0.Style = models.StyleAttrs{CSSClasses: "lead foo;bar", BackgroundColor: "#fff", ColSpan: "md:4"}
	s1 := section(1, "band")
	s0 := section(0, "band", w1, w0)
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{s1, s0}}

	doc, err := newEngine(nil).RenderPage(context.Background(), renderContext(ModePublic), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := string(doc.HTML)

	if i, j := strings.Index(html, s0.ID.String()), strings.Index(html, s1.ID.String()); i < 0 || j < 0 || i > j {
		t.Errorf("sections out of position order")
	}
	if i, j := strings.Index(html, "First"), strings.Index(html, "Second"); i < 0 || j < 0 || i > j {
		t.Errorf("widgets out of position order")
	}
	for _, want := range []string{
		`<body data-pc-level="page" data-pc-id="` + page.ID.String() + `">`,
		`<section data-pc-level="section" data-pc-id="` + s0.ID.String() + `" data-pc-type="band" class="col-12"`,
		`data-pc-level="widget" data-pc-id="` + w0.ID.String() + `"`,
		`data-pc-parent="` + s0.ID.String() + `"`,
		`class="col-md-4 lead" style="background-color: #fff;"`,
		`data-settings-tone="light"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q\n%s", want, html)
		}
	}
	if strings.Contains(html, "foo;bar") {
		t.Error("unsafe class token leaked into output")
	}
	if strings.Contains(html, "data-pc-grid") {
		t.Error("public output should not carry editor metadata")
	}
	if len(doc.Warnings) != 1 || !strings.Contains(doc.Warnings[0].Message, "foo;bar") {
		t.Errorf("expected one dropped-style warning, got %+v", doc.Warnings)
	}
}

func TestRenderPageDeterministic(t *testing.T) {
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{
		section(0, "band", widget(0, "heading", map[string]any{"text": "Hi"})),
	}}
	eng := newEngine(nil)
	a, err := eng.RenderPage(context.Background(), renderContext(ModePublic), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	b, _ := eng.RenderPage(context.Background(), renderContext(ModePublic), page)
	if string(a.HTML) != string(b.HTML) || a.ETag != b.ETag {
		t.Error("identical input should render identically")
	}
	if !strings.HasPrefix(a.ETag, `"`) || len(a.ETag) != 18 {
		t.Errorf("unexpected ETag format %q", a.ETag)
	}
}

func TestRenderPageIsolatesFailures(t *testing.T) {
	good := widget(0, "heading", map[string]any{"text": "Still here"})
	broken := widget(1, "broken", map[string]any{"text": 42})
	fails := widget(2, "fails", nil)
	syntax := widget(3, "syntax", nil)
	missing := widget(4, "carousel", nil)
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{
		section(0, "band", good, broken, fails, syntax, missing),
	}}

	doc, err := newEngine(nil).RenderPage(context.Background(), renderContext(ModePreview), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := string(doc.HTML)

	if !strings.Contains(html, "Still here") {
		t.Error("healthy widget must still render")
	}
	if got := strings.Count(html, `class="pc-render-error"`); got != 3 {
		t.Errorf("expected 3 error blocks, got %d\n%s", got, html)
	}
	if !strings.Contains(html, "pc-template-missing") {
		t.Error("missing template should render the placeholder block")
	}
	warned := map[uuid.UUID]bool{}
	for _, w := range doc.Warnings {
		warned[w.ID] = true
	}
	for _, id := range []uuid.UUID{broken.ID, fails.ID, syntax.ID, missing.ID} {
		if !warned[id] {
			t.Errorf("expected a warning for widget %s", id)
		}
	}
	if warned[good.ID] {
		t.Error("healthy widget should not be warned about")
	}
}

func TestRenderPagePreviewMetadata(t *testing.T) {
	w := widget(0, "heading", nil)
	w.Grid = models.GridRect{X: 2, Y: 1, W: 4, H: 2}
	w.Style.ResizeHandles = models.ResizeSE
	w.Style.LockedPosition = true
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{section(0, "band", w)}}

	doc, err := newEngine(nil).RenderPage(context.Background(), renderContext(ModePreview), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := string(doc.HTML)
	for _, want := range []string{
		`data-pc-mode="preview"`,
		`data-pc-grid="2,1,4,2" data-pc-resize="se" data-pc-locked="true"`,
		`<h2>Untitled</h2>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("preview output missing %q\n%s", want, html)
		}
	}
}

func TestRenderPageContentBinding(t *testing.T) {
	typeID := uuid.New()
	list := widget(0, "list", nil)
	list.Query = &models.ContentQuery{ContentTypeID: &typeID, Limit: 2}
	failing := widget(1, "list", nil)
	failing.Query = &models.ContentQuery{ContentTypeID: &typeID}
	content := &staticContent{
		items: []models.ContentItemDTO{{Title: "Alpha"}, {Title: "Beta"}},
		fail:  map[uuid.UUID]bool{failing.ID: true},
	}
	page := &models.Page{ID: uuid.New(), Title: "News", Sections: []models.Section{section(0, "band", list, failing)}}

	doc, err := newEngine(content).RenderPage(context.Background(), renderContext(ModePublic), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := string(doc.HTML)
	if !strings.Contains(html, "<li>Alpha</li><li>Beta</li>") {
		t.Errorf("bound items not rendered:\n%s", html)
	}
	if !strings.Contains(html, "<ul></ul>") {
		t.Error("failed query should render the widget with no items")
	}
	if content.calls != 1 {
		t.Errorf("queries should be resolved in one batch, got %d calls", content.calls)
	}
}

func TestRenderPageSectionWithoutWidgets(t *testing.T) {
	s := section(0, "spacer", widget(0, "heading", map[string]any{"text": "hidden"}))
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{s}}

	doc, err := newEngine(nil).RenderPage(context.Background(), renderContext(ModePublic), page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if strings.Contains(string(doc.HTML), "hidden") {
		t.Error("widgets of a section that does not allow them must not render")
	}
	if len(doc.Warnings) == 0 {
		t.Error("skipping widgets should be reported")
	}
}

func TestRenderPageFallbackLayout(t *testing.T) {
	rc := renderContext(ModePublic)
	rc.Theme = "plain"
	rc.SectionTypes, rc.Widgets = nil, nil
	page := &models.Page{ID: uuid.New(), Title: "Bare", Sections: []models.Section{section(0, "any", widget(0, "x", nil))}}

	doc, err := newEngine(nil).RenderPage(context.Background(), rc, page)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	html := string(doc.HTML)
	if !strings.Contains(html, "<!DOCTYPE html>") || !strings.Contains(html, "<title>Bare | Test</title>") {
		t.Errorf("expected the built-in layout:\n%s", html)
	}
	if !strings.Contains(html, "<span>w</span>") {
		t.Error("body should still render inside the fallback layout")
	}
}

func TestRenderPageStorageUnavailable(t *testing.T) {
	rc := renderContext(ModePublic)
	rc.Theme = "missing"
	page := &models.Page{ID: uuid.New(), Title: "Home", Sections: []models.Section{section(0, "band")}}

	_, err := newEngine(nil).RenderPage(context.Background(), rc, page)
	if !errors.Is(err, theme.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
