// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders a composed page. It walks Page → Sections →
// Widgets in position order, resolves each node's theme template, composes
// its style and binds its content, and wraps every node with the selection
// attributes the rendering surface relies on. A node that fails to render
// is replaced by a visible error block; the rest of the page still renders.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"pagecraft/internal/binding"
	"pagecraft/internal/grid"
	"pagecraft/internal/models"
	"pagecraft/internal/style"
	"pagecraft/internal/theme"
)

// Mode selects public output or the editor's preview output.
type Mode string

const (
	ModePublic  Mode = "public"
	ModePreview Mode = "preview"
)

// RenderContext carries everything a render depends on besides the page
// itself. It is built per request; the engine holds no ambient state about
// the active theme.
type RenderContext struct {
	Theme        string
	Grid         style.GridConvention
	SectionTypes map[string]models.SectionType
	Widgets      map[string]models.WidgetDefinition
	Mode         Mode
	SiteName     string
	Scripts      []string
	Stylesheets  []string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (rc RenderContext) now() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}

// Warning is a non-fatal problem found while rendering.
type Warning struct {
	Level   string    `json:"level"`
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// Document is a rendered page.
type Document struct {
	HTML     []byte
	ETag     string
	Warnings []Warning
}

// TemplateResolver resolves theme templates.
type TemplateResolver interface {
	Resolve(theme string, kind theme.Kind, slug string) (*theme.Handle, error)
}

// ContentResolver resolves widget content queries.
type ContentResolver interface {
	ResolveAll(ctx context.Context, queries map[uuid.UUID]*models.ContentQuery) binding.Results
}

// Engine renders pages.
type Engine struct {
	templates TemplateResolver
	content   ContentResolver
}

// New creates an Engine.
func New(templates TemplateResolver, content ContentResolver) *Engine {
	return &Engine{templates: templates, content: content}
}

// RenderPage renders page with rc. The only error returned is an
// unreachable theme storage; everything else degrades to fallback blocks
// and warnings.
func (e *Engine) RenderPage(ctx context.Context, rc RenderContext, page *models.Page) (*Document, error) {
	r := &pageRender{
		rc:       rc,
		page:     PageInfo{ID: page.ID, Title: page.Title, Slug: page.Slug, Status: page.Status},
		composer: style.NewComposer(rc.Grid),
		preview:  rc.Mode == ModePreview,
		engine:   e,
	}

	sections := sortedSections(page.Sections)

	queries := make(map[uuid.UUID]*models.ContentQuery)
	for _, s := range sections {
		for _, w := range s.Widgets {
			if w.Query != nil {
				queries[w.ID] = w.Query
			}
		}
	}
	var bound binding.Results
	if len(queries) > 0 && e.content != nil {
		bound = e.content.ResolveAll(ctx, queries)
		for id, err := range bound.Errors {
			r.warn("widget", id, "content query failed: "+err.Error())
		}
	}
	r.bound = bound

	var body bytes.Buffer
	for _, s := range sections {
		html, err := r.section(s)
		if err != nil {
			return nil, err
		}
		body.WriteString(string(html))
	}

	out, err := r.layout(page.Template, template.HTML(body.String()))
	if err != nil {
		return nil, err
	}

	return &Document{
		HTML:     out,
		ETag:     ETag(out),
		Warnings: r.warnings,
	}, nil
}

// ETag returns a strong entity tag for rendered output.
func ETag(b []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(b))
}

// pageRender is the state of one RenderPage call.
type pageRender struct {
	rc       RenderContext
	page     PageInfo
	composer *style.Composer
	preview  bool
	bound    binding.Results
	engine   *Engine
	warnings []Warning
}

func (r *pageRender) warn(level string, id uuid.UUID, msg string) {
	slog.Warn("render warning", "page_id", r.page.ID, "level", level, "id", id, "message", msg)
	r.warnings = append(r.warnings, Warning{Level: level, ID: id, Message: msg})
}

// section renders one section and its widgets, wrapped.
func (r *pageRender) section(s models.Section) (template.HTML, error) {
	st, known := r.rc.SectionTypes[s.Type]
	if !known && len(r.rc.SectionTypes) > 0 {
		r.warn("section", s.ID, fmt.Sprintf("unknown section type %q", s.Type))
	}
	allows := s.AllowsWidgets && (!known || st.AllowsWidgets)

	var widgets bytes.Buffer
	count := 0
	if allows {
		for _, w := range sortedWidgets(s.Widgets) {
			if known && !st.AllowsWidget(w.Definition) {
				r.warn("widget", w.ID, fmt.Sprintf("widget %q is not allowed in section type %q", w.Definition, s.Type))
			}
			html, err := r.widget(s, w)
			if err != nil {
				return "", err
			}
			widgets.WriteString(string(html))
			count++
		}
	} else if len(s.Widgets) > 0 {
		r.warn("section", s.ID, fmt.Sprintf("section does not allow widgets, %d skipped", len(s.Widgets)))
	}

	data := SectionData{
		ID:            s.ID,
		Type:          s.Type,
		Name:          st.Name,
		Position:      s.Position,
		Grid:          grid.Normalize(s.Grid),
		ColumnLayout:  st.ColumnLayout,
		AllowsWidgets: allows,
		Settings:      withDefaults(s.Settings, st.Settings),
		Widgets:       template.HTML(widgets.String()),
		WidgetCount:   count,
		Page:          r.page,
		Mode:          r.rc.Mode,
	}
	inner, err := r.node(theme.KindSection, s.ID, s.Type, data)
	if err != nil {
		return "", err
	}
	return r.wrap("section", s.ID, s.Type, uuid.Nil, data.Grid, s.Style, inner), nil
}

// widget renders one widget, wrapped.
func (r *pageRender) widget(s models.Section, w models.Widget) (template.HTML, error) {
	def, known := r.rc.Widgets[w.Definition]
	if !known && len(r.rc.Widgets) > 0 {
		r.warn("widget", w.ID, fmt.Sprintf("unknown widget definition %q", w.Definition))
	}

	items := r.bound.Items[w.ID]
	if items == nil {
		items = []models.ContentItemDTO{}
	}
	data := WidgetData{
		ID:         w.ID,
		Definition: w.Definition,
		Name:       def.Name,
		Position:   w.Position,
		Grid:       grid.Normalize(w.Grid),
		Fields:     withDefaults(w.Fields, def.Fields),
		Settings:   withDefaults(w.Settings, def.Settings),
		Items:      items,
		Bound:      w.Query != nil,
		SectionID:  s.ID,
		Page:       r.page,
		Mode:       r.rc.Mode,
	}
	inner, err := r.node(theme.KindWidget, w.ID, w.Definition, data)
	if err != nil {
		return "", err
	}
	return r.wrap("widget", w.ID, w.Definition, s.ID, data.Grid, w.Style, inner), nil
}

// node resolves and executes a section or widget template. Recoverable
// failures become an error block; only unreachable storage is returned.
func (r *pageRender) node(kind theme.Kind, id uuid.UUID, slug string, data any) (out template.HTML, err error) {
	h, err := r.engine.templates.Resolve(r.rc.Theme, kind, slug)
	if err != nil {
		if errors.Is(err, theme.ErrStorageUnavailable) {
			return "", fmt.Errorf("render %s %s: %w", kind, id, err)
		}
		r.warn(string(kind), id, err.Error())
		return r.errorBlock(string(kind), id, slug, err), nil
	}
	if h.Placeholder() {
		r.warn(string(kind), id, fmt.Sprintf("template not found for %s %q", kind, slug))
	}

	defer func() {
		if rec := recover(); rec != nil {
			perr := fmt.Errorf("panic: %v", rec)
			r.warn(string(kind), id, perr.Error())
			out, err = r.errorBlock(string(kind), id, slug, perr), nil
		}
	}()

	html, err := h.Render(data)
	if err != nil {
		r.warn(string(kind), id, err.Error())
		return r.errorBlock(string(kind), id, slug, err), nil
	}
	return html, nil
}

// layout wraps the rendered sections in the page layout. A layout that
// fails falls back to the built-in document shell.
func (r *pageRender) layout(slug string, body template.HTML) ([]byte, error) {
	if slug == "" {
		slug = theme.DefaultSlug
	}
	now := r.rc.now()
	attrs := fmt.Sprintf(`data-pc-level="page" data-pc-id="%s"`, r.page.ID)
	if r.preview {
		attrs += ` data-pc-mode="preview"`
	}
	data := LayoutData{
		Title:       r.page.Title,
		SiteName:    r.rc.SiteName,
		Page:        r.page,
		Body:        body,
		BodyAttrs:   template.HTMLAttr(attrs),
		Mode:        r.rc.Mode,
		Year:        now.Year(),
		Now:         now,
		Scripts:     r.rc.Scripts,
		Stylesheets: r.rc.Stylesheets,
	}

	h, err := r.engine.templates.Resolve(r.rc.Theme, theme.KindLayout, slug)
	if err != nil {
		if errors.Is(err, theme.ErrStorageUnavailable) {
			return nil, fmt.Errorf("render layout: %w", err)
		}
		r.warn("page", r.page.ID, err.Error())
		h = theme.Placeholder(r.rc.Theme, theme.KindLayout, slug)
	}

	var buf bytes.Buffer
	if err := h.Execute(&buf, data); err != nil {
		r.warn("page", r.page.ID, "layout failed: "+err.Error())
		buf.Reset()
		if err := theme.Placeholder(r.rc.Theme, theme.KindLayout, slug).Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render fallback layout: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// wrap puts a rendered node inside its selection shell with composed
// classes and inline style.
func (r *pageRender) wrap(level string, id uuid.UUID, typ string, parent uuid.UUID, rect models.GridRect, attrs models.StyleAttrs, inner template.HTML) template.HTML {
	if attrs.ColSpan == "" {
		attrs.ColSpan = strconv.Itoa(rect.W)
	}
	res := r.composer.Compose(attrs)
	for _, d := range res.Dropped {
		r.warn(level, id, "style value dropped: "+d)
	}

	data := wrapData{
		ID:      id,
		Type:    typ,
		Parent:  parent,
		Class:   res.ClassAttr(),
		Style:   template.CSS(res.InlineStyle),
		Preview: r.preview,
		Grid:    fmt.Sprintf("%d,%d,%d,%d", rect.X, rect.Y, rect.W, rect.H),
		Resize:  attrs.Handles(),
		Locked:  attrs.LockedPosition,
		Inner:   inner,
	}
	var buf bytes.Buffer
	if err := wrappers.ExecuteTemplate(&buf, level, data); err != nil {
		// The wrappers are fixed templates; failing here is a programming error.
		slog.Error("wrap node", "level", level, "id", id, "error", err)
		return inner
	}
	return template.HTML(buf.String())
}

func (r *pageRender) errorBlock(level string, id uuid.UUID, typ string, cause error) template.HTML {
	var buf bytes.Buffer
	data := errorData{Level: level, ID: id, Type: typ, Detail: cause.Error(), Preview: r.preview}
	if err := wrappers.ExecuteTemplate(&buf, "error", data); err != nil {
		slog.Error("render error block", "error", err)
	}
	return template.HTML(buf.String())
}

// withDefaults returns values with schema defaults filled in for absent
// names. The input map is not modified.
func withDefaults(values map[string]any, schema []models.FieldSchema) map[string]any {
	out := make(map[string]any, len(values)+len(schema))
	for _, f := range schema {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}

func sortedSections(in []models.Section) []models.Section {
	out := make([]models.Section, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func sortedWidgets(in []models.Widget) []models.Widget {
	out := make([]models.Widget, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
