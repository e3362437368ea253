// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package style turns structured style attributes into class tokens and an
// inline style string. Composition is a pure function of its input: the
// same attributes always produce byte-identical output. Operator-supplied
// values only ever land in CSS value positions, and only after passing the
// CSS tokenizer checks in value.go.
package style

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"pagecraft/internal/models"
)

// classToken is the safe class-name pattern for free-text css classes.
var classToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// maxSpacing bounds padding and margin values in pixels.
const maxSpacing = 10000

// breakpoints are the responsive prefixes accepted in span/offset overrides.
var breakpoints = map[string]bool{"sm": true, "md": true, "lg": true, "xl": true, "xxl": true}

// GridConvention names the theme's grid utility classes. Patterns use
// {n} for the column count and {bp} for the breakpoint.
type GridConvention struct {
	Span             string `yaml:"span_class" json:"span_class"`
	SpanBreakpoint   string `yaml:"span_breakpoint_class" json:"span_breakpoint_class"`
	Offset           string `yaml:"offset_class" json:"offset_class"`
	OffsetBreakpoint string `yaml:"offset_breakpoint_class" json:"offset_breakpoint_class"`
}

// DefaultConvention follows Bootstrap's grid class names.
var DefaultConvention = GridConvention{
	Span:             "col-{n}",
	SpanBreakpoint:   "col-{bp}-{n}",
	Offset:           "offset-{n}",
	OffsetBreakpoint: "offset-{bp}-{n}",
}

// withDefaults fills empty patterns from DefaultConvention.
func (g GridConvention) withDefaults() GridConvention {
	if g.Span == "" {
		g.Span = DefaultConvention.Span
	}
	if g.SpanBreakpoint == "" {
		g.SpanBreakpoint = DefaultConvention.SpanBreakpoint
	}
	if g.Offset == "" {
		g.Offset = DefaultConvention.Offset
	}
	if g.OffsetBreakpoint == "" {
		g.OffsetBreakpoint = DefaultConvention.OffsetBreakpoint
	}
	return g
}

// Result is the output of Compose.
type Result struct {
	Classes     []string `json:"classes"`
	InlineStyle string   `json:"inline_style"`
	// Dropped lists the attribute values that failed validation, as
	// "attribute: value". It feeds operator-facing warnings only.
	Dropped []string `json:"dropped,omitempty"`
}

// ClassAttr returns the classes joined for an HTML class attribute.
func (r Result) ClassAttr() string {
	return strings.Join(r.Classes, " ")
}

// Composer composes style attributes under a theme's grid convention.
type Composer struct {
	conv GridConvention
}

// NewComposer creates a Composer. Empty convention patterns fall back to
// DefaultConvention.
func NewComposer(conv GridConvention) *Composer {
	return &Composer{conv: conv.withDefaults()}
}

// Compose turns attrs into classes and an inline style. Classes come in a
// fixed order: span utilities, offset utilities, then operator tokens in
// their original order without duplicates. Inline declarations are
// background-color, padding, margin, then the min/max width and height.
func (c *Composer) Compose(attrs models.StyleAttrs) Result {
	var res Result
	seen := make(map[string]bool)
	add := func(class string) {
		if !seen[class] {
			seen[class] = true
			res.Classes = append(res.Classes, class)
		}
	}

	for _, cls := range c.gridClasses(attrs.ColSpan, 1, 12, c.conv.Span, c.conv.SpanBreakpoint, "col_span", &res) {
		add(cls)
	}
	for _, cls := range c.gridClasses(attrs.ColOffset, 0, 11, c.conv.Offset, c.conv.OffsetBreakpoint, "col_offset", &res) {
		add(cls)
	}
	for _, tok := range strings.Fields(attrs.CSSClasses) {
		if !classToken.MatchString(tok) {
			res.Dropped = append(res.Dropped, "css_classes: "+tok)
			continue
		}
		add(tok)
	}
	if res.Classes == nil {
		res.Classes = []string{}
	}

	var decls []string
	if v := strings.TrimSpace(attrs.BackgroundColor); v != "" {
		if color, ok := validColor(v); ok {
			decls = append(decls, "background-color: "+color)
		} else {
			res.Dropped = append(res.Dropped, "background_color: "+v)
		}
	}
	if v, ok := shorthand(attrs.Padding, false); ok {
		decls = append(decls, "padding: "+v)
	}
	if v, ok := shorthand(attrs.Margin, true); ok {
		decls = append(decls, "margin: "+v)
	}
	for _, l := range []struct{ prop, attr, value string }{
		{"min-width", "min_width", attrs.MinWidth},
		{"max-width", "max_width", attrs.MaxWidth},
		{"min-height", "min_height", attrs.MinHeight},
		{"max-height", "max_height", attrs.MaxHeight},
	} {
		v := strings.TrimSpace(l.value)
		if v == "" {
			continue
		}
		if length, ok := validLength(v); ok {
			decls = append(decls, l.prop+": "+length)
		} else {
			res.Dropped = append(res.Dropped, l.attr+": "+v)
		}
	}

	if len(decls) > 0 {
		res.InlineStyle = strings.Join(decls, "; ") + ";"
	}
	return res
}

// gridClasses maps an override string such as "6" or "md:6 lg:4" to
// utility classes. Column counts outside [lo, hi] are dropped.
func (c *Composer) gridClasses(override string, lo, hi int, plain, withBP, attr string, res *Result) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(override, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		bp, num, hasBP := strings.Cut(tok, ":")
		if !hasBP {
			num, bp = bp, ""
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < lo || n > hi || (hasBP && !breakpoints[bp]) {
			res.Dropped = append(res.Dropped, attr+": "+tok)
			continue
		}
		pattern := plain
		if hasBP {
			pattern = withBP
		}
		out = append(out, strings.NewReplacer("{bp}", bp, "{n}", strconv.Itoa(n)).Replace(pattern))
	}
	return out
}

// shorthand renders per-side spacing in CSS shorthand order (top, right,
// bottom, left). Numeric sides are pixels; absent or non-numeric sides
// become 0. Reports false when no side is set.
func shorthand(sides models.Sides, allowNegative bool) (string, bool) {
	if sides.IsZero() {
		return "", false
	}
	parts := make([]string, 4)
	set := false
	for i, raw := range sides {
		parts[i] = "0"
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxSpacing || (v < 0 && !allowNegative) {
			continue
		}
		set = true
		if v != 0 {
			parts[i] = strconv.FormatFloat(v, 'f', -1, 64) + "px"
		}
	}
	if !set {
		return "", false
	}
	return strings.Join(parts, " "), true
}
