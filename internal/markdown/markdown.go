// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts the Markdown widget field kind into HTML using
// goldmark. Raw HTML inside the source is omitted, so the output is safe
// to embed in a rendered page without further sanitizing.
package markdown

import (
	"bytes"
	"html/template"
	"log/slog"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render is the template-facing form of ToHTML. A conversion failure
// yields the escaped source text instead of an error.
func Render(source string) template.HTML {
	out, err := ToHTML(source)
	if err != nil {
		slog.Warn("markdown conversion failed, using escaped source", "error", err)
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(out)
}
