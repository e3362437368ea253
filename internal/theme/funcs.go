// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"html/template"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"

	"pagecraft/internal/markdown"
)

// FuncMap returns the functions available to theme templates: the
// slim-sprig set plus a few page helpers.
func FuncMap() template.FuncMap {
	funcs := template.FuncMap{}
	for k, v := range sprig.FuncMap() {
		funcs[k] = v
	}
	funcs["markdown"] = func(v any) template.HTML {
		return markdown.Render(toString(v))
	}
	funcs["classes"] = func(parts ...any) string {
		var out []string
		for _, p := range parts {
			switch v := p.(type) {
			case []string:
				out = append(out, v...)
			case string:
				out = append(out, strings.Fields(v)...)
			}
		}
		return strings.Join(out, " ")
	}
	funcs["field"] = func(fields map[string]any, name string) any {
		return fields[name]
	}
	return funcs
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case template.HTML:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// placeholderData feeds the built-in missing-template block.
type placeholderData struct {
	Kind Kind
	Slug string
}

var (
	nodePlaceholder = template.Must(template.New("placeholder").Parse(
		`<div class="pc-template-missing" data-pc-missing="{{.Kind}}" style="border: 2px dashed #d9534f; padding: 1rem; color: #d9534f;">` +
			`Template not found: {{.Kind}} &ldquo;{{.Slug}}&rdquo;</div>`))

	layoutPlaceholder = template.Must(template.New("layout-placeholder").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}{{if .SiteName}} | {{.SiteName}}{{end}}</title>
</head>
<body {{.BodyAttrs}}>
{{.Body}}
</body>
</html>
`))
)

// placeholderFor returns the built-in fallback template for kind.
func placeholderFor(kind Kind) *template.Template {
	if kind == KindLayout {
		return layoutPlaceholder
	}
	return nodePlaceholder
}
