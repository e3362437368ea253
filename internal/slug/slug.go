// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation for pages, themes and
// widget definitions.
package slug

import (
	"regexp"

	gosimple "github.com/gosimple/slug"
)

// valid matches a slug already in canonical form.
var valid = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	return gosimple.Make(s)
}

// Valid reports whether s is already a canonical slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}
