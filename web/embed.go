// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package web provides embedded static assets served at /static/. It holds
// the rendering surface script that preview pages load.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var staticFiles embed.FS

// Static returns the static asset tree rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embedded tree always has the static directory.
		panic(err)
	}
	return sub
}
