// Package web embeds the browser client served at the root of the HTTP server.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var staticFS embed.FS

// StaticFS returns the embedded client rooted at the static/ directory.
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
