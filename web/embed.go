// Package web embeds the static subscription site served by the API server.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html app.js style.css
var assets embed.FS

// Site returns the embedded site files.
func Site() fs.FS {
	return assets
}
