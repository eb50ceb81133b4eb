// Package static provides the embedded browser assets.
package static

import (
	"embed"
	"net/http"
)

//go:embed index.html app.js style.css
var assetsFS embed.FS

// Index returns an http.Handler that serves the chat page.
func Index() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, assetsFS, "index.html")
	})
}

// Handler returns an http.Handler that serves embedded static assets.
func Handler() http.Handler {
	return http.FileServerFS(assetsFS)
}
