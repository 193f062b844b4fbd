// Package web embeds the built client bundle (dist/): the HTML shell the
// render pipeline splices around the streamed markup, and the static assets
// it references.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:dist
var distFS embed.FS

// Shell returns the production HTML shell, loaded once at process start.
// Development reads the shell from disk instead, so edits apply live.
func Shell() ([]byte, error) {
	return distFS.ReadFile("dist/index.html")
}

// AssetsHandler serves the embedded client assets. Unlike an SPA there is no
// index fallback: unknown paths 404, because the page catch-all belongs to
// the render pipeline.
func AssetsHandler() http.Handler {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}
