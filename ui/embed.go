// Package ui serves the status page that mirrors the displays in a browser.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler serves the status page at / and its assets. Unknown paths
// redirect to the API docs.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			files.ServeHTTP(w, r)
			return
		}
		if _, err := fs.Stat(fsys, r.URL.Path[1:]); err != nil {
			http.Redirect(w, r, "/docs", http.StatusFound)
			return
		}
		files.ServeHTTP(w, r)
	}), nil
}
