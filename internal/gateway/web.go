package gateway

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// handleIndex serves the single-page UI. The catch-all GET pattern also
// lands here, so anything but the root path is a 404.
func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTemplate.Execute(w, map[string]string{
		"Version": g.config.Version,
	})
}
