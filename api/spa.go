package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built frontend from dir. Paths that do not name a
// file get index.html so client-side routes resolve.
type SPAHandler struct {
	dir        string
	fileServer http.Handler
}

// NewSPAHandler creates a handler rooted at dir.
func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{
		dir:        dir,
		fileServer: http.FileServer(http.Dir(dir)),
	}
}

// ServeHTTP serves a static file or the index page.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(clean)))
	if err != nil || info.IsDir() {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}

	if strings.HasPrefix(clean, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
	}
	h.fileServer.ServeHTTP(w, r)
}
