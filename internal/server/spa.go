package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// staticHandler serves the embedded web client. Unknown non-API paths get
// index.html so a reload on any URL lands on the dashboard.
type staticHandler struct {
	fs     http.FileSystem
	static http.Handler
}

func newStaticHandler(fsys fs.FS) http.Handler {
	httpFS := http.FS(fsys)
	return &staticHandler{
		fs:     httpFS,
		static: http.FileServer(httpFS),
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "." {
		urlPath = "/"
	}

	// API paths that reach here were not matched by any route.
	if isAPIPath(urlPath) {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
		return
	}

	if urlPath != "/" {
		if f, err := h.fs.Open(urlPath); err == nil {
			_ = f.Close()
			setCacheHeaders(w, urlPath)
			h.static.ServeHTTP(w, r)
			return
		}
	}

	r.URL.Path = "/"
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.static.ServeHTTP(w, r)
}

// isAPIPath reports whether p belongs to a JSON endpoint prefix.
func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") ||
		strings.HasPrefix(p, "/view/") ||
		p == "/mcp"
}

// setCacheHeaders sets cache-control headers for static files. The client
// is not fingerprinted, so assets revalidate.
func setCacheHeaders(w http.ResponseWriter, urlPath string) {
	if strings.HasSuffix(urlPath, ".html") {
		w.Header().Set("Cache-Control", "no-cache")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60, must-revalidate")
}
