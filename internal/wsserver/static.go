package wsserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var staticMIMEByExt = map[string]string{
	".html": "text/html; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// handleStatic serves the bundled SPA: "/" normalizes to "/index.html",
// unknown paths fall back to "/index.html" for client-side routing, and
// any path that escapes the static root is rejected.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.staticDir == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	reqPath := r.URL.Path
	if reqPath == "/" {
		reqPath = "/index.html"
	}

	rel := strings.TrimPrefix(filepath.Clean(reqPath), "/")
	if rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(rel) {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	fullPath := filepath.Join(s.staticDir, rel)
	staticRoot := filepath.Clean(s.staticDir)
	if fullPath != staticRoot && !strings.HasPrefix(fullPath, staticRoot+string(filepath.Separator)) {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	if _, err := os.Stat(fullPath); err != nil {
		fullPath = filepath.Join(s.staticDir, "index.html")
	}

	s.serveFile(w, fullPath)
}

func (s *Server) serveFile(w http.ResponseWriter, path string) {
	f, err := os.Open(path)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := staticMIMEByExt[ext]
	if !ok {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)

	if ext == ".html" {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	if _, err := io.Copy(w, f); err != nil {
		s.logger.Debug("wsserver: static stream interrupted", "path", path, "err", err)
	}
}
