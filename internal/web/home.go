// Package web serves the pothole tracker home page.
package web

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

//go:embed templates/home.html
var homeTemplateSource string

var homeTemplate = template.Must(template.New("home.html").Parse(homeTemplateSource))

const (
	indexFile   = "index.html"
	contentType = "text/html; charset=utf-8"
)

// HomeHandler serves <staticRoot>/index.html, read on every request so a new
// frontend build is picked up without a restart. When the file is missing it
// renders the embedded fallback page.
type HomeHandler struct {
	StaticRoot string
	Title      string
	Logger     *slog.Logger
}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	body, err := os.ReadFile(filepath.Join(h.StaticRoot, indexFile))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		body, err = h.renderFallback()
		if err != nil {
			h.logger().Error("render fallback home page", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	default:
		h.logger().Error("read static index", "path", h.StaticRoot, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (h *HomeHandler) renderFallback() ([]byte, error) {
	title := h.Title
	if title == "" {
		title = "Pothole Tracker"
	}
	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, struct{ Title string }{title}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *HomeHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
