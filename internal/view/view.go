package view

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const layout = "templates/base.html"

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Renderer writes full HTML pages.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any)
	NotFound(w http.ResponseWriter, r *http.Request)
	ServerError(w http.ResponseWriter, r *http.Request)
}

// IdentityFunc returns the caller's identity for the layout, or nil.
type IdentityFunc func(ctx context.Context) any

type Templates struct {
	pages    map[string]*template.Template
	identity IdentityFunc
}

func New(identity IdentityFunc) (*Templates, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layout {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, layout, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	if identity == nil {
		identity = func(context.Context) any { return nil }
	}
	return &Templates{pages: pages, identity: identity}, nil
}

func (t *Templates) Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	log := config.WithContext(r.Context())

	tmpl, ok := t.pages[page]
	if !ok {
		log.WithField("page", page).Error("Unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["Identity"] = t.identity(r.Context())
	data["Path"] = r.URL.Path

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.WithError(err).WithField("page", page).Error("Failed to render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Templates) NotFound(w http.ResponseWriter, r *http.Request) {
	t.Render(w, r, http.StatusNotFound, "error_404", nil)
}

func (t *Templates) ServerError(w http.ResponseWriter, r *http.Request) {
	t.Render(w, r, http.StatusInternalServerError, "error_500", nil)
}
