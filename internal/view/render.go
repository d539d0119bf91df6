// Package view renders the item pages with html/template.
//
// Templates are embedded by default. A directory can override them for
// development; files there are loaded lazily and cached.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
)

//go:embed templates/*.html
var embedded embed.FS

// partials is parsed into every page.
const partials = "partials.html"

// Renderer stores compiled page templates.
type Renderer struct {
	fsys      fs.FS
	templates map[string]*template.Template
	mu        sync.RWMutex
	lazy      bool
}

// New creates a renderer. With an empty dir the embedded templates are
// compiled at creation time. With a dir, pages are read from it on first
// access (lazy) or all at once.
func New(dir string, lazy bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		lazy:      lazy,
	}

	if dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, fmt.Errorf("opening embedded templates: %w", err)
		}
		r.fsys = sub
		r.lazy = false
	} else {
		r.fsys = os.DirFS(dir)
	}

	if !r.lazy {
		if err := r.preload(); err != nil {
			return nil, fmt.Errorf("preloading templates: %w", err)
		}
	}
	return r, nil
}

// Get returns a compiled page template, e.g. "item.html".
func (r *Renderer) Get(name string) (*template.Template, error) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid template name: %s", name)
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	if !r.lazy {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return r.loadAndCache(name)
}

// Execute renders a page into w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	tmpl, err := r.Get(name)
	if err != nil {
		return err
	}
	// render into a buffer so a failing template never emits half a page
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Render renders a page to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := r.Execute(&sb, name, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Renderer) preload() error {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}

	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == partials || !strings.HasSuffix(name, ".html") {
			continue
		}
		if _, err := r.load(name); err != nil {
			return err
		}
		count++
	}

	slog.Debug("page templates loaded", "count", count)
	return nil
}

func (r *Renderer) loadAndCache(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}
	return r.load(name)
}

// load compiles partials + page and stores the result.
// Caller must hold r.mu write lock (or be called during New).
func (r *Renderer) load(name string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).ParseFS(r.fsys, partials, name)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}
