// Package view renders html/template files from a views directory.
package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
)

// ErrInvalidName is returned for view names that leave the views directory
var ErrInvalidName = errors.New("invalid view name")

// Engine renders "<dir>/<name><ext>". Parsed templates are cached unless
// Reload is set.
type Engine struct {
	dir    string
	ext    string
	Reload bool
	Funcs  template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New creates a view engine. ext defaults to ".html".
func New(dir, ext string) *Engine {
	if ext == "" {
		ext = ".html"
	}
	return &Engine{
		dir:   dir,
		ext:   ext,
		cache: make(map[string]*template.Template),
	}
}

// Dir returns the views directory
func (e *Engine) Dir() string { return e.dir }

// Render executes the named view with data
func (e *Engine) Render(name string, data any) ([]byte, error) {
	tmpl, err := e.lookup(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render view %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) lookup(name string) (*template.Template, error) {
	if !e.Reload {
		e.mu.RLock()
		tmpl, ok := e.cache[name]
		e.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	file := filepath.FromSlash(name) + e.ext
	if name == "" || !filepath.IsLocal(file) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(e.dir, file)
	tmpl, err := template.New(filepath.Base(path)).Funcs(e.Funcs).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("load view %s: %w", name, err)
	}

	if !e.Reload {
		e.mu.Lock()
		e.cache[name] = tmpl
		e.mu.Unlock()
	}
	return tmpl, nil
}
