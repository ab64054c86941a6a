package monitor

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

//go:embed assets/*.html
var assetsFS embed.FS

// Pages renders the HTML pages served by the monitor.
// Production uses EmbeddedPages; tests use StaticPages.
type Pages interface {
	Render(w io.Writer, page string, data interface{}) error
}

// EmbeddedPages parses every page matching a glob of fsys on first use
// and renders them by file name.
type EmbeddedPages struct {
	fsys    fs.FS
	pattern string

	once sync.Once
	tmpl *template.Template
	err  error
}

// NewEmbeddedPages returns pages parsed from fsys by pattern.
func NewEmbeddedPages(fsys fs.FS, pattern string) *EmbeddedPages {
	return &EmbeddedPages{fsys: fsys, pattern: pattern}
}

// DefaultPages serves the pages bundled with the binary.
func DefaultPages() *EmbeddedPages {
	return NewEmbeddedPages(assetsFS, "assets/*.html")
}

// Render executes page with data.
func (p *EmbeddedPages) Render(w io.Writer, page string, data interface{}) error {
	p.once.Do(func() {
		p.tmpl, p.err = template.ParseFS(p.fsys, p.pattern)
	})
	if p.err != nil {
		return fmt.Errorf("parse pages %s: %w", p.pattern, p.err)
	}
	return p.tmpl.ExecuteTemplate(w, page, data)
}

// StaticPages renders pages from in-memory sources and records each call.
type StaticPages struct {
	Sources map[string]string
	Err     error
	Calls   []string
}

// Render records the call, then parses and executes the named source.
func (s *StaticPages) Render(w io.Writer, page string, data interface{}) error {
	s.Calls = append(s.Calls, page)
	if s.Err != nil {
		return s.Err
	}
	src, ok := s.Sources[page]
	if !ok {
		return fs.ErrNotExist
	}
	t, err := template.New(page).Parse(src)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}
