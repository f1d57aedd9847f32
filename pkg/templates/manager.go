package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/pkg/logger"
)

// Renderer interface for template rendering (for dependency injection)
type Renderer interface {
	ExecuteTemplate(name string, data any) (string, error)
	TemplateExists(name string) bool
}

// Manager manages named text templates parsed from a filesystem.
type Manager struct {
	templates *template.Template
}

// GetDefaultFuncMap returns common template helper functions
func GetDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v*100)
		},
		"score": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"join": strings.Join,
		"add": func(a, b int) int {
			return a + b
		},
		"upper": strings.ToUpper,
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
}

// NewManager parses all *.tmpl files in fsys (embedded or on disk).
func NewManager(fsys fs.FS) (*Manager, error) {
	tmpl, err := template.New("root").Funcs(GetDefaultFuncMap()).ParseFS(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	templateCount := len(tmpl.Templates())
	if templateCount <= 1 { // "root" template doesn't count
		return nil, fmt.Errorf("no templates found")
	}

	logger.Debug("templates loaded",
		zap.Int("count", templateCount),
	)

	return &Manager{templates: tmpl}, nil
}

// ExecuteTemplate renders the named template with data.
func (m *Manager) ExecuteTemplate(name string, data any) (string, error) {
	t := m.templates.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %q: %w", name, err)
	}
	return buf.String(), nil
}

// TemplateExists reports whether the named template was loaded.
func (m *Manager) TemplateExists(name string) bool {
	return m.templates.Lookup(name) != nil
}
