package needs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"
)

const templateSuffix = ".rst.tmpl"

// TemplateSet holds user templates injected into rendered RST output.
// Template files are named "<need-type>_pre.rst.tmpl", "<need-type>_post",
// "<need-type>_wrap" and "<file-name>_header" / "<file-name>_footer".
type TemplateSet struct {
	templates map[string]*template.Template
}

// templateData is the data available to injected templates. Body is only
// set for wrap templates and holds the rendered need.
type templateData struct {
	Need *Need
	File string
	Body string
}

// LoadTemplates reads all *.rst.tmpl files from dir, including nested
// directories. A missing dir yields an empty set.
func LoadTemplates(dir string) (*TemplateSet, error) {
	ts := &TemplateSet{templates: make(map[string]*template.Template)}
	if dir == "" {
		return ts, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ts, nil
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*"+templateSuffix))
	if err != nil {
		return nil, fmt.Errorf("scan templates dir: %w", err)
	}
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), templateSuffix)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		tmpl, err := template.New(name).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
		ts.templates[name] = tmpl
	}
	return ts, nil
}

// Len returns the number of loaded templates.
func (ts *TemplateSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.templates)
}

func (ts *TemplateSet) lookup(name string) *template.Template {
	if ts == nil {
		return nil
	}
	return ts.templates[name]
}

func (ts *TemplateSet) render(tmpl *template.Template, data templateData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
