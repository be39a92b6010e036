package needs

import (
	"fmt"
	"strings"
)

// Writer renders need trees as RST need directives.
type Writer struct {
	// Indent is the number of spaces per RST indentation level.
	Indent int
	// ShowNestedTitle renders the group title above nested needs.
	ShowNestedTitle bool
	// Templates optionally injects user template output around needs and
	// files. May be nil.
	Templates *TemplateSet
}

// NewWriter returns a writer with the common defaults (3-space indent,
// nested titles shown).
func NewWriter() *Writer {
	return &Writer{Indent: 3, ShowNestedTitle: true}
}

// RenderFile renders a list of root needs into one RST document. name is
// the output file name without extension, used for header/footer template
// lookup.
func (w *Writer) RenderFile(name string, roots []*Need) (string, error) {
	var b strings.Builder

	if tmpl := w.Templates.lookup(name + "_header"); tmpl != nil {
		out, err := w.Templates.render(tmpl, templateData{File: name})
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}

	for i, n := range roots {
		if i > 0 {
			b.WriteString("\n")
		}
		if err := w.renderNeed(&b, n, ""); err != nil {
			return "", err
		}
	}

	if tmpl := w.Templates.lookup(name + "_footer"); tmpl != nil {
		out, err := w.Templates.render(tmpl, templateData{File: name})
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (w *Writer) renderNeed(b *strings.Builder, n *Need, prefix string) error {
	if tmpl := w.Templates.lookup(n.Type + "_pre"); tmpl != nil {
		out, err := w.Templates.render(tmpl, templateData{Need: n})
		if err != nil {
			return err
		}
		writeIndented(b, out, prefix)
	}

	body, err := w.renderBody(n, prefix)
	if err != nil {
		return err
	}

	if tmpl := w.Templates.lookup(n.Type + "_wrap"); tmpl != nil {
		out, err := w.Templates.render(tmpl, templateData{Need: n, Body: body})
		if err != nil {
			return err
		}
		b.WriteString(out)
	} else {
		b.WriteString(body)
	}

	if tmpl := w.Templates.lookup(n.Type + "_post"); tmpl != nil {
		out, err := w.Templates.render(tmpl, templateData{Need: n})
		if err != nil {
			return err
		}
		writeIndented(b, out, prefix)
	}
	return nil
}

// renderBody renders the directive, its options and its content. prefix is
// the indentation already owed to enclosing needs.
func (w *Writer) renderBody(n *Need, prefix string) (string, error) {
	var b strings.Builder
	inner := prefix + strings.Repeat(" ", w.Indent)

	fmt.Fprintf(&b, "%s.. %s:: %s\n", prefix, n.Type, n.Title)
	fmt.Fprintf(&b, "%s:id: %s\n", inner, n.ID)
	for _, o := range n.Options {
		fmt.Fprintf(&b, "%s:%s: %s\n", inner, o.Name, o.Value)
	}
	for _, l := range n.Links {
		fmt.Fprintf(&b, "%s:%s: %s\n", inner, l.Name, strings.Join(l.Targets, ", "))
	}

	for _, s := range n.Content {
		if s.Text == "" {
			// a bare bold line would read back as a nested group title
			continue
		}
		b.WriteString("\n")
		if strings.ContainsRune(s.Text, '\n') {
			fmt.Fprintf(&b, "%s**%s**\n\n", inner, s.Title)
			for _, line := range strings.Split(s.Text, "\n") {
				if line == "" {
					b.WriteString("\n")
					continue
				}
				fmt.Fprintf(&b, "%s%s\n", inner, line)
			}
		} else {
			fmt.Fprintf(&b, "%s**%s** %s\n", inner, s.Title, s.Text)
		}
	}

	for _, g := range n.Nested {
		if w.ShowNestedTitle && g.Title != "" {
			fmt.Fprintf(&b, "\n%s**%s**\n", inner, g.Title)
		}
		for _, nested := range g.Needs {
			b.WriteString("\n")
			if err := w.renderNeed(&b, nested, inner); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

func writeIndented(b *strings.Builder, text, prefix string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
}
