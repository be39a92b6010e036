package needs

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RST shapes recognized by the reader.
var (
	rstDirective = regexp.MustCompile(`^\.\. ([A-Za-z][\w-]*):: ?(.*)$`)
	rstField     = regexp.MustCompile(`^:([^:]+): ?(.*)$`)
	rstBoldTitle = regexp.MustCompile(`^\*\*(.+?)\*\*( .*)?$`)
)

// Reader parses RST need directives back into Need trees. It is the
// inverse of Writer for documents the writer produced; hand-edited
// documents are accepted as long as they keep the directive shape.
type Reader struct {
	// LinkOptions names the options whose values are comma-separated need
	// id lists. All other options are scalar.
	LinkOptions map[string]bool
}

// NewReader creates a reader treating the given option names as links.
func NewReader(linkOptions ...string) *Reader {
	set := make(map[string]bool, len(linkOptions))
	for _, name := range linkOptions {
		set[name] = true
	}
	return &Reader{LinkOptions: set}
}

// ParseFile reads one RST file.
func (r *Reader) ParseFile(path string) ([]*Need, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read doc: %w", err)
	}
	roots, err := r.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse doc %s: %w", path, err)
	}
	return roots, nil
}

// ParseGlob reads all RST files matching the given doublestar patterns and
// returns the needs of every file in match order.
func (r *Reader) ParseGlob(patterns []string) ([]*Need, error) {
	var all []*Need
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, path := range matches {
			roots, err := r.ParseFile(path)
			if err != nil {
				return nil, err
			}
			all = append(all, roots...)
		}
	}
	return all, nil
}

// Parse extracts all top-level need directives from an RST document.
func (r *Reader) Parse(content string) ([]*Need, error) {
	p := &parser{reader: r, lines: splitLines(content)}
	var roots []*Need
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if line.blank() || !line.isDirective() {
			p.pos++
			continue
		}
		n, err := p.parseNeed()
		if err != nil {
			return nil, err
		}
		roots = append(roots, n)
	}
	return roots, nil
}

type line struct {
	indent int
	text   string // without leading spaces
}

func (l line) blank() bool {
	return l.text == ""
}

func (l line) isDirective() bool {
	return rstDirective.MatchString(l.text)
}

func splitLines(content string) []line {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]line, len(raw))
	for i, s := range raw {
		trimmed := strings.TrimLeft(s, " ")
		out[i] = line{indent: len(s) - len(trimmed), text: strings.TrimRight(trimmed, " ")}
	}
	return out
}

type parser struct {
	reader *Reader
	lines  []line
	pos    int
}

// parseNeed consumes one directive and its indented body. The cursor must
// sit on the directive line.
func (p *parser) parseNeed() (*Need, error) {
	dir := p.lines[p.pos]
	m := rstDirective.FindStringSubmatch(dir.text)
	n := &Need{Type: m[1], Title: m[2]}
	p.pos++

	// field list
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.blank() || l.indent <= dir.indent {
			break
		}
		fm := rstField.FindStringSubmatch(l.text)
		if fm == nil {
			break
		}
		name, value := fm[1], fm[2]
		switch {
		case name == "id":
			n.ID = value
		case p.reader.LinkOptions[name]:
			n.Links = append(n.Links, LinkOption{Name: name, Targets: splitIDList(value)})
		default:
			n.Options = append(n.Options, Option{Name: name, Value: value})
		}
		p.pos++
	}

	// body: sections and nested needs
	groupTitle := ""
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.blank() {
			p.pos++
			continue
		}
		if l.indent <= dir.indent {
			break
		}
		switch {
		case l.isDirective():
			nested, err := p.parseNeed()
			if err != nil {
				return nil, err
			}
			addNested(n, groupTitle, nested)
		case rstBoldTitle.MatchString(l.text):
			bm := rstBoldTitle.FindStringSubmatch(l.text)
			title := bm[1]
			if bm[2] != "" {
				n.Content = append(n.Content, Section{Title: title, Text: strings.TrimPrefix(bm[2], " ")})
				p.pos++
				continue
			}
			p.pos++
			if p.nextIsDirective(dir.indent) {
				groupTitle = title
				continue
			}
			n.Content = append(n.Content, Section{Title: title, Text: p.collectSection(dir.indent, l.indent)})
		default:
			// prose outside a known shape carries no model data
			p.pos++
		}
	}
	return n, nil
}

// nextIsDirective reports whether the next non-blank line inside the need
// body is a nested directive.
func (p *parser) nextIsDirective(needIndent int) bool {
	for i := p.pos; i < len(p.lines); i++ {
		l := p.lines[i]
		if l.blank() {
			continue
		}
		return l.indent > needIndent && l.isDirective()
	}
	return false
}

// collectSection gathers a multi-line section body until the next section
// title, nested directive or dedent. contentIndent is the indent of the
// section title line; it is stripped from the collected lines.
func (p *parser) collectSection(needIndent, contentIndent int) string {
	var buf []string
	pendingBlanks := 0
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.blank() {
			pendingBlanks++
			p.pos++
			continue
		}
		if l.indent <= needIndent || l.isDirective() || rstBoldTitle.MatchString(l.text) {
			break
		}
		if len(buf) > 0 {
			for ; pendingBlanks > 0; pendingBlanks-- {
				buf = append(buf, "")
			}
		} else {
			pendingBlanks = 0
		}
		indent := ""
		if l.indent > contentIndent {
			indent = strings.Repeat(" ", l.indent-contentIndent)
		}
		buf = append(buf, indent+l.text)
		p.pos++
	}
	return strings.Join(buf, "\n")
}

func addNested(n *Need, groupTitle string, nested *Need) {
	if len(n.Nested) > 0 && n.Nested[len(n.Nested)-1].Title == groupTitle {
		last := &n.Nested[len(n.Nested)-1]
		last.Needs = append(last.Needs, nested)
		return
	}
	n.Nested = append(n.Nested, NestedGroup{Title: groupTitle, Needs: []*Need{nested}})
}

func splitIDList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
