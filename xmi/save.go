package xmi

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/useblocks/emfbridge/ecore"
)

// SaveOptions controls XMI serialization.
type SaveOptions struct {
	// SortAttributes orders ECore attribute values by name instead of
	// metamodel declaration order.
	SortAttributes bool
}

// Save writes the model to path. Objects without an xmi:id get a generated
// UUID so references stay expressible.
func Save(m *Model, path string, opts SaveOptions) error {
	data, err := Marshal(m, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Marshal serializes the model. Every XML attribute is placed on its own
// line so diffs over exported models stay reviewable and the output is
// round-trip stable.
func Marshal(m *Model, opts SaveOptions) ([]byte, error) {
	ensureIDs(m)

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")

	w := &writer{b: &b, pkg: m.Package, opts: opts}
	if len(m.Roots) == 1 {
		root := m.Roots[0]
		w.writeObject(root, m.Package.NsPrefix+":"+root.Class.Name, 0, true, false)
	} else {
		w.openElement("xmi:XMI", 0)
		w.attrLine("xmi:version", "2.0", 0)
		w.namespaceAttrs(0)
		w.b.WriteString(">\n")
		for _, root := range m.Roots {
			w.writeObject(root, m.Package.NsPrefix+":"+root.Class.Name, 1, false, false)
		}
		w.b.WriteString("</xmi:XMI>\n")
	}
	return []byte(b.String()), nil
}

func ensureIDs(m *Model) {
	for _, obj := range m.Objects() {
		if obj.ID == "" {
			obj.ID = uuid.New().String()
		}
	}
}

type writer struct {
	b    *strings.Builder
	pkg  *ecore.Package
	opts SaveOptions
}

const indentUnit = "  "

func (w *writer) openElement(name string, depth int) {
	w.b.WriteString(strings.Repeat(indentUnit, depth))
	w.b.WriteString("<")
	w.b.WriteString(name)
}

func (w *writer) attrLine(name, value string, depth int) {
	w.b.WriteString("\n")
	w.b.WriteString(strings.Repeat(indentUnit, depth))
	w.b.WriteString("    ")
	w.b.WriteString(name)
	w.b.WriteString("=\"")
	w.b.WriteString(escapeAttr(value))
	w.b.WriteString("\"")
}

func (w *writer) namespaceAttrs(depth int) {
	w.attrLine("xmlns:xmi", xmiNS, depth)
	w.attrLine("xmlns:xsi", xsiNS, depth)
	w.attrLine("xmlns:"+w.pkg.NsPrefix, w.pkg.NsURI, depth)
}

// writeObject renders one object element. isRoot adds the xmi:version and
// namespace declarations; withType adds an xsi:type attribute.
func (w *writer) writeObject(obj *Object, element string, depth int, isRoot, withType bool) {
	w.openElement(element, depth)
	if isRoot {
		w.attrLine("xmi:version", "2.0", depth)
		w.namespaceAttrs(depth)
	}
	if withType {
		w.attrLine("xsi:type", w.pkg.NsPrefix+":"+obj.Class.Name, depth)
	}
	w.attrLine("xmi:id", obj.ID, depth)

	attrs := obj.Class.AllAttributes()
	if w.opts.SortAttributes {
		attrs = append([]*ecore.Attribute(nil), attrs...)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	}
	for _, a := range attrs {
		if v, ok := obj.Attr(a.Name); ok {
			w.attrLine(a.Name, v, depth)
		}
	}
	for _, r := range obj.Class.AllReferences() {
		if r.Containment {
			continue
		}
		if ids := obj.Refs(r.Name); len(ids) > 0 {
			w.attrLine(r.Name, strings.Join(ids, " "), depth)
		}
	}

	var children []childEntry
	for _, r := range obj.Class.AllReferences() {
		if !r.Containment {
			continue
		}
		for _, c := range obj.Children(r.Name) {
			children = append(children, childEntry{feature: r, obj: c})
		}
	}

	if len(children) == 0 {
		w.b.WriteString("/>\n")
		return
	}
	w.b.WriteString(">\n")
	for _, ch := range children {
		w.writeObject(ch.obj, ch.feature.Name, depth+1, false, ch.obj.Class != ch.feature.Type)
	}
	w.b.WriteString(strings.Repeat(indentUnit, depth))
	w.b.WriteString("</")
	w.b.WriteString(element)
	w.b.WriteString(">\n")
}

type childEntry struct {
	feature *ecore.Reference
	obj     *Object
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"\r", "&#xD;",
	"\n", "&#xA;",
	"\t", "&#x9;",
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
