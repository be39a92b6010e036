package xmi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/useblocks/emfbridge/ecore"
)

const (
	xmiNS = "http://www.omg.org/XMI"
	xsiNS = "http://www.w3.org/2001/XMLSchema-instance"
)

// LoadFile reads an XMI instance file against the given metamodel.
func LoadFile(path string, pkg *ecore.Package) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := Parse(data, pkg)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes XMI data into a Model. References are resolved in a second
// pass over the finished tree; an id that matches no object is an error.
func Parse(data []byte, pkg *ecore.Package) (*Model, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	m := &Model{Package: pkg}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space == xmiNS && start.Name.Local == "XMI" {
			// wrapper document with multiple roots
			roots, err := parseWrapper(dec, pkg)
			if err != nil {
				return nil, err
			}
			m.Roots = roots
		} else {
			root, err := parseObject(dec, start, rootClass(pkg, start))
			if err != nil {
				return nil, err
			}
			m.Roots = append(m.Roots, root)
		}
	}

	if len(m.Roots) == 0 {
		return nil, fmt.Errorf("model has no root element")
	}
	if err := resolveRefs(m); err != nil {
		return nil, err
	}
	return m, nil
}

func rootClass(pkg *ecore.Package, start xml.StartElement) *ecore.Class {
	c, err := pkg.Class(start.Name.Local)
	if err != nil {
		return nil
	}
	return c
}

func parseWrapper(dec *xml.Decoder, pkg *ecore.Package) ([]*Object, error) {
	var roots []*Object
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			root, err := parseObject(dec, t, rootClass(pkg, t))
			if err != nil {
				return nil, err
			}
			roots = append(roots, root)
		case xml.EndElement:
			return roots, nil
		}
	}
}

// parseObject decodes one instance element and its subtree. declared is the
// class implied by the element position (root name or containment feature
// target); xsi:type may narrow it to a subtype.
func parseObject(dec *xml.Decoder, start xml.StartElement, declared *ecore.Class) (*Object, error) {
	class, err := resolveClass(start, declared)
	if err != nil {
		return nil, err
	}
	obj := NewObject(class)

	for _, attr := range start.Attr {
		switch {
		case isNamespaceDecl(attr):
			continue
		case attr.Name.Space == xmiNS && attr.Name.Local == "id":
			obj.ID = attr.Value
		case attr.Name.Space == xmiNS || attr.Name.Space == xsiNS:
			// xmi:version, xsi:type and friends carry no model data here
			continue
		default:
			if a := class.Attribute(attr.Name.Local); a != nil {
				obj.SetAttr(attr.Name.Local, attr.Value)
				continue
			}
			if r := class.Reference(attr.Name.Local); r != nil && !r.Containment {
				obj.SetRefs(attr.Name.Local, strings.Fields(attr.Value))
				continue
			}
			return nil, fmt.Errorf("%w: attribute %q on class %s", ErrUnknownFeature, attr.Name.Local, class.Name)
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			ref := class.Reference(t.Name.Local)
			if ref == nil || !ref.Containment {
				return nil, fmt.Errorf("%w: element %q under class %s", ErrUnknownFeature, t.Name.Local, class.Name)
			}
			child, err := parseObject(dec, t, ref.Type)
			if err != nil {
				return nil, err
			}
			obj.AddChild(ref.Name, child)
		case xml.EndElement:
			return obj, nil
		}
	}
}

// resolveClass picks the concrete class for an element, honoring an
// xsi:type attribute like "lib:Book".
func resolveClass(start xml.StartElement, declared *ecore.Class) (*ecore.Class, error) {
	if declared == nil {
		return nil, fmt.Errorf("%w: element %q matches no class", ErrUnknownFeature, start.Name.Local)
	}
	pkg := declared.Package()
	for _, attr := range start.Attr {
		if attr.Name.Space != xsiNS || attr.Name.Local != "type" {
			continue
		}
		name := attr.Value
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[i+1:]
		}
		sub, err := pkg.Class(name)
		if err != nil {
			return nil, fmt.Errorf("xsi:type %q: %w", attr.Value, err)
		}
		if !sub.IsSubtypeOf(declared) {
			return nil, fmt.Errorf("xsi:type %s is not a subtype of %s", sub.Name, declared.Name)
		}
		return sub, nil
	}
	return declared, nil
}

func isNamespaceDecl(attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}

func resolveRefs(m *Model) error {
	idx := m.Index()
	for _, obj := range m.Objects() {
		for _, ref := range obj.Class.AllReferences() {
			if ref.Containment {
				continue
			}
			for _, id := range obj.Refs(ref.Name) {
				if _, ok := idx[id]; !ok {
					return fmt.Errorf("%w: %s.%s -> %q", ErrUnresolvedRef, obj.Class.Name, ref.Name, id)
				}
			}
		}
	}
	return nil
}
