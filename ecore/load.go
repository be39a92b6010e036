package ecore

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// raw XML shapes of an .ecore file. The file is itself XMI, but with a
// fixed vocabulary, so static structs are enough.
type xmlPackage struct {
	Name        string          `xml:"name,attr"`
	NsURI       string          `xml:"nsURI,attr"`
	NsPrefix    string          `xml:"nsPrefix,attr"`
	Classifiers []xmlClassifier `xml:"eClassifiers"`
}

type xmlClassifier struct {
	Type       string       `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Name       string       `xml:"name,attr"`
	Abstract   bool         `xml:"abstract,attr"`
	SuperTypes string       `xml:"eSuperTypes,attr"`
	Features   []xmlFeature `xml:"eStructuralFeatures"`
	Literals   []xmlLiteral `xml:"eLiterals"`
}

type xmlFeature struct {
	Type        string      `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Name        string      `xml:"name,attr"`
	ETypeAttr   string      `xml:"eType,attr"`
	ETypeElem   *xmlTypeRef `xml:"eType"`
	UpperBound  int         `xml:"upperBound,attr"`
	Containment bool        `xml:"containment,attr"`
	Opposite    string      `xml:"eOpposite,attr"`
	Default     string      `xml:"defaultValueLiteral,attr"`
}

type xmlTypeRef struct {
	Href string `xml:"href,attr"`
}

type xmlLiteral struct {
	Name  string `xml:"name,attr"`
	Value int    `xml:"value,attr"`
}

// LoadFile reads an .ecore metamodel file.
func LoadFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metamodel: %w", err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse metamodel %s: %w", path, err)
	}
	return pkg, nil
}

// Parse decodes .ecore XML into a Package.
func Parse(data []byte) (*Package, error) {
	var raw xmlPackage
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	pkg := &Package{
		Name:     raw.Name,
		NsURI:    raw.NsURI,
		NsPrefix: raw.NsPrefix,
		classes:  make(map[string]*Class),
		enums:    make(map[string]*Enum),
	}

	// first pass: declare classifiers so type refs can resolve regardless
	// of declaration order
	for _, cl := range raw.Classifiers {
		switch classifierKind(cl.Type) {
		case "EClass":
			pkg.AddClass(&Class{Name: cl.Name, Abstract: cl.Abstract})
		case "EEnum":
			enum := &Enum{Name: cl.Name}
			for _, lit := range cl.Literals {
				enum.Literals = append(enum.Literals, Literal{Name: lit.Name, Value: lit.Value})
			}
			pkg.enums[cl.Name] = enum
		default:
			return nil, fmt.Errorf("%w: classifier %s has xsi:type %q", ErrBadTypeRef, cl.Name, cl.Type)
		}
	}

	// second pass: features and supertypes
	for _, cl := range raw.Classifiers {
		if classifierKind(cl.Type) != "EClass" {
			continue
		}
		class := pkg.classes[cl.Name]
		for _, superRef := range strings.Fields(cl.SuperTypes) {
			super, err := pkg.Class(typeRefName(superRef))
			if err != nil {
				return nil, fmt.Errorf("supertype of %s: %w", cl.Name, err)
			}
			class.SuperTypes = append(class.SuperTypes, super)
		}
		for _, feat := range cl.Features {
			if err := addFeature(pkg, class, feat); err != nil {
				return nil, err
			}
		}
	}
	return pkg, nil
}

func addFeature(pkg *Package, class *Class, feat xmlFeature) error {
	typeRef := feat.ETypeAttr
	if typeRef == "" && feat.ETypeElem != nil {
		typeRef = feat.ETypeElem.Href
	}
	if typeRef == "" {
		return fmt.Errorf("%w: feature %s.%s has no eType", ErrBadTypeRef, class.Name, feat.Name)
	}
	typeName := typeRefName(typeRef)

	switch classifierKind(feat.Type) {
	case "EAttribute":
		attr := &Attribute{Name: feat.Name, Default: feat.Default}
		if dt, ok := dataType(typeName); ok {
			attr.Type = dt
		} else if enum, err := pkg.Enum(typeName); err == nil {
			attr.Enum = enum
		} else {
			return fmt.Errorf("%w: attribute %s.%s type %q", ErrBadTypeRef, class.Name, feat.Name, typeName)
		}
		class.Attributes = append(class.Attributes, attr)
	case "EReference":
		target, err := pkg.Class(typeName)
		if err != nil {
			return fmt.Errorf("reference %s.%s: %w", class.Name, feat.Name, err)
		}
		class.References = append(class.References, &Reference{
			Name:        feat.Name,
			Type:        target,
			Containment: feat.Containment,
			Many:        feat.UpperBound == -1 || feat.UpperBound > 1,
			Opposite:    typeRefName(feat.Opposite),
		})
	default:
		return fmt.Errorf("%w: feature %s.%s has xsi:type %q", ErrBadTypeRef, class.Name, feat.Name, feat.Type)
	}
	return nil
}

// classifierKind strips the "ecore:" prefix from an xsi:type value.
func classifierKind(xsiType string) string {
	if i := strings.IndexByte(xsiType, ':'); i >= 0 {
		return xsiType[i+1:]
	}
	return xsiType
}

// typeRefName extracts the classifier name from an ECore path reference.
// Supported shapes: "#//Name", "uri#//Name", "ecore:EDataType uri#//Name"
// and "#//Class/feature" (last segment wins).
func typeRefName(ref string) string {
	if ref == "" {
		return ""
	}
	if i := strings.LastIndexByte(ref, ' '); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.Index(ref, "#//"); i >= 0 {
		ref = ref[i+3:]
	}
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

func dataType(name string) (DataType, bool) {
	switch DataType(name) {
	case String, Boolean, Int, Long, Float, Double, Date:
		return DataType(name), true
	}
	return "", false
}
