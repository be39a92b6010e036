// Package ecore provides a minimal ECore metamodel runtime: loading .ecore
// files and answering structural questions (attributes, references,
// containment, enum literals) about the classes they define.
package ecore

import "fmt"

// DataType identifies a primitive ECore data type.
type DataType string

const (
	String  DataType = "EString"
	Boolean DataType = "EBoolean"
	Int     DataType = "EInt"
	Long    DataType = "ELong"
	Float   DataType = "EFloat"
	Double  DataType = "EDouble"
	Date    DataType = "EDate"
)

// Package is a loaded ECore metamodel package.
type Package struct {
	Name     string
	NsURI    string
	NsPrefix string

	classes map[string]*Class
	enums   map[string]*Enum
	// order of classifier declaration, for deterministic iteration
	classOrder []string
}

// Class describes an ECore EClass.
type Class struct {
	Name       string
	Abstract   bool
	SuperTypes []*Class
	Attributes []*Attribute
	References []*Reference

	pkg *Package
}

// Attribute describes an ECore EAttribute.
type Attribute struct {
	Name    string
	Type    DataType
	Enum    *Enum // non-nil when the attribute type is an EEnum
	Default string
}

// Reference describes an ECore EReference.
type Reference struct {
	Name        string
	Type        *Class
	Containment bool
	Many        bool
	Opposite    string
}

// Enum describes an ECore EEnum.
type Enum struct {
	Name     string
	Literals []Literal
}

// Literal is a single EEnumLiteral.
type Literal struct {
	Name  string
	Value int
}

// HasLiteral reports whether name is a declared literal of the enum.
func (e *Enum) HasLiteral(name string) bool {
	for _, l := range e.Literals {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Class returns the class with the given name or an error if the package
// does not declare it.
func (p *Package) Class(name string) (*Class, error) {
	c, ok := p.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClassifier, name)
	}
	return c, nil
}

// Enum returns the enum with the given name or an error if the package does
// not declare it.
func (p *Package) Enum(name string) (*Enum, error) {
	e, ok := p.enums[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClassifier, name)
	}
	return e, nil
}

// Classes returns all classes in declaration order.
func (p *Package) Classes() []*Class {
	out := make([]*Class, 0, len(p.classOrder))
	for _, name := range p.classOrder {
		if c, ok := p.classes[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AddClass registers a class with the package. Pre-load hooks use this to
// patch model parts that are not in the .ecore file.
func (p *Package) AddClass(c *Class) {
	c.pkg = p
	if _, exists := p.classes[c.Name]; !exists {
		p.classOrder = append(p.classOrder, c.Name)
	}
	p.classes[c.Name] = c
}

// AllAttributes returns the attributes of the class including inherited
// ones, supertypes first. Supertype cycles are tolerated.
func (c *Class) AllAttributes() []*Attribute {
	var out []*Attribute
	c.walkSupers(map[*Class]bool{}, func(cl *Class) {
		out = append(out, cl.Attributes...)
	})
	return out
}

// AllReferences returns the references of the class including inherited
// ones, supertypes first.
func (c *Class) AllReferences() []*Reference {
	var out []*Reference
	c.walkSupers(map[*Class]bool{}, func(cl *Class) {
		out = append(out, cl.References...)
	})
	return out
}

func (c *Class) walkSupers(seen map[*Class]bool, visit func(*Class)) {
	if seen[c] {
		return
	}
	seen[c] = true
	for _, s := range c.SuperTypes {
		s.walkSupers(seen, visit)
	}
	visit(c)
}

// Attribute looks up an attribute (own or inherited) by name.
func (c *Class) Attribute(name string) *Attribute {
	for _, a := range c.AllAttributes() {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Reference looks up a reference (own or inherited) by name.
func (c *Class) Reference(name string) *Reference {
	for _, r := range c.AllReferences() {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// IsSubtypeOf reports whether c equals other or has it in its supertype
// chain.
func (c *Class) IsSubtypeOf(other *Class) bool {
	found := false
	c.walkSupers(map[*Class]bool{}, func(cl *Class) {
		if cl == other {
			found = true
		}
	})
	return found
}

// Package returns the owning package of the class.
func (c *Class) Package() *Package {
	return c.pkg
}
