// Package xmi loads and saves XMI instance models against an ECore
// metamodel. Objects are generic: the metamodel decides which XML
// attributes are ECore attributes and which are reference id lists.
package xmi

import (
	"github.com/useblocks/emfbridge/ecore"
)

// Object is one instance in an XMI model.
type Object struct {
	Class  *ecore.Class
	ID     string
	Parent *Object

	attrs    map[string]string
	children map[string][]*Object
	refs     map[string][]string
}

// NewObject creates an empty instance of the given class.
func NewObject(class *ecore.Class) *Object {
	return &Object{
		Class:    class,
		attrs:    make(map[string]string),
		children: make(map[string][]*Object),
		refs:     make(map[string][]string),
	}
}

// Attr returns the raw string value of an attribute and whether it is set.
func (o *Object) Attr(name string) (string, bool) {
	v, ok := o.attrs[name]
	return v, ok
}

// SetAttr sets an attribute value.
func (o *Object) SetAttr(name, value string) {
	o.attrs[name] = value
}

// Children returns the contained objects of a containment feature.
func (o *Object) Children(feature string) []*Object {
	return o.children[feature]
}

// AddChild appends a child under a containment feature and sets its parent.
func (o *Object) AddChild(feature string, child *Object) {
	child.Parent = o
	o.children[feature] = append(o.children[feature], child)
}

// SetChildren replaces the child list of a containment feature, keeping
// parent pointers consistent.
func (o *Object) SetChildren(feature string, children []*Object) {
	for _, c := range children {
		c.Parent = o
	}
	o.children[feature] = children
}

// Refs returns the target ids of a non-containment reference feature.
func (o *Object) Refs(feature string) []string {
	return o.refs[feature]
}

// SetRefs sets the target ids of a non-containment reference feature.
func (o *Object) SetRefs(feature string, ids []string) {
	o.refs[feature] = ids
}

// AddRef appends one target id to a non-containment reference feature.
func (o *Object) AddRef(feature, id string) {
	o.refs[feature] = append(o.refs[feature], id)
}

// Walk visits the object and all contained objects depth first, children
// in metamodel feature order.
func (o *Object) Walk(visit func(*Object)) {
	visit(o)
	for _, ref := range o.Class.AllReferences() {
		if !ref.Containment {
			continue
		}
		for _, child := range o.children[ref.Name] {
			child.Walk(visit)
		}
	}
}

// Model is a loaded XMI resource: its metamodel and root objects.
type Model struct {
	Package *ecore.Package
	Roots   []*Object
}

// Index returns a map from xmi:id to object over all roots. Objects
// without an id are not indexed.
func (m *Model) Index() map[string]*Object {
	idx := make(map[string]*Object)
	for _, root := range m.Roots {
		root.Walk(func(o *Object) {
			if o.ID != "" {
				idx[o.ID] = o
			}
		})
	}
	return idx
}

// Objects returns all objects of the model in traversal order.
func (m *Model) Objects() []*Object {
	var out []*Object
	for _, root := range m.Roots {
		root.Walk(func(o *Object) {
			out = append(out, o)
		})
	}
	return out
}
