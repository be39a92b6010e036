// Package needs models Sphinx-Needs documentation objects and converts
// them to and from reStructuredText need directives.
package needs

// Need is one structured documentation object.
type Need struct {
	ID    string
	Type  string
	Title string

	// Options are scalar extra options, in render order.
	Options []Option
	// Links are need link options (option name -> target need ids).
	Links []LinkOption
	// Content are direct content sections rendered into the need body.
	Content []Section
	// Nested are groups of needs nested inside the body, one group per
	// originating model feature.
	Nested []NestedGroup
}

// Option is a scalar need option.
type Option struct {
	Name  string
	Value string
}

// LinkOption is a need link option listing target need ids.
type LinkOption struct {
	Name    string
	Targets []string
}

// Section is a titled block of direct content.
type Section struct {
	Title string
	Text  string
}

// NestedGroup is a titled list of nested needs.
type NestedGroup struct {
	Title string
	Needs []*Need
}

// Option returns the value of a scalar option.
func (n *Need) Option(name string) (string, bool) {
	for _, o := range n.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// SetOption sets or replaces a scalar option.
func (n *Need) SetOption(name, value string) {
	for i, o := range n.Options {
		if o.Name == name {
			n.Options[i].Value = value
			return
		}
	}
	n.Options = append(n.Options, Option{Name: name, Value: value})
}

// Link returns the target ids of a link option.
func (n *Need) Link(name string) ([]string, bool) {
	for _, l := range n.Links {
		if l.Name == name {
			return l.Targets, true
		}
	}
	return nil, false
}

// Section returns the text of a direct content section.
func (n *Need) Section(title string) (string, bool) {
	for _, s := range n.Content {
		if s.Title == title {
			return s.Text, true
		}
	}
	return "", false
}

// Walk visits the need and all nested needs depth first.
func (n *Need) Walk(visit func(*Need)) {
	visit(n)
	for _, g := range n.Nested {
		for _, inner := range g.Needs {
			inner.Walk(visit)
		}
	}
}

// IndexByID builds a need-id index over the given trees. Later duplicates
// win, matching how a documentation build would override earlier needs.
func IndexByID(trees []*Need) map[string]*Need {
	idx := make(map[string]*Need)
	for _, tree := range trees {
		tree.Walk(func(n *Need) {
			idx[n.ID] = n
		})
	}
	return idx
}
