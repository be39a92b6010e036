package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// XMIIDField is the pseudo field name resolving to an object's xmi:id.
// It can be used wherever an ECore field name is expected.
const XMIIDField = "xmi:id"

// ClassMapping defines how one ECore class becomes a need.
type ClassMapping struct {
	// NeedType is the need directive name, e.g. "story".
	NeedType string `yaml:"need_type"`
	// ID names the field (or field+transformer) producing the need id.
	ID FieldSource `yaml:"id"`
	// Title names the field producing the need title. Empty titles fall
	// back to the need id.
	Title FieldSource `yaml:"title"`
	// Options maps ECore fields to need options. Scalar fields become
	// extra options, reference fields become link options.
	Options []FieldMap `yaml:"options"`
	// Content maps ECore fields to need body sections. Scalar fields
	// become titled text blocks, containment fields become nested needs.
	Content []FieldMap `yaml:"content"`
	// Static sets fixed option values on every need of this class,
	// rendered in name order. Field-mapped options override them.
	Static map[string]string `yaml:"need_static"`
	// Settings holds per-class import behavior.
	Settings MappingSettings `yaml:"settings"`
}

// MappingSettings are per-class import switches.
type MappingSettings struct {
	// RemoveIfUnlinked drops imported needs of this class when no other
	// need links to them.
	RemoveIfUnlinked bool `yaml:"remove_if_unlinked"`
	// RemoveIgnoredLinkSources lists classes whose links do not count
	// when deciding RemoveIfUnlinked.
	RemoveIgnoredLinkSources []string `yaml:"remove_ignored_link_sources"`
}

// FieldSource selects a model field, optionally piped through a named
// transformer. In YAML it is either a plain string or a mapping:
//
//	id: name
//	id: {field: name, transformer: upper}
type FieldSource struct {
	Field       string `yaml:"field"`
	Transformer string `yaml:"transformer"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (f *FieldSource) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Field = node.Value
		return nil
	}
	type plain FieldSource
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("field source: %w", err)
	}
	*f = FieldSource(p)
	return nil
}

// FieldMap maps one ECore field to a need option name or content section
// title.
type FieldMap struct {
	// Field is the ECore attribute or reference name.
	Field string `yaml:"field"`
	// Target is the need option name (options) or section title (content).
	Target string `yaml:"target"`
	// Transformer optionally names a registered transformer applied to
	// scalar values.
	Transformer string `yaml:"transformer"`
}

// Lookup finds the mapping entry for an ECore field in options first, then
// content, mirroring the precedence of the import walk.
func (m *ClassMapping) Lookup(field string) (FieldMap, string, bool) {
	for _, fm := range m.Options {
		if fm.Field == field {
			return fm, "options", true
		}
	}
	for _, fm := range m.Content {
		if fm.Field == field {
			return fm, "content", true
		}
	}
	return FieldMap{}, "", false
}

// NeedTypeToClass inverts the class mapping table. Duplicate need types
// are an error because the export could not decide which class to build.
func (c *Config) NeedTypeToClass() (map[string]string, error) {
	out := make(map[string]string, len(c.Classes))
	for class, m := range c.Classes {
		if m == nil {
			continue
		}
		if prev, dup := out[m.NeedType]; dup {
			return nil, fmt.Errorf("need type %s mapped by both %s and %s", m.NeedType, prev, class)
		}
		out[m.NeedType] = class
	}
	return out, nil
}

// TransformerNames returns every transformer name referenced by the
// mapping table, so callers can verify them against a hook registry.
func (c *Config) TransformerNames() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, m := range c.Classes {
		if m == nil {
			continue
		}
		add(m.ID.Transformer)
		add(m.Title.Transformer)
		for _, fm := range m.Options {
			add(fm.Transformer)
		}
		for _, fm := range m.Content {
			add(fm.Transformer)
		}
	}
	return out
}
