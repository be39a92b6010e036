// Package config provides configuration loading and validation for
// emfbridge. One YAML file drives both directions: importing an XMI model
// into RST need files and exporting edited needs back to XMI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete emfbridge configuration.
type Config struct {
	// ECore is the path to the .ecore metamodel. Required.
	ECore string `yaml:"ecore"`
	// XMI is the path to the XMI instance model, the import input.
	XMI string `yaml:"xmi"`
	// Docs are doublestar glob patterns selecting the RST files read on
	// export.
	Docs []string `yaml:"docs"`
	// Output configures the generated RST files.
	Output OutputConfig `yaml:"output"`
	// XMIOutput is the file the export writes.
	XMIOutput string `yaml:"xmi_output"`
	// TemplatesDir optionally holds *.rst.tmpl files injected into the
	// generated RST.
	TemplatesDir string `yaml:"templates_dir"`

	// Classes maps ECore class names to need definitions.
	Classes map[string]*ClassMapping `yaml:"classes"`

	// Import filters, evaluated in order: allowed classes, denied classes,
	// allowed values, denied values.
	AllowedClasses []string                       `yaml:"allowed_classes"`
	DeniedClasses  []string                       `yaml:"denied_classes"`
	AllowedValues  map[string]map[string][]string `yaml:"allowed_values"`
	DeniedValues   map[string]map[string][]string `yaml:"denied_values"`

	// SortField naturally sorts child object lists by this attribute for
	// reproducible output. Empty disables sorting.
	SortField string `yaml:"sort_field"`
	// RSTIndent is the number of spaces per RST indentation level.
	RSTIndent int `yaml:"rst_indent"`
	// ShowNestedNeedTitle renders a bold title above nested needs.
	ShowNestedNeedTitle bool `yaml:"show_nested_need_title"`

	// ModelRoots lists the root class names for export, in output order.
	ModelRoots []string `yaml:"model_roots"`
	// SortXMIAttributes orders exported XMI attributes by name.
	SortXMIAttributes bool `yaml:"sort_xmi_attributes"`
	// ConvertRSTToPlain runs the rst_to_plain conversion on exported
	// content sections.
	ConvertRSTToPlain bool `yaml:"convert_rst_to_plain"`

	// PreLoadHook and PostLoadHook name registered model hooks.
	PreLoadHook  string `yaml:"pre_load_hook"`
	PostLoadHook string `yaml:"post_load_hook"`
}

// OutputConfig routes generated needs to RST files.
type OutputConfig struct {
	// Dir is the output directory, created if missing.
	Dir string `yaml:"dir"`
	// Files fan the needs out over several RST files by ECore type. The
	// list order decides which file claims a type first.
	Files []OutputFile `yaml:"files"`
}

// OutputFile is one RST output target.
type OutputFile struct {
	// Path is the file name relative to the output dir.
	Path string `yaml:"path"`
	// Types lists the ECore classes routed into this file.
	Types []string `yaml:"types"`
	// Default marks the file receiving all unclaimed types. At most one
	// entry may set it.
	Default bool `yaml:"default"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		XMIOutput:           "model.xmi",
		RSTIndent:           3,
		ShowNestedNeedTitle: true,
		ConvertRSTToPlain:   true,
	}
}

// LoadFromFile loads configuration from a YAML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the direction-independent configuration rules.
func (c *Config) Validate() error {
	if c.ECore == "" {
		return fmt.Errorf("ecore is required")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("classes mapping table is required")
	}
	if c.RSTIndent <= 0 {
		return fmt.Errorf("rst_indent must be positive")
	}
	for class, m := range c.Classes {
		if m == nil {
			return fmt.Errorf("class %s: mapping must not be empty", class)
		}
		if m.NeedType == "" {
			return fmt.Errorf("class %s: need_type is required", class)
		}
		if m.ID.Field == "" {
			return fmt.Errorf("class %s: id field is required", class)
		}
	}
	if _, err := c.NeedTypeToClass(); err != nil {
		return err
	}
	return c.validateOutput()
}

func (c *Config) validateOutput() error {
	seenTypes := make(map[string]string)
	defaults := 0
	for _, f := range c.Output.Files {
		if f.Path == "" {
			return fmt.Errorf("output file without path")
		}
		if f.Default {
			defaults++
			if defaults > 1 {
				return fmt.Errorf("only one output file may set default")
			}
		}
		if !f.Default && len(f.Types) == 0 {
			return fmt.Errorf("output file %s needs types or default", f.Path)
		}
		for _, tp := range f.Types {
			if prev, dup := seenTypes[tp]; dup {
				return fmt.Errorf("type %s routed to both %s and %s", tp, prev, f.Path)
			}
			seenTypes[tp] = f.Path
		}
	}
	return nil
}

// ValidateImport checks the rules specific to the XMI -> RST direction.
func (c *Config) ValidateImport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.XMI == "" {
		return fmt.Errorf("xmi is required for import")
	}
	if len(c.Output.Files) == 0 {
		return fmt.Errorf("output.files is required for import")
	}
	return nil
}

// ValidateExport checks the rules specific to the RST -> XMI direction.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Docs) == 0 {
		return fmt.Errorf("docs is required for export")
	}
	if len(c.ModelRoots) == 0 {
		return fmt.Errorf("model_roots is required for export")
	}
	for _, root := range c.ModelRoots {
		if _, ok := c.Classes[root]; !ok {
			return fmt.Errorf("model root %s has no class mapping", root)
		}
	}
	return nil
}

// Merge merges another config into this one; other takes precedence for
// non-zero values. Used for command line flag overrides.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.ECore != "" {
		c.ECore = other.ECore
	}
	if other.XMI != "" {
		c.XMI = other.XMI
	}
	if other.XMIOutput != "" {
		c.XMIOutput = other.XMIOutput
	}
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.TemplatesDir != "" {
		c.TemplatesDir = other.TemplatesDir
	}
	if len(other.Docs) > 0 {
		c.Docs = other.Docs
	}
	if other.RSTIndent != 0 {
		c.RSTIndent = other.RSTIndent
	}
}

// LinkOptionNames collects every need option name that carries link
// targets, across all class mappings. The RST reader needs them to tell
// link options from scalar options. Content-mapped references count too:
// the import emits a link option named after the group when nested needs
// are routed to another file.
func (c *Config) LinkOptionNames(isReference func(class, field string) bool) []string {
	seen := make(map[string]bool)
	var out []string
	for class, m := range c.Classes {
		for _, fm := range m.Options {
			if isReference(class, fm.Field) && !seen[fm.Target] {
				seen[fm.Target] = true
				out = append(out, fm.Target)
			}
		}
		for _, fm := range m.Content {
			if isReference(class, fm.Field) && !seen[fm.Target] {
				seen[fm.Target] = true
				out = append(out, fm.Target)
			}
		}
	}
	return out
}
