package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
ecore: model/library.ecore
xmi: model/library.xmi
docs:
  - docs/**/*.rst
output:
  dir: docs
  files:
    - path: library.rst
      types: [Library]
      default: true
xmi_output: build/library.xmi
model_roots: [Library]
sort_field: name
classes:
  Library:
    need_type: library
    id: xmi:id
    title: name
    options:
      - field: name
        target: name
    content:
      - field: books
        target: Books
  Book:
    need_type: book
    id:
      field: name
      transformer: upper
    title: name
    options:
      - field: pages
        target: pages
      - field: writers
        target: writers
    need_static:
      layout: clean
    settings:
      remove_if_unlinked: true
      remove_ignored_link_sources: [Library]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emfbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "model/library.ecore", cfg.ECore)
	assert.Equal(t, "build/library.xmi", cfg.XMIOutput)
	// defaults survive unmarshal
	assert.Equal(t, 3, cfg.RSTIndent)
	assert.True(t, cfg.ShowNestedNeedTitle)
	assert.True(t, cfg.ConvertRSTToPlain)

	lib := cfg.Classes["Library"]
	require.NotNil(t, lib)
	assert.Equal(t, "library", lib.NeedType)
	assert.Equal(t, XMIIDField, lib.ID.Field)
	assert.Empty(t, lib.ID.Transformer)

	book := cfg.Classes["Book"]
	require.NotNil(t, book)
	assert.Equal(t, "name", book.ID.Field)
	assert.Equal(t, "upper", book.ID.Transformer)
	assert.Equal(t, map[string]string{"layout": "clean"}, book.Static)
	assert.True(t, book.Settings.RemoveIfUnlinked)
	assert.Equal(t, []string{"Library"}, book.Settings.RemoveIgnoredLinkSources)

	require.NoError(t, cfg.ValidateImport())
	require.NoError(t, cfg.ValidateExport())
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing ecore", func(c *Config) { c.ECore = "" }, "ecore is required"},
		{"no classes", func(c *Config) { c.Classes = nil }, "classes mapping table"},
		{"bad indent", func(c *Config) { c.RSTIndent = 0 }, "rst_indent"},
		{"missing need type", func(c *Config) { c.Classes["Library"].NeedType = "" }, "need_type is required"},
		{"missing id", func(c *Config) { c.Classes["Library"].ID = FieldSource{} }, "id field is required"},
		{"duplicate need type", func(c *Config) { c.Classes["Book"].NeedType = "library" }, "need type library"},
		{"double default", func(c *Config) {
			c.Output.Files = append(c.Output.Files, OutputFile{Path: "x.rst", Default: true})
		}, "only one output file"},
		{"duplicate routed type", func(c *Config) {
			c.Output.Files = append(c.Output.Files, OutputFile{Path: "x.rst", Types: []string{"Library"}})
		}, "routed to both"},
		{"file without types", func(c *Config) {
			c.Output.Files = append(c.Output.Files, OutputFile{Path: "x.rst"})
		}, "needs types or default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateDirections(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.XMI = ""
	err = cfg.ValidateImport()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xmi is required")

	cfg, err = LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.ModelRoots = []string{"Shelf"}
	err = cfg.ValidateExport()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no class mapping")
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ECore = "a.ecore"
	cfg.Merge(&Config{ECore: "b.ecore", RSTIndent: 4})
	assert.Equal(t, "b.ecore", cfg.ECore)
	assert.Equal(t, 4, cfg.RSTIndent)

	cfg.Merge(nil)
	assert.Equal(t, "b.ecore", cfg.ECore)
}

func TestTransformerNames(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"upper"}, cfg.TransformerNames())
}

func TestLinkOptionNames(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	refs := map[string]bool{
		"Library.books": true,
		"Book.writers":  true,
	}
	names := cfg.LinkOptionNames(func(class, field string) bool {
		return refs[class+"."+field]
	})
	// content-mapped containment counts: routing can detach its needs
	// into a link option
	assert.ElementsMatch(t, []string{"writers", "Books"}, names)
}

func TestLookup(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	lib := cfg.Classes["Library"]
	fm, section, ok := lib.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "options", section)
	assert.Equal(t, "name", fm.Target)

	_, section, ok = lib.Lookup("books")
	require.True(t, ok)
	assert.Equal(t, "content", section)

	_, _, ok = lib.Lookup("missing")
	assert.False(t, ok)
}
