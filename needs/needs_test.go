package needs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Need {
	return &Need{
		ID:    "STORY_abc",
		Type:  "story",
		Title: "The alphabet story",
		Options: []Option{
			{Name: "status", Value: "open"},
		},
		Links: []LinkOption{
			{Name: "requirements", Targets: []string{"REQ_sorted", "REQ_letters"}},
		},
		Content: []Section{
			{Title: "Description", Text: "Names all letters."},
			{Title: "Long Description", Text: "Special care for:\n\n- the sort order\n- no missing letters"},
		},
		Nested: []NestedGroup{
			{
				Title: "Requirements",
				Needs: []*Need{
					{ID: "REQ_sorted", Type: "requirement", Title: "Must be sorted"},
					{ID: "REQ_letters", Type: "requirement", Title: "Must not forget a letter",
						Options: []Option{{Name: "status", Value: "done"}}},
				},
			},
		},
	}
}

const sampleRST = `.. story:: The alphabet story
   :id: STORY_abc
   :status: open
   :requirements: REQ_sorted, REQ_letters

   **Description** Names all letters.

   **Long Description**

   Special care for:

   - the sort order
   - no missing letters

   **Requirements**

   .. requirement:: Must be sorted
      :id: REQ_sorted

   .. requirement:: Must not forget a letter
      :id: REQ_letters
      :status: done
`

func TestWriterRenderFile(t *testing.T) {
	w := NewWriter()
	out, err := w.RenderFile("index", []*Need{sampleTree()})
	require.NoError(t, err)
	assert.Equal(t, sampleRST, out)
}

func TestWriterHidesNestedTitle(t *testing.T) {
	w := NewWriter()
	w.ShowNestedTitle = false
	out, err := w.RenderFile("index", []*Need{sampleTree()})
	require.NoError(t, err)
	assert.NotContains(t, out, "**Requirements**")
	assert.Contains(t, out, ".. requirement:: Must be sorted")
}

func TestWriterSkipsEmptySections(t *testing.T) {
	// a bare bold line would read back as a nested group title, so empty
	// sections are not rendered
	w := NewWriter()
	w.ShowNestedTitle = false
	tree := &Need{
		ID: "S1", Type: "story", Title: "Story",
		Content: []Section{{Title: "Notes", Text: ""}},
		Nested: []NestedGroup{{Title: "Items", Needs: []*Need{
			{ID: "R1", Type: "requirement", Title: "First"},
		}}},
	}
	out, err := w.RenderFile("index", []*Need{tree})
	require.NoError(t, err)
	assert.NotContains(t, out, "**Notes**")

	parsed, err := NewReader().Parse(out)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Empty(t, parsed[0].Content)
	require.Len(t, parsed[0].Nested, 1)
	require.Len(t, parsed[0].Nested[0].Needs, 1)
	assert.Equal(t, "R1", parsed[0].Nested[0].Needs[0].ID)
}

func TestReaderInverseOfWriter(t *testing.T) {
	r := NewReader("requirements")
	parsed, err := r.Parse(sampleRST)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, sampleTree(), parsed[0])
}

func TestReaderMultipleRoots(t *testing.T) {
	content := `Intro prose is ignored.

.. req:: First
   :id: R1

.. req:: Second
   :id: R2
   :links: R1
`
	r := NewReader("links")
	parsed, err := r.Parse(content)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "R1", parsed[0].ID)
	targets, ok := parsed[1].Link("links")
	require.True(t, ok)
	assert.Equal(t, []string{"R1"}, targets)
}

func TestReaderParseGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rst"), []byte(".. req:: A\n   :id: A1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.rst"), []byte(".. req:: B\n   :id: B1\n"), 0o644))

	r := NewReader()
	all, err := r.ParseGlob([]string{filepath.Join(dir, "**", "*.rst")})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIndexByID(t *testing.T) {
	idx := IndexByID([]*Need{sampleTree()})
	assert.Len(t, idx, 3)
	assert.Equal(t, "requirement", idx["REQ_sorted"].Type)
}

func TestTemplateInjection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "index_header.rst.tmpl"),
		[]byte("Model Overview\n==============\n\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "story_pre.rst.tmpl"),
		[]byte(".. note:: generated from {{.Need.ID}}\n"), 0o644))

	ts, err := LoadTemplates(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Len())

	w := NewWriter()
	w.Templates = ts
	out, err := w.RenderFile("index", []*Need{sampleTree()})
	require.NoError(t, err)

	assert.Contains(t, out, "Model Overview\n==============")
	assert.Contains(t, out, ".. note:: generated from STORY_abc")
}

func TestLoadTemplatesMissingDir(t *testing.T) {
	ts, err := LoadTemplates(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, ts.Len())
}
