package xmi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useblocks/emfbridge/ecore"
)

const libraryEcore = `<?xml version="1.0" encoding="UTF-8"?>
<ecore:EPackage xmi:version="2.0" xmlns:xmi="http://www.omg.org/XMI" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:ecore="http://www.eclipse.org/emf/2002/Ecore" name="library" nsURI="http://example.org/library/1.0" nsPrefix="lib">
  <eClassifiers xsi:type="ecore:EClass" name="Library">
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="name" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EString"/>
    <eStructuralFeatures xsi:type="ecore:EReference" name="books" upperBound="-1" eType="#//Book" containment="true"/>
    <eStructuralFeatures xsi:type="ecore:EReference" name="featured" upperBound="-1" eType="#//Book"/>
  </eClassifiers>
  <eClassifiers xsi:type="ecore:EClass" name="Book">
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="name" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EString"/>
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="pages" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EInt"/>
  </eClassifiers>
  <eClassifiers xsi:type="ecore:EClass" name="Novel" eSuperTypes="#//Book">
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="genre" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EString"/>
  </eClassifiers>
</ecore:EPackage>
`

// libraryXMI is written in exactly the format Marshal produces so the
// round-trip test can compare bytes.
const libraryXMI = `<?xml version="1.0" encoding="UTF-8"?>
<lib:Library
    xmi:version="2.0"
    xmlns:xmi="http://www.omg.org/XMI"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xmlns:lib="http://example.org/library/1.0"
    xmi:id="lib1"
    name="Main Library"
    featured="b2">
  <books
      xmi:id="b1"
      name="The Go Programming Language"
      pages="380"/>
  <books
      xsi:type="lib:Novel"
      xmi:id="b2"
      name="Collected Stories &amp; Poems"
      pages="120"
      genre="fiction"/>
</lib:Library>
`

func loadPkg(t *testing.T) *ecore.Package {
	t.Helper()
	pkg, err := ecore.Parse([]byte(libraryEcore))
	require.NoError(t, err)
	return pkg
}

func TestParseModel(t *testing.T) {
	pkg := loadPkg(t)
	m, err := Parse([]byte(libraryXMI), pkg)
	require.NoError(t, err)
	require.Len(t, m.Roots, 1)

	root := m.Roots[0]
	assert.Equal(t, "Library", root.Class.Name)
	assert.Equal(t, "lib1", root.ID)

	name, ok := root.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "Main Library", name)
	assert.Equal(t, []string{"b2"}, root.Refs("featured"))

	books := root.Children("books")
	require.Len(t, books, 2)
	assert.Equal(t, "Book", books[0].Class.Name)
	assert.Same(t, root, books[0].Parent)

	// xsi:type narrows to the subtype
	assert.Equal(t, "Novel", books[1].Class.Name)
	genre, ok := books[1].Attr("genre")
	require.True(t, ok)
	assert.Equal(t, "fiction", genre)

	// escaped attribute value is unescaped on load
	title, _ := books[1].Attr("name")
	assert.Equal(t, "Collected Stories & Poems", title)

	idx := m.Index()
	assert.Same(t, books[1], idx["b2"])
	assert.Len(t, m.Objects(), 3)
}

func TestParseUnresolvedRef(t *testing.T) {
	pkg := loadPkg(t)
	bad := `<lib:Library xmlns:xmi="http://www.omg.org/XMI" xmlns:lib="http://example.org/library/1.0" xmi:id="lib1" featured="nope"/>`
	_, err := Parse([]byte(bad), pkg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedRef)
}

func TestParseUnknownFeature(t *testing.T) {
	pkg := loadPkg(t)
	bad := `<lib:Library xmlns:xmi="http://www.omg.org/XMI" xmlns:lib="http://example.org/library/1.0" xmi:id="lib1" bogus="x"/>`
	_, err := Parse([]byte(bad), pkg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestRoundTrip(t *testing.T) {
	pkg := loadPkg(t)
	m, err := Parse([]byte(libraryXMI), pkg)
	require.NoError(t, err)

	out, err := Marshal(m, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, libraryXMI, string(out))
}

func TestSaveGeneratesIDs(t *testing.T) {
	pkg := loadPkg(t)
	lib, err := pkg.Class("Library")
	require.NoError(t, err)
	book, err := pkg.Class("Book")
	require.NoError(t, err)

	root := NewObject(lib)
	child := NewObject(book)
	child.SetAttr("name", "Untitled")
	root.AddChild("books", child)

	m := &Model{Package: pkg, Roots: []*Object{root}}
	path := filepath.Join(t.TempDir(), "out.xmi")
	require.NoError(t, Save(m, path, SaveOptions{}))

	assert.NotEmpty(t, root.ID)
	assert.NotEmpty(t, child.ID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	reloaded, err := Parse(data, pkg)
	require.NoError(t, err)
	assert.Len(t, reloaded.Objects(), 2)
}

func TestSortAttributes(t *testing.T) {
	pkg := loadPkg(t)
	book, err := pkg.Class("Book")
	require.NoError(t, err)

	obj := NewObject(book)
	obj.ID = "b1"
	obj.SetAttr("pages", "10")
	obj.SetAttr("name", "A")

	m := &Model{Package: pkg, Roots: []*Object{obj}}
	out, err := Marshal(m, SaveOptions{SortAttributes: true})
	require.NoError(t, err)

	nameIdx := strings.Index(string(out), "name=")
	pagesIdx := strings.Index(string(out), "pages=")
	require.GreaterOrEqual(t, nameIdx, 0)
	require.GreaterOrEqual(t, pagesIdx, 0)
	assert.Less(t, nameIdx, pagesIdx)
}
