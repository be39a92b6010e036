package ecore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureEcore = `<?xml version="1.0" encoding="UTF-8"?>
<ecore:EPackage xmi:version="2.0" xmlns:xmi="http://www.omg.org/XMI" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:ecore="http://www.eclipse.org/emf/2002/Ecore" name="library" nsURI="http://example.org/library/1.0" nsPrefix="lib">
  <eClassifiers xsi:type="ecore:EClass" name="Named" abstract="true">
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="name" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EString"/>
  </eClassifiers>
  <eClassifiers xsi:type="ecore:EClass" name="Library" eSuperTypes="#//Named">
    <eStructuralFeatures xsi:type="ecore:EReference" name="books" upperBound="-1" eType="#//Book" containment="true"/>
    <eStructuralFeatures xsi:type="ecore:EReference" name="featured" upperBound="-1" eType="#//Book"/>
  </eClassifiers>
  <eClassifiers xsi:type="ecore:EClass" name="Book" eSuperTypes="#//Named">
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="pages">
      <eType xsi:type="ecore:EDataType" href="http://www.eclipse.org/emf/2002/Ecore#//EInt"/>
    </eStructuralFeatures>
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="category" eType="#//Category"/>
    <eStructuralFeatures xsi:type="ecore:EAttribute" name="available" eType="ecore:EDataType http://www.eclipse.org/emf/2002/Ecore#//EBoolean" defaultValueLiteral="true"/>
  </eClassifiers>
  <eClassifiers xsi:type="ecore:EEnum" name="Category">
    <eLiterals name="novel"/>
    <eLiterals name="science" value="1"/>
    <eLiterals name="poetry" value="2"/>
  </eClassifiers>
</ecore:EPackage>
`

func TestParsePackage(t *testing.T) {
	pkg, err := Parse([]byte(fixtureEcore))
	require.NoError(t, err)

	assert.Equal(t, "library", pkg.Name)
	assert.Equal(t, "http://example.org/library/1.0", pkg.NsURI)
	assert.Equal(t, "lib", pkg.NsPrefix)

	lib, err := pkg.Class("Library")
	require.NoError(t, err)
	assert.False(t, lib.Abstract)
	require.Len(t, lib.SuperTypes, 1)
	assert.Equal(t, "Named", lib.SuperTypes[0].Name)

	named, err := pkg.Class("Named")
	require.NoError(t, err)
	assert.True(t, named.Abstract)
}

func TestInheritanceFlattening(t *testing.T) {
	pkg, err := Parse([]byte(fixtureEcore))
	require.NoError(t, err)

	book, err := pkg.Class("Book")
	require.NoError(t, err)

	attrs := book.AllAttributes()
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	// inherited attribute first
	assert.Equal(t, []string{"name", "pages", "category", "available"}, names)

	assert.NotNil(t, book.Attribute("name"))
	assert.Nil(t, book.Attribute("missing"))

	named, err := pkg.Class("Named")
	require.NoError(t, err)
	assert.True(t, book.IsSubtypeOf(named))
	assert.False(t, named.IsSubtypeOf(book))
}

func TestFeatureTypes(t *testing.T) {
	pkg, err := Parse([]byte(fixtureEcore))
	require.NoError(t, err)

	book, err := pkg.Class("Book")
	require.NoError(t, err)

	assert.Equal(t, Int, book.Attribute("pages").Type)
	assert.Equal(t, Boolean, book.Attribute("available").Type)
	assert.Equal(t, "true", book.Attribute("available").Default)

	cat := book.Attribute("category")
	require.NotNil(t, cat.Enum)
	assert.True(t, cat.Enum.HasLiteral("science"))
	assert.False(t, cat.Enum.HasLiteral("cooking"))

	lib, err := pkg.Class("Library")
	require.NoError(t, err)
	books := lib.Reference("books")
	require.NotNil(t, books)
	assert.True(t, books.Containment)
	assert.True(t, books.Many)
	assert.Equal(t, "Book", books.Type.Name)

	featured := lib.Reference("featured")
	require.NotNil(t, featured)
	assert.False(t, featured.Containment)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.ecore")
	require.NoError(t, os.WriteFile(path, []byte(fixtureEcore), 0o644))

	pkg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, pkg.Classes(), 3)

	_, err = LoadFile(filepath.Join(dir, "missing.ecore"))
	assert.Error(t, err)
}

func TestBadTypeRef(t *testing.T) {
	broken := `<?xml version="1.0"?>
<ecore:EPackage xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:ecore="http://www.eclipse.org/emf/2002/Ecore" name="p" nsURI="http://p" nsPrefix="p">
  <eClassifiers xsi:type="ecore:EClass" name="A">
    <eStructuralFeatures xsi:type="ecore:EReference" name="b" eType="#//Missing"/>
  </eClassifiers>
</ecore:EPackage>`
	_, err := Parse([]byte(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClassifier)
}
