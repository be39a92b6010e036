package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useblocks/emfbridge/xmi"
)

func TestEscapeRSTSingleLine(t *testing.T) {
	out, err := EscapeRST("the *.json files", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `the \*.json files`, out)
}

func TestEscapeRSTMultiLine(t *testing.T) {
	out, err := EscapeRST("first line\r\nsecond `code`", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "| first line\n| second \\`code\\`", out)
}

func TestEscapeRSTXMLEscapeSequence(t *testing.T) {
	out, err := EscapeRST("a&#xD;&#xA;b", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "| a\n| b", out)
}

func TestRSTToPlainInverse(t *testing.T) {
	cases := []string{
		"plain text",
		"the *.json files",
		`back\slash and *star*`,
		"a `tick`",
	}
	for _, in := range cases {
		escaped, err := EscapeRST(in, nil, nil)
		require.NoError(t, err)
		plain, err := RSTToPlain(escaped, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, in, plain)
	}
}

func TestRSTToPlainStripsLineBlocks(t *testing.T) {
	out, err := RSTToPlain("| first\n| second", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", out)
}

func TestHTMLToMarkdown(t *testing.T) {
	out, err := HTMLToMarkdown("<p>Hello <strong>world</strong></p>", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "**world**")
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"escape_rst", "rst_to_plain", "html_to_markdown", "trim", "upper"} {
		assert.True(t, r.HasTransformer(name), name)
	}

	_, err := r.Transformer("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTransformer)
}

func TestRegistryCustomTransformer(t *testing.T) {
	r := NewRegistry()
	r.RegisterTransformer("shout", func(v string, _ *xmi.Object, _ *Context) (string, error) {
		return v + "!", nil
	})

	tr, err := r.Transformer("shout")
	require.NoError(t, err)
	out, err := tr("hey", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hey!", out)
}

func TestRegistryHooks(t *testing.T) {
	r := NewRegistry()
	_, err := r.PreLoadHook("missing")
	assert.ErrorIs(t, err, ErrUnknownHook)
	_, err = r.PostLoadHook("missing")
	assert.ErrorIs(t, err, ErrUnknownHook)

	r.RegisterPostLoadHook("first_root_only", func(roots []*xmi.Object) ([]*xmi.Object, error) {
		return roots[:1], nil
	})
	h, err := r.PostLoadHook("first_root_only")
	require.NoError(t, err)
	out, err := h([]*xmi.Object{nil, nil})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
