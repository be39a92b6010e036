package hooks

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/useblocks/emfbridge/xmi"
)

// XMI carries no markup language for plain text fields, so raw values are
// not safe RST: a lone "*" or "`" breaks inline markup. EscapeRST escapes
// those sequences and turns multi-line values into RST line blocks.
// RSTToPlain is its inverse and runs on export.

var escapeReplacer = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"`", "\\`",
)

var unescapeReplacer = strings.NewReplacer(
	`\*`, "*",
	"\\`", "`",
	`\\`, `\`,
)

// EscapeRST makes a plain text model value safe for RST output.
func EscapeRST(value string, _ *xmi.Object, _ *Context) (string, error) {
	lines := SplitModelLines(value)
	for i := range lines {
		lines[i] = escapeReplacer.Replace(lines[i])
	}
	if len(lines) <= 1 {
		return strings.Join(lines, ""), nil
	}
	for i := range lines {
		lines[i] = "| " + lines[i]
	}
	return strings.Join(lines, "\n"), nil
}

// RSTToPlain converts escaped RST back to plain text: line block prefixes
// are stripped and escape sequences resolved.
func RSTToPlain(value string, _ *xmi.Object, _ *Context) (string, error) {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = unescapeReplacer.Replace(strings.TrimPrefix(line, "| "))
	}
	return strings.Join(lines, "\n"), nil
}

var htmlConverter = md.NewConverter("", true, nil)

// HTMLToMarkdown converts rich text model values (some tools store HTML in
// XMI string attributes) to markdown-style text.
func HTMLToMarkdown(value string, _ *xmi.Object, _ *Context) (string, error) {
	out, err := htmlConverter.ConvertString(value)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Trim removes surrounding whitespace.
func Trim(value string, _ *xmi.Object, _ *Context) (string, error) {
	return strings.TrimSpace(value), nil
}

// Upper uppercases the value. Useful for building need ids from model
// fields.
func Upper(value string, _ *xmi.Object, _ *Context) (string, error) {
	return strings.ToUpper(value), nil
}

// SplitModelLines splits a model text value on the newline shapes found in
// XMI exports: \r\n, \n and the literal XML escape sequence "&#xD;&#xA;".
// Lines are trimmed and empty lines dropped.
func SplitModelLines(value string) []string {
	for _, seq := range []string{"&#xD;&#xA;", "\r\n"} {
		value = strings.ReplaceAll(value, seq, "\n")
	}
	var out []string
	for _, line := range strings.Split(value, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
