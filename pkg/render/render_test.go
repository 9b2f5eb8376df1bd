package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLRendersMarkdown(t *testing.T) {
	out, err := NewHTML().Render("# Canberra\n\nThe **capital** of Australia.")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Canberra</h1>")
	assert.Contains(t, out, "<strong>capital</strong>")
}

func TestHTMLSupportsTables(t *testing.T) {
	out, err := NewHTML().Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestHTMLOmitsRawHTML(t *testing.T) {
	out, err := NewHTML().Render("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestTerminalRendersText(t *testing.T) {
	r, err := NewTerminal(0)
	require.NoError(t, err)

	out, err := r.Render("some **bold** words")
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "words")
}

func TestPlainIsIdentity(t *testing.T) {
	in := "*unchanged* text"
	out, err := Plain{}.Render(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, strings.HasPrefix(out, "*"))
}
