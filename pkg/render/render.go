// Package render turns the model's markdown answer into display markup.
package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown to a display format.
type Renderer interface {
	Render(markdown string) (string, error)
}

// HTML renders GitHub-flavoured markdown to HTML. Raw HTML in the input
// is omitted from the output.
type HTML struct {
	md goldmark.Markdown
}

// NewHTML creates an HTML renderer.
func NewHTML() *HTML {
	return &HTML{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render converts markdown to HTML.
func (h *HTML) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// DefaultWordWrap is the terminal wrap width used when none is given.
const DefaultWordWrap = 80

// Terminal renders markdown with ANSI styling for a TTY.
type Terminal struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer wrapping at width columns.
func NewTerminal(width int) (*Terminal, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &Terminal{tr: tr}, nil
}

// Render converts markdown to styled terminal text.
func (t *Terminal) Render(markdown string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.tr.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render terminal: %w", err)
	}
	return out, nil
}

// Plain returns the markdown unchanged.
type Plain struct{}

// Render returns markdown as is.
func (Plain) Render(markdown string) (string, error) {
	return markdown, nil
}
