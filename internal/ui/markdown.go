package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown using glamour, word-wrapped to the
// terminal. Returns the original text when color is off or rendering
// fails, keeping output clean for pipes and agents.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() {
		return markdown
	}

	const maxReadableWidth = 100
	wrapWidth := GetWidth()
	if wrapWidth > maxReadableWidth {
		wrapWidth = maxReadableWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
