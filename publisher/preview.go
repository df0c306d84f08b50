package publisher

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"mystery_story_studio/generator"
)

// RenderPreview converts the story to HTML for display. The title line
// becomes a heading and the body is rendered as markdown, so the emphasis
// models sometimes emit shows up as such. Every body line is its own
// paragraph, matching the exported document.
func RenderPreview(story string) (string, error) {
	var md bytes.Buffer
	for _, p := range Paragraphs(story) {
		md.WriteString(p)
		md.WriteString("\n\n")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<h2>%s</h2>\n", html.EscapeString(generator.TitleOf(story)))
	if err := goldmark.Convert(md.Bytes(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
