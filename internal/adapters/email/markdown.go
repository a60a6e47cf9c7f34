package email

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer escapes raw HTML in its input; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts user-written markdown into an HTML fragment for an email body.
// POST: never returns raw HTML from md; falls back to escaped text on render failure
func RenderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return buf.String()
}
