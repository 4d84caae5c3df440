package markdown

import (
	"bytes"
	"fmt"
	"html"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// syntaxPattern is a cheap over-approximation of "may contain markdown".
// Content that does not match is rendered as escaped plain text.
var syntaxPattern = regexp.MustCompile("[*_~`#\\[\\]()>-]|(1.)")

// HasMarkdownSyntax reports whether content needs the markdown renderer.
func HasMarkdownSyntax(content string) bool {
	return syntaxPattern.MatchString(content)
}

// Rendered is the HTML form of a message.
type Rendered struct {
	Markdown bool   `json:"markdown"`
	HTML     string `json:"html"`
}

// Renderer turns message content into HTML with GitHub-flavoured markdown
// (tables, strikethrough, autolinks, task lists). Raw HTML in messages is
// never passed through, and a single newline stays a soft break.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Render converts content. Plain content skips the parser entirely.
func (r *Renderer) Render(content string) (Rendered, error) {
	if content == "" {
		return Rendered{}, nil
	}
	if !HasMarkdownSyntax(content) {
		return Rendered{HTML: "<p>" + html.EscapeString(content) + "</p>"}, nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return Rendered{}, fmt.Errorf("markdown: rendering: %w", err)
	}
	return Rendered{Markdown: true, HTML: buf.String()}, nil
}
