// Package markdown implements the message composer's text actions and the
// server-side rendering of message content.
package markdown

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default arguments of Link.
const (
	DefaultLinkText = "Link text"
	DefaultLinkURL  = "https://"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// Editor is the state of a message being composed: its text, the selection
// (byte offsets, start <= end) and whether the preview is showing.
//
// Every action edits the content and leaves the selection where the user
// would continue typing.
type Editor struct {
	content string
	start   int
	end     int
	preview bool
}

// NewEditor starts editing content with the caret at offset 0.
func NewEditor(content string) *Editor {
	return &Editor{content: content}
}

func (e *Editor) Content() string { return e.content }

// Selection returns the selected range; start == end is a caret.
func (e *Editor) Selection() (start, end int) { return e.start, e.end }

func (e *Editor) Preview() bool { return e.preview }

// SetContent replaces the text and clamps the selection into it.
func (e *Editor) SetContent(content string) {
	e.content = content
	e.Select(e.start, e.end)
}

// Select sets the selection. Offsets are clamped into the content, moved back
// to a rune boundary and ordered.
func (e *Editor) Select(start, end int) {
	start, end = e.clamp(start), e.clamp(end)
	if start > end {
		start, end = end, start
	}
	e.start, e.end = start, end
}

func (e *Editor) TogglePreview() { e.preview = !e.preview }

// Clear empties the content and resets the caret.
func (e *Editor) Clear() {
	e.content = ""
	e.start, e.end = 0, 0
}

func (e *Editor) Bold()          { e.wrap("**", "**") }
func (e *Editor) Italic()        { e.wrap("*", "*") }
func (e *Editor) Strikethrough() { e.wrap("~~", "~~") }

// Link wraps the selection as the link text of [title](url). Empty arguments
// take DefaultLinkText and DefaultLinkURL.
func (e *Editor) Link(url, title string) {
	if title == "" {
		title = DefaultLinkText
	}
	if url == "" {
		url = DefaultLinkURL
	}
	e.wrap("["+title+"](", url+")")
}

// Heading turns the caret's line into a heading of the given level (clamped
// to 1..6), replacing any heading marker the line already has. The caret
// moves to the end of the line.
func (e *Editor) Heading(level int) {
	level = max(1, min(6, level))

	lineStart := strings.LastIndexByte(e.content[:e.start], '\n') + 1
	lineEnd := len(e.content)
	if i := strings.IndexByte(e.content[e.start:], '\n'); i >= 0 {
		lineEnd = e.start + i
	}

	line := headingPrefix.ReplaceAllString(e.content[lineStart:lineEnd], "")
	newLine := strings.Repeat("#", level) + " " + line

	e.content = e.content[:lineStart] + newLine + e.content[lineEnd:]
	caret := lineStart + len(newLine)
	e.start, e.end = caret, caret
}

func (e *Editor) BulletList()   { e.insert("- ") }
func (e *Editor) NumberedList() { e.insert("1. ") }
func (e *Editor) Blockquote()   { e.insert("> ") }

// wrap surrounds the selection with prefix and suffix and keeps the same
// text selected. With no selection it inserts the pair and puts the caret
// between them.
func (e *Editor) wrap(prefix, suffix string) {
	selected := e.content[e.start:e.end]
	e.content = e.content[:e.start] + prefix + selected + suffix + e.content[e.end:]

	e.start += len(prefix)
	e.end = e.start + len(selected)
}

// insert puts marker at the selection start and moves the caret past it.
func (e *Editor) insert(marker string) {
	e.content = e.content[:e.start] + marker + e.content[e.start:]
	caret := e.start + len(marker)
	e.start, e.end = caret, caret
}

func (e *Editor) clamp(off int) int {
	if off < 0 {
		return 0
	}
	if off > len(e.content) {
		return len(e.content)
	}
	for off > 0 && off < len(e.content) && !utf8.RuneStart(e.content[off]) {
		off--
	}
	return off
}
