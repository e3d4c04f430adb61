package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	frontMatter   = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	codeFence     = regexp.MustCompile("(?m)^```[^\n]*\n?")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	starBold      = regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*`)
	underBold     = regexp.MustCompile(`(^|\W)__(\S(?:.*?\S)?)__(\W|$)`)
	starItalic    = regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`)
	underItalic   = regexp.MustCompile(`(^|\W)_(\S(?:.*?\S)?)_(\W|$)`)
	blockquote    = regexp.MustCompile(`(?m)^>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	tableDivider  = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$`)
	htmlTags      = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEMarkdown, "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts markdown to plain text. Code block contents and link
// texts are kept; markup is dropped.
func (n *Normaliser) Normalise(_ context.Context, _ string, content []byte) (string, error) {
	return stripMarkdown(string(content)), nil
}

// stripMarkdown removes common markdown formatting.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = frontMatter.ReplaceAllString(content, "")

	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = starBold.ReplaceAllString(content, "${1}")
	content = underBold.ReplaceAllString(content, "${1}${2}${3}")
	content = starItalic.ReplaceAllString(content, "${1}")
	content = underItalic.ReplaceAllString(content, "${1}${2}${3}")
	content = blockquote.ReplaceAllString(content, "")
	content = tableDivider.ReplaceAllString(content, "")
	content = htmlTags.ReplaceAllString(content, "")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
