package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*Markdown)(nil)

// Markdown extracts plain text from markdown documents, stripping the
// formatting so chunk offsets track readable content.
type Markdown struct{}

// NewMarkdown creates a Markdown extractor
func NewMarkdown() *Markdown {
	return &Markdown{}
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`[^`]+`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// ExtractText strips markdown syntax and returns the remaining text
func (m *Markdown) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.NewExtractionError(domain.ReasonCorruptContent, "content is not valid UTF-8")
	}

	content := string(data)
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	return defaultPipeline.Apply(content), nil
}
