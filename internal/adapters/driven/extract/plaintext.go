package extract

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*Plaintext)(nil)

// defaultPipeline normalises extractor output; shared across formats.
var defaultPipeline = DefaultPipeline()

// Plaintext extracts text from UTF-8 encoded files. Content that is not
// valid UTF-8 is rejected rather than mangled.
type Plaintext struct{}

// NewPlaintext creates a Plaintext extractor
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExtractText returns the file content as text
func (p *Plaintext) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return "", domain.NewExtractionError(domain.ReasonCorruptContent, "content is not valid UTF-8")
	}

	return defaultPipeline.Apply(string(data)), nil
}
