package driven

import "context"

// TextExtractor converts raw document bytes of one format into plain text.
// PDF/DOC decoding is an opaque capability: bytes in, text out. Extractors
// report failures as *domain.ExtractionError (password-required,
// invalid-password, corrupt-content).
type TextExtractor interface {
	// ExtractText decodes data into plain text. The password is used for
	// protected documents and ignored by formats without encryption.
	ExtractText(ctx context.Context, data []byte, password string) (string, error)
}

// ExtractorRegistry resolves a TextExtractor for a mime type.
// Get returns nil for unsupported formats.
type ExtractorRegistry interface {
	Get(mimeType string) TextExtractor

	// Supported lists the registered mime types
	Supported() []string
}
