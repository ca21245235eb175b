package mocks

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// MockTextExtractor returns fixed text, or a fixed error, for any input.
// With neither set it passes the input bytes through as text.
type MockTextExtractor struct {
	Text     string
	FailWith error
}

func NewMockTextExtractor() *MockTextExtractor {
	return &MockTextExtractor{}
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return string(data), nil
}

// MockExtractorRegistry maps mime types to extractors
type MockExtractorRegistry struct {
	Extractors map[string]driven.TextExtractor
}

// NewMockExtractorRegistry creates a registry with a pass-through
// text/plain extractor
func NewMockExtractorRegistry() *MockExtractorRegistry {
	return &MockExtractorRegistry{
		Extractors: map[string]driven.TextExtractor{
			"text/plain": &MockTextExtractor{},
		},
	}
}

// Register replaces the extractor for a mime type.
func (m *MockExtractorRegistry) Register(mimeType string, extractor driven.TextExtractor) {
	m.Extractors[mimeType] = extractor
}

func (m *MockExtractorRegistry) Get(mimeType string) driven.TextExtractor {
	return m.Extractors[mimeType]
}

func (m *MockExtractorRegistry) Supported() []string {
	types := make([]string, 0, len(m.Extractors))
	for mt := range m.Extractors {
		types = append(types, mt)
	}
	return types
}
