package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

const (
	// DefaultChunkSize is the number of characters per chunk.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 200
)

// Extractor turns raw file bytes into ordered, overlapping text chunks.
// Extraction is deterministic: the same input always yields the same
// chunks, IDs and content hash.
type Extractor struct {
	registry  driven.ExtractorRegistry
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithChunkSize overrides the default chunk size.
func WithChunkSize(size int) ExtractorOption {
	return func(e *Extractor) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// WithChunkOverlap overrides the default chunk overlap.
func WithChunkOverlap(overlap int) ExtractorOption {
	return func(e *Extractor) {
		if overlap >= 0 {
			e.overlap = overlap
		}
	}
}

// WithExtractorLogger sets the logger used by the extractor.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor backed by the given format registry.
func NewExtractor(registry driven.ExtractorRegistry, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		registry:  registry,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.overlap >= e.chunkSize {
		e.overlap = e.chunkSize / 4
	}
	return e
}

// Extract converts raw bytes into chunks for the given file. The returned
// hash covers the chunking configuration and the raw bytes, so a changed
// chunk size produces a different hash for identical content.
func (e *Extractor) Extract(ctx context.Context, fileID string, data []byte, mimeType, password string) ([]domain.Chunk, string, error) {
	extractor := e.registry.Get(mimeType)
	if extractor == nil {
		return nil, "", domain.NewExtractionError(domain.ReasonUnsupportedFormat,
			fmt.Sprintf("no extractor registered for %q", mimeType))
	}

	text, err := extractor.ExtractText(ctx, data, password)
	if err != nil {
		if _, ok := domain.AsExtractionError(err); ok {
			return nil, "", err
		}
		return nil, "", domain.NewExtractionError(domain.ReasonCorruptContent, err.Error())
	}

	chunks := e.chunk(fileID, text)
	hash := e.contentHash(data)

	e.logger.Debug("content extracted",
		"file_id", fileID,
		"mime_type", mimeType,
		"characters", len([]rune(text)),
		"chunks", len(chunks))

	return chunks, hash, nil
}

// chunk splits text into overlapping windows. Offsets are measured in
// characters, not bytes, so multi-byte runes never split mid-sequence.
func (e *Extractor) chunk(fileID, text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := e.chunkSize - e.overlap
	var chunks []domain.Chunk
	order := 0
	for start := 0; start < len(runes); start += step {
		end := start + e.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s-chunk-%d", fileID, order),
			FileID:     fileID,
			Content:    string(runes[start:end]),
			ChunkOrder: order,
			CharStart:  start,
			CharEnd:    end,
		})
		order++
	}
	return chunks
}

func (e *Extractor) contentHash(data []byte) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "chunk:%d:%d\n", e.chunkSize, e.overlap)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
