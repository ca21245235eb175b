package mcp

import (
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Content provides keyword search over extracted chunks.
	Content driving.ContentService

	// Indexing tracks asynchronous indexing jobs.
	Indexing driving.IndexingService

	// Search is the vector search façade.
	Search driving.VectorSearchService

	// Files manages stored files.
	Files driving.FileService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Content == nil {
		return ErrMissingContentService
	}
	if p.Indexing == nil {
		return ErrMissingIndexingService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Files is optional; the get_file tool is registered only when set
	return nil
}
