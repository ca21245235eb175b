// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Docket. It lets AI assistants drive document indexing and search over the
// same driving ports the HTTP API uses.
package mcp

import "errors"

// ErrMissingContentService is returned when the content service is not provided.
var ErrMissingContentService = errors.New("mcp: content service is required")

// ErrMissingIndexingService is returned when the indexing service is not provided.
var ErrMissingIndexingService = errors.New("mcp: indexing service is required")

// ErrMissingSearchService is returned when the vector search service is not provided.
var ErrMissingSearchService = errors.New("mcp: vector search service is required")
