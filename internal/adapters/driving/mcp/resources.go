package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Docket resources.
	uriScheme = "docket://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource summarising the content store.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Summary of the content store: file and chunk counts",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	// Template for a file's extracted text.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{fileId}/content",
		Name:        "file-content",
		Description: "Extracted text content of a specific file",
		MIMEType:    "text/plain",
	}, s.handleFileContentResource)
}

// handleStatsResource returns content store statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Content.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleFileContentResource returns a file's extracted text, rebuilt from
// its chunk sequence.
func (s *Server) handleFileContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	fileID := extractFileID(req.Params.URI)
	if fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	content, err := s.ports.Content.Get(ctx, fileID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Chunks overlap; use each chunk's non-overlapping prefix span so the
	// reassembled text matches the extracted original.
	var sb strings.Builder
	end := 0
	for _, chunk := range content.Chunks {
		runes := []rune(chunk.Content)
		if chunk.CharStart < end {
			skip := end - chunk.CharStart
			if skip > len(runes) {
				skip = len(runes)
			}
			runes = runes[skip:]
		}
		sb.WriteString(string(runes))
		if chunk.CharEnd > end {
			end = chunk.CharEnd
		}
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     sb.String(),
		}},
	}, nil
}

// extractFileID pulls the file ID out of a docket://files/{fileId}/content URI.
func extractFileID(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"files/")
	if !ok {
		return ""
	}
	fileID, ok := strings.CutSuffix(rest, "/content")
	if !ok || strings.Contains(fileID, "/") {
		return ""
	}
	return fileID
}
