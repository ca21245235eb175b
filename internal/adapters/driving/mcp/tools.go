package mcp

import (
	"context"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// StartIndexingInput is the input schema for the start_indexing tool.
type StartIndexingInput struct {
	FileID       string `json:"file_id" jsonschema:"the file to build a deep index for"`
	FileName     string `json:"file_name,omitempty" jsonschema:"display name for the job"`
	ForceRebuild bool   `json:"force_rebuild,omitempty" jsonschema:"rebuild even when an active job exists"`
}

// JobOutput is the output schema for job-returning tools.
type JobOutput struct {
	JobID    string `json:"job_id"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// GetJobInput is the input schema for the get_indexing_job tool.
type GetJobInput struct {
	JobID string `json:"job_id" jsonschema:"the job identifier"`
}

// ListJobsOutput is the output schema for the list_indexing_jobs tool.
type ListJobsOutput struct {
	Jobs  []JobOutput `json:"jobs"`
	Count int         `json:"count"`
}

// CancelJobInput is the input schema for the cancel_indexing_job tool.
type CancelJobInput struct {
	JobID string `json:"job_id" jsonschema:"the job identifier"`
}

// CancelJobOutput is the output schema for the cancel_indexing_job tool.
type CancelJobOutput struct {
	Cancelled bool `json:"cancelled"`
}

// SearchFileInput is the input schema for the search_file tool.
type SearchFileInput struct {
	FileID string `json:"file_id" jsonschema:"the file whose content to search"`
	Query  string `json:"query" jsonschema:"the search query"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
}

// SearchAllInput is the input schema for the search_all_files tool.
type SearchAllInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return"`
}

// VectorSearchInput is the input schema for the vector_search tool.
type VectorSearchInput struct {
	FileID   string  `json:"file_id" jsonschema:"the file whose index to search"`
	Query    string  `json:"query" jsonschema:"the search query"`
	K        int     `json:"k,omitempty" jsonschema:"number of results to return (default 5, max 10)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum relevance score"`
}

// SearchOutput is the output schema for search tools.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	FileID     string  `json:"file_id"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// IndexStatsInput is the input schema for the file_index_stats tool.
type IndexStatsInput struct {
	FileID string `json:"file_id" jsonschema:"the file to report on"`
}

// IndexStatsOutput is the output schema for the file_index_stats tool.
type IndexStatsOutput struct {
	FileID          string `json:"file_id"`
	IsIndexed       bool   `json:"is_indexed"`
	TotalChunks     int    `json:"total_chunks,omitempty"`
	TotalCharacters int    `json:"total_characters,omitempty"`
	ExtractedAt     string `json:"extracted_at,omitempty"`
}

// GetFileInput is the input schema for the get_file tool.
type GetFileInput struct {
	FileID string `json:"file_id" jsonschema:"the file identifier"`
}

// GetFileOutput is the output schema for the get_file tool.
type GetFileOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	IndexStatus string `json:"index_status,omitempty"`
	IndexError  string `json:"index_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_indexing",
		Description: "Start building a deep search index for a file",
	}, s.handleStartIndexing)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_indexing_job",
		Description: "Get the status of an indexing job",
	}, s.handleGetJob)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_indexing_jobs",
		Description: "List all indexing jobs, newest first",
	}, s.handleListJobs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cancel_indexing_job",
		Description: "Cancel a pending or processing indexing job",
	}, s.handleCancelJob)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_file",
		Description: "Keyword search within one file's extracted content",
	}, s.handleSearchFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_all_files",
		Description: "Keyword search across all indexed files",
	}, s.handleSearchAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vector_search",
		Description: "Search a file's completed deep index",
	}, s.handleVectorSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "file_index_stats",
		Description: "Report whether a file has extracted content and how much",
	}, s.handleIndexStats)

	if s.ports.Files != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_file",
			Description: "Get metadata for a stored file",
		}, s.handleGetFile)
	}
}

// handleStartIndexing handles the start_indexing tool invocation.
func (s *Server) handleStartIndexing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartIndexingInput,
) (*mcp.CallToolResult, JobOutput, error) {
	job, err := s.ports.Indexing.StartIndexing(ctx, input.FileID, input.FileName, input.ForceRebuild)
	if err != nil {
		return nil, JobOutput{}, err
	}
	return nil, jobOutput(job), nil
}

// handleGetJob handles the get_indexing_job tool invocation.
func (s *Server) handleGetJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetJobInput,
) (*mcp.CallToolResult, JobOutput, error) {
	job, err := s.ports.Indexing.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, JobOutput{}, err
	}
	return nil, jobOutput(job), nil
}

// handleListJobs handles the list_indexing_jobs tool invocation.
func (s *Server) handleListJobs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListJobsOutput, error) {
	jobs, err := s.ports.Indexing.ListJobs(ctx)
	if err != nil {
		return nil, ListJobsOutput{}, err
	}

	output := ListJobsOutput{
		Jobs:  make([]JobOutput, len(jobs)),
		Count: len(jobs),
	}
	for i, job := range jobs {
		output.Jobs[i] = jobOutput(job)
	}
	return nil, output, nil
}

// handleCancelJob handles the cancel_indexing_job tool invocation.
func (s *Server) handleCancelJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CancelJobInput,
) (*mcp.CallToolResult, CancelJobOutput, error) {
	cancelled, err := s.ports.Indexing.CancelJob(ctx, input.JobID)
	if err != nil {
		return nil, CancelJobOutput{}, err
	}
	return nil, CancelJobOutput{Cancelled: cancelled}, nil
}

// handleSearchFile handles the search_file tool invocation.
func (s *Server) handleSearchFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchFileInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Content.SearchWithinFile(ctx, input.FileID, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(results), nil
}

// handleSearchAll handles the search_all_files tool invocation.
func (s *Server) handleSearchAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchAllInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	grouped, err := s.ports.Content.SearchAllFiles(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	var flat []domain.SearchResult
	for _, results := range grouped {
		flat = append(flat, results...)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].Score != flat[j].Score {
			return flat[i].Score > flat[j].Score
		}
		if flat[i].FileID != flat[j].FileID {
			return flat[i].FileID < flat[j].FileID
		}
		return flat[i].ChunkOrder < flat[j].ChunkOrder
	})
	return nil, searchOutput(flat), nil
}

// handleVectorSearch handles the vector_search tool invocation.
func (s *Server) handleVectorSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VectorSearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.Search(ctx, domain.VectorSearchRequest{
		FileID:   input.FileID,
		Query:    input.Query,
		K:        input.K,
		MinScore: input.MinScore,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(results), nil
}

// handleIndexStats handles the file_index_stats tool invocation.
func (s *Server) handleIndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexStatsInput,
) (*mcp.CallToolResult, IndexStatsOutput, error) {
	stats, err := s.ports.Content.IndexStats(ctx, input.FileID)
	if err != nil {
		return nil, IndexStatsOutput{}, err
	}

	output := IndexStatsOutput{
		FileID:          stats.FileID,
		IsIndexed:       stats.IsIndexed,
		TotalChunks:     stats.TotalChunks,
		TotalCharacters: stats.TotalCharacters,
	}
	if stats.ExtractedAt != nil {
		output.ExtractedAt = stats.ExtractedAt.Format(time.RFC3339)
	}
	return nil, output, nil
}

// handleGetFile handles the get_file tool invocation.
func (s *Server) handleGetFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetFileInput,
) (*mcp.CallToolResult, GetFileOutput, error) {
	file, err := s.ports.Files.Get(ctx, input.FileID)
	if err != nil {
		return nil, GetFileOutput{}, err
	}

	return nil, GetFileOutput{
		ID:          file.ID,
		Name:        file.Name,
		MimeType:    file.MimeType,
		Size:        file.Size,
		IndexStatus: string(file.IndexStatus),
		IndexError:  file.IndexError,
	}, nil
}

func jobOutput(job *domain.IndexingJob) JobOutput {
	return JobOutput{
		JobID:    job.ID,
		FileID:   job.FileID,
		FileName: job.FileName,
		Status:   string(job.Status),
		Error:    job.Error,
	}
}

func searchOutput(results []domain.SearchResult) SearchOutput {
	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    results[i].ChunkID,
			FileID:     results[i].FileID,
			ChunkOrder: results[i].ChunkOrder,
			Score:      results[i].Score,
			Content:    results[i].Content,
		}
	}
	return output
}
