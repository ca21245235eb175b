package domain

import "time"

// Chunk represents a contiguous, possibly overlapping, span of extracted
// document text. Chunks are immutable once created. ChunkOrder values for a
// file form a gapless sequence starting at 0; consecutive chunks overlap so
// phrases spanning a boundary remain searchable.
type Chunk struct {
	ID         string `json:"id"`
	FileID     string `json:"file_id"`
	Content    string `json:"content"`
	ChunkOrder int    `json:"chunk_order"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
}

// FileContent holds the extracted chunks for one file. A re-extraction
// replaces the whole record; readers never observe a partial mix.
type FileContent struct {
	FileID      string    `json:"file_id"`
	Chunks      []Chunk   `json:"chunks"`
	TotalChunks int       `json:"total_chunks"`
	// ContentHash is a BLAKE2b digest of source bytes plus chunking
	// configuration. Equal hashes imply equal chunk sequences because
	// chunking is deterministic.
	ContentHash string    `json:"content_hash"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// TotalCharacters returns the length of the extracted text, derived from the
// last chunk's end offset.
func (fc *FileContent) TotalCharacters() int {
	if len(fc.Chunks) == 0 {
		return 0
	}
	return fc.Chunks[len(fc.Chunks)-1].CharEnd
}

// SearchResult is one ranked hit from a keyword or vector query.
// Results are constructed per query and never persisted.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	FileID     string  `json:"file_id"`
	Content    string  `json:"content"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float64 `json:"score"`
}

// ContentStats summarises the content store
type ContentStats struct {
	FileCount        int     `json:"file_count"`
	TotalChunks      int     `json:"total_chunks"`
	AvgChunksPerFile float64 `json:"avg_chunks_per_file"`
}

// FileIndexStats reports whether keyword content exists for a file
type FileIndexStats struct {
	FileID          string     `json:"file_id"`
	IsIndexed       bool       `json:"is_indexed"`
	TotalChunks     int        `json:"total_chunks,omitempty"`
	TotalCharacters int        `json:"total_characters,omitempty"`
	ExtractedAt     *time.Time `json:"extracted_at,omitempty"`
}

// VectorSearchRequest configures a search through the vector search façade
type VectorSearchRequest struct {
	FileID   string  `json:"file_id"`
	Query    string  `json:"query"`
	K        int     `json:"k"`
	MinScore float64 `json:"min_score"`
}

const (
	// DefaultSearchK is the default result count for façade searches
	DefaultSearchK = 5
	// MaxSearchK caps façade result counts
	MaxSearchK = 10
	// DefaultCrossFileLimit is the default global limit for cross-file search
	DefaultCrossFileLimit = 10
	// MaxCrossFileLimit is the hard cap for cross-file search
	MaxCrossFileLimit = 20
	// PerFileSearchCap is the max hits contributed by one file before the
	// global cross-file truncation
	PerFileSearchCap = 3
)
