package domain

import "time"

// IndexStatus mirrors the latest indexing outcome onto file metadata
type IndexStatus string

const (
	IndexStatusNone       IndexStatus = ""
	IndexStatusProcessing IndexStatus = "processing"
	IndexStatusCompleted  IndexStatus = "completed"
	IndexStatusFailed     IndexStatus = "failed"
)

// StoredFile is a file held by the object store capability
type StoredFile struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	MimeType   string            `json:"mime_type"`
	Size       int64             `json:"size"`
	StorageKey string            `json:"storage_key"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`

	// Index bookkeeping, patched by the job tracker on terminal callbacks
	IndexStatus IndexStatus `json:"index_status,omitempty"`
	IndexKey    string      `json:"index_key,omitempty"`
	MetadataKey string      `json:"metadata_key,omitempty"`
	NumChunks   int         `json:"num_chunks,omitempty"`
	NumVectors  int         `json:"num_vectors,omitempty"`
	IndexedAt   *time.Time  `json:"indexed_at,omitempty"`
	IndexError  string      `json:"index_error,omitempty"`
}

// FileUpload carries caller-supplied metadata for an upload
type FileUpload struct {
	Name     string            `json:"name"`
	MimeType string            `json:"mime_type"`
	Password string            `json:"password,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FileMetadataPatch is a partial update applied to a stored file.
// Nil fields are left untouched.
type FileMetadataPatch struct {
	IndexStatus *IndexStatus
	IndexKey    *string
	MetadataKey *string
	NumChunks   *int
	NumVectors  *int
	IndexedAt   *time.Time
	IndexError  *string
}

// MaxDownloadURLTTL bounds presigned download URL lifetimes
const MaxDownloadURLTTL = time.Hour

// DefaultDownloadURLTTL is used when the caller does not specify a TTL
const DefaultDownloadURLTTL = 15 * time.Minute

// ClampDownloadTTL applies the default and upper bound to a requested TTL
func ClampDownloadTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultDownloadURLTTL
	}
	if ttl > MaxDownloadURLTTL {
		return MaxDownloadURLTTL
	}
	return ttl
}
