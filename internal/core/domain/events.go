package domain

// Notification channels
const (
	ChannelFiles    = "files"
	ChannelIndexing = "indexing"
)

// Event names emitted on the notification relay. Delivery is best-effort;
// listeners must tolerate missed events.
const (
	EventFileUploaded      = "file:uploaded"
	EventFileDeleted       = "file:deleted"
	EventIndexingStarted   = "indexing:started"
	EventIndexingCompleted = "indexing:completed"
	EventIndexingFailed    = "indexing:failed"
	EventIndexingCancelled = "indexing:cancelled"
)

// FileEvent is the payload for file lifecycle notifications
type FileEvent struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
	Size   int64  `json:"size,omitempty"`
}

// IndexingEvent is the payload for job lifecycle notifications
type IndexingEvent struct {
	JobID    string    `json:"job_id"`
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name,omitempty"`
	Status   JobStatus `json:"status"`
	Error    string    `json:"error,omitempty"`
	Stats    *JobStats `json:"stats,omitempty"`
}
