package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// JobStatus represents the current state of an indexing job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobStats holds statistics reported by the indexer for a finished job
type JobStats struct {
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	NumChunks        int   `json:"num_chunks"`
	NumVectors       int   `json:"num_vectors"`
}

// IndexingJob represents one asynchronous request to build a deep index
// for a file. Jobs move forward only:
//
//	pending -> processing -> completed | failed
//	pending | processing  -> cancelled
//
// A terminal job never changes status again; a rebuild is a new job.
type IndexingJob struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// FileID is the file being indexed
	FileID string `json:"file_id"`

	// FileName is kept for display and callback correlation
	FileName string `json:"file_name"`

	// Status is the current lifecycle state
	Status JobStatus `json:"status"`

	// ForceRebuild indicates the caller requested a rebuild over an
	// existing index
	ForceRebuild bool `json:"force_rebuild"`

	// Error contains the failure reason for failed jobs
	Error string `json:"error,omitempty"`

	// Stats is set when a completion callback carries indexer statistics
	Stats *JobStats `json:"stats,omitempty"`

	// CreatedAt is when the job was submitted
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the job was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when the job was dispatched (nil if never dispatched)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job reached a terminal state
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewIndexingJob creates a new job in the pending state
func NewIndexingJob(fileID, fileName string, forceRebuild bool) *IndexingJob {
	now := time.Now()
	return &IndexingJob{
		ID:           GenerateID(),
		FileID:       fileID,
		FileName:     fileName,
		Status:       JobStatusPending,
		ForceRebuild: forceRebuild,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsTerminal reports whether the job has reached a terminal state
func (j *IndexingJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// MarkProcessing moves a pending job to processing.
// Returns false if the job is not pending.
func (j *IndexingJob) MarkProcessing() bool {
	if j.Status != JobStatusPending {
		return false
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	return true
}

// Complete moves the job to completed. No-op on terminal jobs.
func (j *IndexingJob) Complete(stats *JobStats) bool {
	if j.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Stats = stats
	j.Error = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// Fail moves the job to failed with the given reason. No-op on terminal jobs.
func (j *IndexingJob) Fail(reason string) bool {
	if j.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = reason
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// Cancel moves a pending or processing job to cancelled.
// Cancellation is local bookkeeping only; in-flight remote work is not
// interrupted, and a late callback for a cancelled job is ignored.
func (j *IndexingJob) Cancel() bool {
	if j.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return true
}

// CallbackStatus is the terminal outcome reported by the indexer
type CallbackStatus string

const (
	CallbackStatusCompleted CallbackStatus = "completed"
	CallbackStatusFailed    CallbackStatus = "failed"
)

// IndexCallback is the payload delivered (at least once) when the external
// indexer finishes a job. JobID may be empty for legacy indexers, in which
// case the active job for FileID is used.
type IndexCallback struct {
	JobID            string         `json:"job_id,omitempty"`
	FileID           string         `json:"file_id"`
	FileName         string         `json:"file_name,omitempty"`
	Status           CallbackStatus `json:"status"`
	Error            string         `json:"error,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms,omitempty"`
	NumChunks        int            `json:"num_chunks,omitempty"`
	NumVectors       int            `json:"num_vectors,omitempty"`
	IndexKey         string         `json:"index_key,omitempty"`
	MetadataKey      string         `json:"metadata_key,omitempty"`
}

// IndexRequest is the dispatch message sent to the external indexer.
// MsgID is set by the queue adapter on dequeue and used for acknowledgment.
type IndexRequest struct {
	MsgID        string `json:"-"`
	JobID        string `json:"job_id"`
	FileID       string `json:"file_id"`
	FileName     string `json:"file_name"`
	StorageKey   string `json:"storage_key"`
	ForceRebuild bool   `json:"force_rebuild"`
}
