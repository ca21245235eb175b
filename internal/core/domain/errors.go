package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrNotIndexed indicates the file has no indexed content.
	// Distinct from an empty result list, which means the file is indexed
	// but nothing matched.
	ErrNotIndexed = errors.New("file not indexed")

	// ErrDuplicateJob indicates a non-terminal indexing job already exists
	// for the file and forceRebuild was not requested
	ErrDuplicateJob = errors.New("indexing job already in progress")

	// ErrJobTerminal indicates an operation on a job that already reached
	// a terminal state
	ErrJobTerminal = errors.New("job already terminal")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ExtractionReason classifies why text extraction failed
type ExtractionReason string

const (
	ReasonUnsupportedFormat ExtractionReason = "unsupported-format"
	ReasonPasswordRequired  ExtractionReason = "password-required"
	ReasonInvalidPassword   ExtractionReason = "invalid-password"
	ReasonCorruptContent    ExtractionReason = "corrupt-content"
)

// ExtractionError reports a failed content extraction
type ExtractionError struct {
	Reason ExtractionReason
	Detail string
}

func (e *ExtractionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("extraction failed: %s", e.Reason)
	}
	return fmt.Sprintf("extraction failed: %s: %s", e.Reason, e.Detail)
}

// NewExtractionError creates an ExtractionError with the given reason
func NewExtractionError(reason ExtractionReason, detail string) *ExtractionError {
	return &ExtractionError{Reason: reason, Detail: detail}
}

// AsExtractionError unwraps err to an ExtractionError if possible
func AsExtractionError(err error) (*ExtractionError, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// UpstreamError wraps a failure from an external collaborator (object store
// or indexer dispatch), preserving the original message for diagnostics
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
