package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// indexingService tracks deep-index jobs and reconciles indexer callbacks.
// A mutex serialises all state transitions so duplicate callbacks, cancels
// and concurrent starts cannot race a job past a terminal state.
type indexingService struct {
	mu         sync.Mutex
	jobs       driven.JobStore
	objects    driven.ObjectStore
	dispatcher driven.IndexDispatcher
	notifier   driven.Notifier
	logger     *slog.Logger
}

var _ driving.IndexingService = (*indexingService)(nil)

// IndexingServiceConfig holds dependencies for NewIndexingService
type IndexingServiceConfig struct {
	Jobs       driven.JobStore
	Objects    driven.ObjectStore
	Dispatcher driven.IndexDispatcher
	Notifier   driven.Notifier
	Logger     *slog.Logger
}

// NewIndexingService creates an IndexingService
func NewIndexingService(cfg IndexingServiceConfig) driving.IndexingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &indexingService{
		jobs:       cfg.Jobs,
		objects:    cfg.Objects,
		dispatcher: cfg.Dispatcher,
		notifier:   cfg.Notifier,
		logger:     logger,
	}
}

// StartIndexing creates a job for the file and dispatches it. The job is
// saved in the processing state before dispatch; if dispatch fails the
// job is failed immediately and the error returned.
func (s *indexingService) StartIndexing(ctx context.Context, fileID, fileName string, forceRebuild bool) (*domain.IndexingJob, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if active, err := s.jobs.FindActiveByFile(ctx, fileID); err == nil && active != nil {
		if !forceRebuild {
			return nil, fmt.Errorf("file %s already has job %s in state %s: %w",
				fileID, active.ID, active.Status, domain.ErrDuplicateJob)
		}
		s.logger.Info("force rebuild requested over active job",
			"file_id", fileID, "active_job_id", active.ID)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.UpstreamError{Op: "job lookup", Err: err}
	}

	file, err := s.objects.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
		}
		return nil, &domain.UpstreamError{Op: "object store get", Err: err}
	}
	if fileName == "" {
		fileName = file.Name
	}

	job := domain.NewIndexingJob(fileID, fileName, forceRebuild)
	job.MarkProcessing()
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, &domain.UpstreamError{Op: "job save", Err: err}
	}

	req := domain.IndexRequest{
		JobID:        job.ID,
		FileID:       fileID,
		FileName:     fileName,
		StorageKey:   file.StorageKey,
		ForceRebuild: forceRebuild,
	}
	if err := s.dispatcher.TriggerIndexing(ctx, req); err != nil {
		job.Fail(fmt.Sprintf("dispatch failed: %v", err))
		if saveErr := s.jobs.Save(ctx, job); saveErr != nil {
			s.logger.Error("failed to persist dispatch failure",
				"job_id", job.ID, "error", saveErr)
		}
		s.emit(ctx, domain.EventIndexingFailed, job)
		return nil, &domain.UpstreamError{Op: "indexer dispatch", Err: err}
	}

	s.patchFileStatus(ctx, fileID, domain.FileMetadataPatch{
		IndexStatus: indexStatusPtr(domain.IndexStatusProcessing),
	})
	s.emit(ctx, domain.EventIndexingStarted, job)

	s.logger.Info("indexing job dispatched",
		"job_id", job.ID, "file_id", fileID, "force_rebuild", forceRebuild)
	return job, nil
}

// CompleteFromCallback applies a terminal callback to its job. Callbacks
// for terminal jobs are logged and dropped, never re-applied: completed,
// failed and cancelled are final.
func (s *indexingService) CompleteFromCallback(ctx context.Context, cb domain.IndexCallback) error {
	job, err := s.resolveJob(ctx, cb)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read under the lock so concurrent callbacks observe each
	// other's transitions.
	job, err = s.jobs.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		s.logger.Debug("callback for terminal job ignored",
			"job_id", job.ID, "job_status", job.Status, "callback_status", cb.Status)
		return nil
	}

	switch cb.Status {
	case domain.CallbackStatusCompleted:
		job.Complete(&domain.JobStats{
			ProcessingTimeMs: cb.ProcessingTimeMs,
			NumChunks:        cb.NumChunks,
			NumVectors:       cb.NumVectors,
		})
		if err := s.jobs.Save(ctx, job); err != nil {
			return &domain.UpstreamError{Op: "job save", Err: err}
		}
		now := time.Now()
		s.patchFileStatus(ctx, job.FileID, domain.FileMetadataPatch{
			IndexStatus: indexStatusPtr(domain.IndexStatusCompleted),
			IndexKey:    strPtr(cb.IndexKey),
			MetadataKey: strPtr(cb.MetadataKey),
			NumChunks:   intPtr(cb.NumChunks),
			NumVectors:  intPtr(cb.NumVectors),
			IndexedAt:   &now,
		})
		s.emit(ctx, domain.EventIndexingCompleted, job)
		s.logger.Info("indexing job completed",
			"job_id", job.ID, "file_id", job.FileID,
			"chunks", cb.NumChunks, "vectors", cb.NumVectors)

	case domain.CallbackStatusFailed:
		job.Fail(cb.Error)
		if err := s.jobs.Save(ctx, job); err != nil {
			return &domain.UpstreamError{Op: "job save", Err: err}
		}
		s.patchFileStatus(ctx, job.FileID, domain.FileMetadataPatch{
			IndexStatus: indexStatusPtr(domain.IndexStatusFailed),
			IndexError:  strPtr(cb.Error),
		})
		s.emit(ctx, domain.EventIndexingFailed, job)
		s.logger.Warn("indexing job failed",
			"job_id", job.ID, "file_id", job.FileID, "error", cb.Error)

	default:
		return fmt.Errorf("%w: unknown callback status %q", domain.ErrInvalidInput, cb.Status)
	}
	return nil
}

// CancelJob moves a pending or processing job to cancelled. Returns false
// without error when the job is already terminal.
func (s *indexingService) CancelJob(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !job.Cancel() {
		return false, nil
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return false, &domain.UpstreamError{Op: "job save", Err: err}
	}
	s.emit(ctx, domain.EventIndexingCancelled, job)
	s.logger.Info("indexing job cancelled", "job_id", jobID, "file_id", job.FileID)
	return true, nil
}

// GetJob retrieves a job by ID
func (s *indexingService) GetJob(ctx context.Context, jobID string) (*domain.IndexingJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// ListJobs returns all jobs, newest first
func (s *indexingService) ListJobs(ctx context.Context) ([]*domain.IndexingJob, error) {
	return s.jobs.List(ctx)
}

// resolveJob locates the job a callback refers to: by job ID when given,
// falling back to the active job for the file.
func (s *indexingService) resolveJob(ctx context.Context, cb domain.IndexCallback) (*domain.IndexingJob, error) {
	if cb.JobID != "" {
		job, err := s.jobs.Get(ctx, cb.JobID)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, domain.ErrNotFound) || cb.FileID == "" {
			return nil, err
		}
	}
	if cb.FileID == "" {
		return nil, fmt.Errorf("%w: callback carries neither job id nor file id", domain.ErrInvalidInput)
	}
	job, err := s.jobs.FindActiveByFile(ctx, cb.FileID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no active job for file %s: %w", cb.FileID, err)
	}
	// A redelivered callback can land after its job went terminal. Resolve
	// to the newest job so the terminal check drops it instead of 404ing
	// back at a retrying indexer.
	job, latestErr := s.jobs.FindLatestByFile(ctx, cb.FileID)
	if latestErr != nil {
		return nil, fmt.Errorf("no active job for file %s: %w", cb.FileID, err)
	}
	return job, nil
}

// patchFileStatus mirrors job outcomes onto file metadata. The patch is a
// side effect of the transition: failures are logged, not propagated.
func (s *indexingService) patchFileStatus(ctx context.Context, fileID string, patch domain.FileMetadataPatch) {
	if err := s.objects.UpdateMetadata(ctx, fileID, patch); err != nil {
		s.logger.Warn("failed to patch file index status", "file_id", fileID, "error", err)
	}
}

// emit publishes a job lifecycle event. Relay failures never fail the
// operation that produced them.
func (s *indexingService) emit(ctx context.Context, event string, job *domain.IndexingJob) {
	payload := domain.IndexingEvent{
		JobID:    job.ID,
		FileID:   job.FileID,
		FileName: job.FileName,
		Status:   job.Status,
		Error:    job.Error,
		Stats:    job.Stats,
	}
	if err := s.notifier.Emit(ctx, domain.ChannelIndexing, event, payload); err != nil {
		s.logger.Warn("notification emit failed", "event", event, "job_id", job.ID, "error", err)
	}
}

func indexStatusPtr(s domain.IndexStatus) *domain.IndexStatus { return &s }
func strPtr(s string) *string                                 { return &s }
func intPtr(i int) *int                                       { return &i }
