package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// Save creates or updates a job record
func (s *JobStore) Save(ctx context.Context, job *domain.IndexingJob) error {
	var statsJSON []byte
	if job.Stats != nil {
		var err error
		statsJSON, err = json.Marshal(job.Stats)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO indexing_jobs (id, file_id, file_name, status, force_rebuild, error, stats, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			stats = EXCLUDED.stats,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.FileID,
		job.FileName,
		string(job.Status),
		job.ForceRebuild,
		job.Error,
		statsJSON,
		job.CreatedAt,
		job.UpdatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	return err
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.IndexingJob, error) {
	query := selectJobQuery + ` WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// List returns all jobs ordered by CreatedAt descending
func (s *JobStore) List(ctx context.Context) ([]*domain.IndexingJob, error) {
	query := selectJobQuery + ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.IndexingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FindActiveByFile returns the non-terminal job for a file, if any
func (s *JobStore) FindActiveByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error) {
	query := selectJobQuery + `
		WHERE file_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, fileID,
		string(domain.JobStatusPending), string(domain.JobStatusProcessing)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// FindLatestByFile returns the newest job for a file regardless of status
func (s *JobStore) FindLatestByFile(ctx context.Context, fileID string) (*domain.IndexingJob, error) {
	query := selectJobQuery + `
		WHERE file_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, fileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// Purge removes terminal jobs older than the given age
func (s *JobStore) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM indexing_jobs
		WHERE status IN ($1, $2, $3) AND updated_at < $4`,
		string(domain.JobStatusCompleted),
		string(domain.JobStatusFailed),
		string(domain.JobStatusCancelled),
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

const selectJobQuery = `
	SELECT id, file_id, file_name, status, force_rebuild, error, stats, created_at, updated_at, started_at, completed_at
	FROM indexing_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.IndexingJob, error) {
	var job domain.IndexingJob
	var status string
	var statsJSON []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.FileID,
		&job.FileName,
		&status,
		&job.ForceRebuild,
		&job.Error,
		&statsJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)
	if len(statsJSON) > 0 {
		job.Stats = &domain.JobStats{}
		if err := json.Unmarshal(statsJSON, job.Stats); err != nil {
			return nil, fmt.Errorf("decoding job stats: %w", err)
		}
	}
	return &job, nil
}
