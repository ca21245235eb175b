package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentSnapshotStore = (*ContentSnapshotStore)(nil)

// ContentSnapshotStore implements driven.ContentSnapshotStore using
// PostgreSQL. A snapshot replace is a delete plus insert in one
// transaction, so readers never observe a half-written snapshot.
type ContentSnapshotStore struct {
	db *DB
}

// NewContentSnapshotStore creates a new ContentSnapshotStore
func NewContentSnapshotStore(db *DB) *ContentSnapshotStore {
	return &ContentSnapshotStore{db: db}
}

// Save persists the full content record for a file, replacing any prior
// snapshot atomically
func (s *ContentSnapshotStore) Save(ctx context.Context, fc *domain.FileContent) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_content (file_id, total_chunks, content_hash, extracted_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (file_id) DO UPDATE SET
				total_chunks = EXCLUDED.total_chunks,
				content_hash = EXCLUDED.content_hash,
				extracted_at = EXCLUDED.extracted_at`,
			fc.FileID, fc.TotalChunks, fc.ContentHash, fc.ExtractedAt,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM file_chunks WHERE file_id = $1`, fc.FileID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO file_chunks (id, file_id, content, chunk_order, char_start, char_end)
			VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range fc.Chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.FileID,
				chunk.Content,
				chunk.ChunkOrder,
				chunk.CharStart,
				chunk.CharEnd,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Load retrieves the snapshot for a file
func (s *ContentSnapshotStore) Load(ctx context.Context, fileID string) (*domain.FileContent, error) {
	fc := &domain.FileContent{FileID: fileID}
	err := s.db.QueryRowContext(ctx, `
		SELECT total_chunks, content_hash, extracted_at
		FROM file_content
		WHERE file_id = $1`, fileID,
	).Scan(&fc.TotalChunks, &fc.ContentHash, &fc.ExtractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, chunk_order, char_start, char_end
		FROM file_chunks
		WHERE file_id = $1
		ORDER BY chunk_order`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		chunk := domain.Chunk{FileID: fileID}
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.ChunkOrder, &chunk.CharStart, &chunk.CharEnd); err != nil {
			return nil, err
		}
		fc.Chunks = append(fc.Chunks, chunk)
	}
	return fc, rows.Err()
}

// ListFileIDs returns the IDs of all snapshotted files
func (s *ContentSnapshotStore) ListFileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_id FROM file_content`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the snapshot for a file. Chunks cascade.
func (s *ContentSnapshotStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_content WHERE file_id = $1`, fileID)
	return err
}
