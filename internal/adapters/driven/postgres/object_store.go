package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docket-labs/docket-core/internal/adapters/driven/token"
	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore implements driven.ObjectStore with file bytes held in
// PostgreSQL. Download URLs are self-contained: a signed token embeds the
// file ID and expiry, so serving a download needs no URL state.
type ObjectStore struct {
	db      *DB
	signer  *token.Signer
	baseURL string
}

// NewObjectStore creates a new ObjectStore. baseURL is the externally
// reachable API root used to build download URLs.
func NewObjectStore(db *DB, signer *token.Signer, baseURL string) *ObjectStore {
	return &ObjectStore{
		db:      db,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload stores a file and returns its record
func (s *ObjectStore) Upload(ctx context.Context, data []byte, upload domain.FileUpload) (*domain.StoredFile, error) {
	file := &domain.StoredFile{
		ID:         uuid.NewString(),
		Name:       upload.Name,
		MimeType:   upload.MimeType,
		Size:       int64(len(data)),
		Metadata:   upload.Metadata,
		UploadedAt: time.Now().UTC(),
	}
	file.StorageKey = "objects/" + file.ID

	metadataJSON, err := json.Marshal(file.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id, name, mime_type, size, storage_key, content, metadata, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		file.ID,
		file.Name,
		file.MimeType,
		file.Size,
		file.StorageKey,
		data,
		metadataJSON,
		file.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Get retrieves a file record by ID
func (s *ObjectStore) Get(ctx context.Context, id string) (*domain.StoredFile, error) {
	file := &domain.StoredFile{}
	var metadataJSON []byte
	var indexStatus string
	var indexedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, size, storage_key, metadata, uploaded_at,
		       index_status, index_key, metadata_key, num_chunks, num_vectors, indexed_at, index_error
		FROM files
		WHERE id = $1`, id,
	).Scan(
		&file.ID,
		&file.Name,
		&file.MimeType,
		&file.Size,
		&file.StorageKey,
		&metadataJSON,
		&file.UploadedAt,
		&indexStatus,
		&file.IndexKey,
		&file.MetadataKey,
		&file.NumChunks,
		&file.NumVectors,
		&indexedAt,
		&file.IndexError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	file.IndexStatus = domain.IndexStatus(indexStatus)
	file.IndexedAt = TimePtr(indexedAt)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &file.Metadata); err != nil {
			return nil, fmt.Errorf("decoding file metadata: %w", err)
		}
	}
	return file, nil
}

// UpdateMetadata applies a partial metadata update to a file
func (s *ObjectStore) UpdateMetadata(ctx context.Context, id string, patch domain.FileMetadataPatch) error {
	setClauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.IndexStatus != nil {
		setClauses = append(setClauses, "index_status = "+arg(string(*patch.IndexStatus)))
	}
	if patch.IndexKey != nil {
		setClauses = append(setClauses, "index_key = "+arg(*patch.IndexKey))
	}
	if patch.MetadataKey != nil {
		setClauses = append(setClauses, "metadata_key = "+arg(*patch.MetadataKey))
	}
	if patch.NumChunks != nil {
		setClauses = append(setClauses, "num_chunks = "+arg(*patch.NumChunks))
	}
	if patch.NumVectors != nil {
		setClauses = append(setClauses, "num_vectors = "+arg(*patch.NumVectors))
	}
	if patch.IndexedAt != nil {
		setClauses = append(setClauses, "indexed_at = "+arg(*patch.IndexedAt))
	}
	if patch.IndexError != nil {
		setClauses = append(setClauses, "index_error = "+arg(*patch.IndexError))
	}
	if len(setClauses) == 0 {
		return nil
	}

	query := "UPDATE files SET " + strings.Join(setClauses, ", ") + " WHERE id = " + arg(id)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a file and its content
func (s *ObjectStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DownloadURL returns a signed URL for the file
func (s *ObjectStore) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	// Confirm the file exists before signing anything for it.
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", domain.ErrNotFound
	}

	if s.signer == nil {
		return "", fmt.Errorf("download URLs require a configured signing secret")
	}
	tok, err := s.signer.SignDownload(id, domain.ClampDownloadTTL(ttl))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/files/%s/download?token=%s", s.baseURL, id, tok), nil
}

// DownloadBuffer returns the raw file bytes
func (s *ObjectStore) DownloadBuffer(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return data, err
}
