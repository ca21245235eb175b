package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// fileService owns the upload pipeline: store the bytes, extract chunk
// content for keyword search, announce the file. Extraction failures are
// recorded on the file record rather than failing the upload, so callers
// always get their file back.
type fileService struct {
	objects  driven.ObjectStore
	content  driving.ContentService
	notifier driven.Notifier
	logger   *slog.Logger
}

var _ driving.FileService = (*fileService)(nil)

// FileServiceConfig holds dependencies for NewFileService
type FileServiceConfig struct {
	Objects  driven.ObjectStore
	Content  driving.ContentService
	Notifier driven.Notifier
	Logger   *slog.Logger
}

// NewFileService creates a FileService
func NewFileService(cfg FileServiceConfig) driving.FileService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileService{
		objects:  cfg.Objects,
		content:  cfg.Content,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Upload stores a file and synchronously extracts its keyword content.
func (s *fileService) Upload(ctx context.Context, data []byte, upload domain.FileUpload) (*domain.StoredFile, error) {
	if upload.Name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}

	file, err := s.objects.Upload(ctx, data, upload)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "object store upload", Err: err}
	}

	if _, err := s.content.IndexContent(ctx, file.ID, data, upload.MimeType, upload.Password); err != nil {
		reason := err.Error()
		if extractErr, ok := domain.AsExtractionError(err); ok {
			reason = string(extractErr.Reason)
		}
		s.logger.Warn("content extraction failed on upload",
			"file_id", file.ID, "name", upload.Name, "reason", reason)
		if patchErr := s.objects.UpdateMetadata(ctx, file.ID, domain.FileMetadataPatch{
			IndexError: &reason,
		}); patchErr != nil {
			s.logger.Warn("failed to record extraction error",
				"file_id", file.ID, "error", patchErr)
		}
		file.IndexError = reason
	}

	if err := s.notifier.Emit(ctx, domain.ChannelFiles, domain.EventFileUploaded, domain.FileEvent{
		FileID: file.ID,
		Name:   file.Name,
		Size:   file.Size,
	}); err != nil {
		s.logger.Warn("notification emit failed", "event", domain.EventFileUploaded, "error", err)
	}

	s.logger.Info("file uploaded", "file_id", file.ID, "name", file.Name, "size", file.Size)
	return file, nil
}

// Get retrieves a file record
func (s *fileService) Get(ctx context.Context, id string) (*domain.StoredFile, error) {
	return s.objects.Get(ctx, id)
}

// Delete removes a file together with its content record and snapshot.
func (s *fileService) Delete(ctx context.Context, id string) error {
	file, err := s.objects.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.content.Remove(ctx, id); err != nil {
		return fmt.Errorf("removing content for file %s: %w", id, err)
	}
	if err := s.objects.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return &domain.UpstreamError{Op: "object store delete", Err: err}
	}

	if err := s.notifier.Emit(ctx, domain.ChannelFiles, domain.EventFileDeleted, domain.FileEvent{
		FileID: id,
		Name:   file.Name,
	}); err != nil {
		s.logger.Warn("notification emit failed", "event", domain.EventFileDeleted, "error", err)
	}

	s.logger.Info("file deleted", "file_id", id, "name", file.Name)
	return nil
}

// DownloadURL returns a presigned URL for the file, TTL clamped to the
// domain bounds.
func (s *fileService) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	return s.objects.DownloadURL(ctx, id, domain.ClampDownloadTTL(ttl))
}
