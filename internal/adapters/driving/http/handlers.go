package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docket-labs/docket-core/internal/adapters/driven/token"
	"github.com/docket-labs/docket-core/internal/core/domain"
)

// maxUploadBytes bounds multipart upload memory usage
const maxUploadBytes = 64 << 20 // 64 MiB

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			checks["postgres"] = err.Error()
			ready = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// File endpoints

// handleUploadFile accepts a multipart upload with a "file" part and
// optional "password" and "metadata" (JSON object) fields.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	upload := domain.FileUpload{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Password: r.FormValue("password"),
	}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &upload.Metadata); err != nil {
			writeError(w, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	file, err := s.fileService.Upload(r.Context(), data, upload)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.fileService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.fileService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadURLRequest configures a presigned URL
type DownloadURLRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	var req DownloadURLRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ttl := domain.ClampDownloadTTL(time.Duration(req.TTLSeconds) * time.Second)
	url, err := s.fileService.DownloadURL(r.Context(), r.PathValue("id"), ttl)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_at": time.Now().Add(ttl).UTC(),
	})
}

// handleDownload serves file bytes. Authentication is the signed token
// embedded in the URL, not a bearer header, so the links work from
// browsers and external tools.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		writeError(w, http.StatusNotFound, "downloads are not enabled")
		return
	}

	fileID := r.PathValue("id")
	claims, err := s.signer.Verify(r.URL.Query().Get("token"), token.PurposeDownload)
	if err != nil || claims.FileID != fileID {
		writeError(w, http.StatusForbidden, "invalid or expired download token")
		return
	}

	file, err := s.fileService.Get(r.Context(), fileID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	data, err := s.objects.DownloadBuffer(r.Context(), fileID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if file.MimeType != "" {
		w.Header().Set("Content-Type", file.MimeType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Indexing endpoints

// StartIndexingRequest configures an indexing run
type StartIndexingRequest struct {
	FileName     string `json:"file_name,omitempty"`
	ForceRebuild bool   `json:"force_rebuild,omitempty"`
}

func (s *Server) handleStartIndexing(w http.ResponseWriter, r *http.Request) {
	var req StartIndexingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	job, err := s.indexingService.StartIndexing(r.Context(), r.PathValue("id"), req.FileName, req.ForceRebuild)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.indexingService.ListJobs(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.IndexingJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.indexingService.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	cancelled, err := s.indexingService.CancelJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// handleIndexingCallback receives terminal outcomes from the indexer.
// Callbacks are at-least-once; replays for terminal jobs return 200 so
// the indexer stops retrying.
func (s *Server) handleIndexingCallback(w http.ResponseWriter, r *http.Request) {
	var cb domain.IndexCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.indexingService.CompleteFromCallback(r.Context(), cb); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// Search endpoints

// SearchRequest is the body for keyword search endpoints
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleSearchFile(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.contentService.SearchWithinFile(r.Context(), r.PathValue("id"), req.Query, req.Limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleSearchAll(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grouped, err := s.contentService.SearchAllFiles(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": grouped})
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.VectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.searchService.Search(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Stats endpoints

func (s *Server) handleFileIndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.contentService.IndexStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.contentService.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Helper functions

// writeDomainError maps core errors onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var extractErr *domain.ExtractionError
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotIndexed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDuplicateJob):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &extractErr):
		writeError(w, http.StatusUnprocessableEntity, extractErr.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, upstream.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
