package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docket-labs/docket-core/internal/adapters/driven/token"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	fileService     driving.FileService
	contentService  driving.ContentService
	indexingService driving.IndexingService
	searchService   driving.VectorSearchService

	// Infrastructure
	objects     driven.ObjectStore
	signer      *token.Signer
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. signer may be nil, in which case
// API authentication is disabled (download URLs still require it and
// will not be served).
func NewServer(
	cfg Config,
	fileService driving.FileService,
	contentService driving.ContentService,
	indexingService driving.IndexingService,
	searchService driving.VectorSearchService,
	objects driven.ObjectStore,
	signer *token.Signer,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		fileService:     fileService,
		contentService:  contentService,
		indexingService: indexingService,
		searchService:   searchService,
		objects:         objects,
		signer:          signer,
		db:              db,
		redisClient:     redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      NewRecoveryMiddleware().Handler(NewLoggingMiddleware().Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.signer)
	auth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Download endpoint: authenticated by the signed URL token itself
	s.router.HandleFunc("GET /v1/files/{id}/download", s.handleDownload)

	// File endpoints
	s.router.Handle("POST /api/v1/files", auth(s.handleUploadFile))
	s.router.Handle("GET /api/v1/files/{id}", auth(s.handleGetFile))
	s.router.Handle("DELETE /api/v1/files/{id}", auth(s.handleDeleteFile))
	s.router.Handle("POST /api/v1/files/{id}/download-url", auth(s.handleDownloadURL))

	// Indexing endpoints
	s.router.Handle("POST /api/v1/files/{id}/index", auth(s.handleStartIndexing))
	s.router.Handle("GET /api/v1/jobs", auth(s.handleListJobs))
	s.router.Handle("GET /api/v1/jobs/{id}", auth(s.handleGetJob))
	s.router.Handle("POST /api/v1/jobs/{id}/cancel", auth(s.handleCancelJob))

	// Indexer callback webhook
	s.router.Handle("POST /api/v1/callbacks/indexing", auth(s.handleIndexingCallback))

	// Search endpoints
	s.router.Handle("POST /api/v1/files/{id}/search", auth(s.handleSearchFile))
	s.router.Handle("POST /api/v1/search", auth(s.handleSearchAll))
	s.router.Handle("POST /api/v1/vector-search", auth(s.handleVectorSearch))

	// Stats endpoints
	s.router.Handle("GET /api/v1/files/{id}/index-stats", auth(s.handleFileIndexStats))
	s.router.Handle("GET /api/v1/stats", auth(s.handleStats))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
