package worker

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

// Worker is the embedded indexer. It consumes index requests from the
// dispatch queue, builds the index artefacts for each file, and reports
// the terminal outcome back through the job tracker exactly the way an
// external indexer would: as a callback.
type Worker struct {
	queue    driven.IndexQueue
	objects  driven.ObjectStore
	content  driving.ContentService
	indexing driving.IndexingService
	logger   *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	Queue          driven.IndexQueue
	Objects        driven.ObjectStore
	Content        driving.ContentService
	Indexing       driving.IndexingService
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent request processors
	DequeueTimeout int // Seconds to wait for a request before checking again
}

// New creates an indexer worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		queue:          cfg.Queue,
		objects:        cfg.Objects,
		content:        cfg.Content,
		indexing:       cfg.Indexing,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("indexer worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("indexer worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		req, err := w.queue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue request", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if req == nil {
			continue
		}

		w.processRequest(ctx, req, logger)
	}
}

// processRequest builds the index for one request and reports the outcome.
// The request is acknowledged whether indexing succeeded or failed: the
// terminal state lives in the job tracker, and an unacknowledged message
// would only be redelivered against a now-terminal job.
func (w *Worker) processRequest(ctx context.Context, req *domain.IndexRequest, logger *slog.Logger) {
	logger = logger.With("job_id", req.JobID, "file_id", req.FileID)
	logger.Info("processing index request")

	startTime := time.Now()
	cb, err := w.buildIndex(ctx, req, startTime)
	if err != nil {
		logger.Error("index build failed",
			"duration", time.Since(startTime),
			"error", err,
		)
		cb = &domain.IndexCallback{
			JobID:  req.JobID,
			FileID: req.FileID,
			Status: domain.CallbackStatusFailed,
			Error:  err.Error(),
		}
	} else {
		logger.Info("index build completed",
			"duration", time.Since(startTime),
			"chunks", cb.NumChunks,
		)
	}

	if err := w.indexing.CompleteFromCallback(ctx, *cb); err != nil {
		logger.Error("failed to deliver callback", "error", err)
	}

	if ackErr := w.queue.Ack(ctx, req.MsgID); ackErr != nil {
		logger.Error("failed to ack request", "ack_error", ackErr)
	}
}

// buildIndex runs extraction for the file and assembles the completion
// callback.
func (w *Worker) buildIndex(ctx context.Context, req *domain.IndexRequest, startTime time.Time) (*domain.IndexCallback, error) {
	file, err := w.objects.Get(ctx, req.FileID)
	if err != nil {
		return nil, fmt.Errorf("loading file record: %w", err)
	}

	data, err := w.objects.DownloadBuffer(ctx, req.FileID)
	if err != nil {
		return nil, fmt.Errorf("downloading file content: %w", err)
	}

	fc, err := w.content.IndexContent(ctx, req.FileID, data, file.MimeType, "")
	if err != nil {
		return nil, fmt.Errorf("extracting content: %w", err)
	}

	return &domain.IndexCallback{
		JobID:            req.JobID,
		FileID:           req.FileID,
		FileName:         req.FileName,
		Status:           domain.CallbackStatusCompleted,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		NumChunks:        fc.TotalChunks,
		NumVectors:       fc.TotalChunks,
		IndexKey:         fmt.Sprintf("indexes/%s.idx", req.FileID),
		MetadataKey:      fmt.Sprintf("indexes/%s.meta", req.FileID),
	}, nil
}

// Health reports worker liveness and queue reachability.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
