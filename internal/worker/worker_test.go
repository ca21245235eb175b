package worker

import (
	"context"
	"testing"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven/mocks"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
	"github.com/docket-labs/docket-core/internal/core/services"
)

type workerFixture struct {
	worker   *Worker
	queue    *mocks.MockIndexQueue
	objects  *mocks.MockObjectStore
	indexing driving.IndexingService
	jobs     *mocks.MockJobStore
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	registry := mocks.NewMockExtractorRegistry()
	content := services.NewContentStore(services.ContentStoreConfig{
		Extractor: services.NewExtractor(registry),
		Snapshots: mocks.NewMockContentSnapshotStore(),
	})

	f := &workerFixture{
		queue:   mocks.NewMockIndexQueue(),
		objects: mocks.NewMockObjectStore(),
		jobs:    mocks.NewMockJobStore(),
	}
	f.indexing = services.NewIndexingService(services.IndexingServiceConfig{
		Jobs:       f.jobs,
		Objects:    f.objects,
		Dispatcher: mocks.NewMockIndexDispatcher(),
		Notifier:   mocks.NewMockNotifier(),
	})
	f.worker = New(Config{
		Queue:          f.queue,
		Objects:        f.objects,
		Content:        content,
		Indexing:       f.indexing,
		Concurrency:    2,
		DequeueTimeout: 1,
	})
	return f
}

// startJob seeds a file, starts a tracked job and pushes the matching
// dispatch request onto the queue.
func (f *workerFixture) startJob(t *testing.T, fileID string, data []byte) *domain.IndexingJob {
	t.Helper()
	f.objects.Put(&domain.StoredFile{
		ID:         fileID,
		Name:       fileID + ".txt",
		MimeType:   "text/plain",
		StorageKey: "objects/" + fileID,
	}, data)

	job, err := f.indexing.StartIndexing(context.Background(), fileID, "", false)
	if err != nil {
		t.Fatalf("StartIndexing(%s) error = %v", fileID, err)
	}
	f.queue.Push(&domain.IndexRequest{
		MsgID:      "msg-" + job.ID,
		JobID:      job.ID,
		FileID:     fileID,
		FileName:   fileID + ".txt",
		StorageKey: "objects/" + fileID,
	})
	return job
}

// waitTerminal polls until the job reaches a terminal state.
func (f *workerFixture) waitTerminal(t *testing.T, jobID string) *domain.IndexingJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.indexing.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob(%s) error = %v", jobID, err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return nil
}

func TestWorker_ProcessesRequest(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.startJob(t, "file-1", []byte("support ticket transcript"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	got := f.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.Stats == nil || got.Stats.NumChunks == 0 {
		t.Errorf("job stats = %+v, want chunk counts from the build", got.Stats)
	}

	file, _ := f.objects.Get(context.Background(), "file-1")
	if file.IndexStatus != domain.IndexStatusCompleted {
		t.Errorf("file index status = %s, want completed", file.IndexStatus)
	}
	if file.IndexKey == "" || file.MetadataKey == "" {
		t.Error("file index artefact keys not recorded")
	}
}

func TestWorker_AcksProcessedRequest(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.startJob(t, "file-1", []byte("content"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	f.waitTerminal(t, job.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.queue.Acked()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	acked := f.queue.Acked()
	if len(acked) != 1 || acked[0] != "msg-"+job.ID {
		t.Errorf("acked = %v, want the processed message", acked)
	}
}

func TestWorker_ExtractionFailureFailsJob(t *testing.T) {
	f := newWorkerFixture(t)

	// No extractor is registered for application/pdf.
	f.objects.Put(&domain.StoredFile{
		ID:         "file-1",
		Name:       "scan.pdf",
		MimeType:   "application/pdf",
		StorageKey: "objects/file-1",
	}, []byte("%PDF-1.4"))
	job, err := f.indexing.StartIndexing(context.Background(), "file-1", "", false)
	if err != nil {
		t.Fatalf("StartIndexing() error = %v", err)
	}
	f.queue.Push(&domain.IndexRequest{
		MsgID:  "msg-1",
		JobID:  job.ID,
		FileID: "file-1",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	got := f.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("job status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failed job carries no error")
	}
}

func TestWorker_MultipleRequests(t *testing.T) {
	f := newWorkerFixture(t)

	var jobIDs []string
	for _, fileID := range []string{"file-1", "file-2", "file-3"} {
		job := f.startJob(t, fileID, []byte("notes for "+fileID))
		jobIDs = append(jobIDs, job.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	for _, jobID := range jobIDs {
		got := f.waitTerminal(t, jobID)
		if got.Status != domain.JobStatusCompleted {
			t.Errorf("job %s status = %s, want completed", jobID, got.Status)
		}
	}
}

func TestWorker_StartStopIdempotent(t *testing.T) {
	f := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	f.worker.Stop()
	f.worker.Stop() // no-op
}

func TestWorker_Health(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	health := f.worker.Health(ctx)
	if health.Running {
		t.Error("Running = true before Start")
	}
	if !health.QueueHealth {
		t.Errorf("QueueHealth = false, error: %s", health.Error)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := f.worker.Start(runCtx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	health = f.worker.Health(ctx)
	if !health.Running {
		t.Error("Running = false after Start")
	}
}
