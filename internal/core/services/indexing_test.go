package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven/mocks"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

type indexingFixture struct {
	svc        driving.IndexingService
	jobs       *mocks.MockJobStore
	objects    *mocks.MockObjectStore
	dispatcher *mocks.MockIndexDispatcher
	notifier   *mocks.MockNotifier
}

func newIndexingFixture() *indexingFixture {
	f := &indexingFixture{
		jobs:       mocks.NewMockJobStore(),
		objects:    mocks.NewMockObjectStore(),
		dispatcher: mocks.NewMockIndexDispatcher(),
		notifier:   mocks.NewMockNotifier(),
	}
	f.objects.Put(&domain.StoredFile{
		ID:         "file-1",
		Name:       "handbook.pdf",
		StorageKey: "objects/file-1",
	}, []byte("pdf bytes"))
	f.svc = NewIndexingService(IndexingServiceConfig{
		Jobs:       f.jobs,
		Objects:    f.objects,
		Dispatcher: f.dispatcher,
		Notifier:   f.notifier,
	})
	return f
}

func TestStartIndexing(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, err := f.svc.StartIndexing(ctx, "file-1", "handbook.pdf", false)
	if err != nil {
		t.Fatalf("StartIndexing() error = %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Errorf("job status = %s, want processing", job.Status)
	}
	if job.StartedAt == nil {
		t.Error("StartedAt is nil after dispatch")
	}

	reqs := f.dispatcher.Requests()
	if len(reqs) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(reqs))
	}
	if reqs[0].JobID != job.ID || reqs[0].FileID != "file-1" || reqs[0].StorageKey != "objects/file-1" {
		t.Errorf("dispatch request = %+v, want job/file/storage key populated", reqs[0])
	}

	stored, err := f.objects.Get(ctx, "file-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.IndexStatus != domain.IndexStatusProcessing {
		t.Errorf("file index status = %s, want processing", stored.IndexStatus)
	}

	names := f.notifier.EventNames()
	if len(names) != 1 || names[0] != domain.EventIndexingStarted {
		t.Errorf("emitted events = %v, want [%s]", names, domain.EventIndexingStarted)
	}
}

func TestStartIndexing_DuplicateRejected(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	first, err := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err != nil {
		t.Fatalf("StartIndexing() error = %v", err)
	}

	_, err = f.svc.StartIndexing(ctx, "file-1", "", false)
	if !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("StartIndexing() error = %v, want ErrDuplicateJob", err)
	}

	// The original job is untouched and only one dispatch happened.
	got, _ := f.svc.GetJob(ctx, first.ID)
	if got.Status != domain.JobStatusProcessing {
		t.Errorf("original job status = %s, want processing", got.Status)
	}
	if len(f.dispatcher.Requests()) != 1 {
		t.Errorf("dispatched %d requests, want 1", len(f.dispatcher.Requests()))
	}
}

func TestStartIndexing_ForceRebuildAllowsSecondJob(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	if _, err := f.svc.StartIndexing(ctx, "file-1", "", false); err != nil {
		t.Fatalf("StartIndexing() error = %v", err)
	}
	second, err := f.svc.StartIndexing(ctx, "file-1", "", true)
	if err != nil {
		t.Fatalf("StartIndexing(force) error = %v", err)
	}
	if !second.ForceRebuild {
		t.Error("second job should record ForceRebuild")
	}
	if len(f.dispatcher.Requests()) != 2 {
		t.Errorf("dispatched %d requests, want 2", len(f.dispatcher.Requests()))
	}
}

func TestStartIndexing_AfterTerminalJobAllowed(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	first, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  first.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	second, err := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err != nil {
		t.Fatalf("StartIndexing() after completion error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("rebuild must be a new job, not a reused record")
	}
}

func TestStartIndexing_FileMissing(t *testing.T) {
	f := newIndexingFixture()

	_, err := f.svc.StartIndexing(context.Background(), "ghost", "", false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("StartIndexing() error = %v, want ErrNotFound", err)
	}
	if f.jobs.Count() != 0 {
		t.Errorf("job count = %d, want 0 when file is missing", f.jobs.Count())
	}
}

func TestStartIndexing_DispatchFailureFailsJob(t *testing.T) {
	f := newIndexingFixture()
	f.dispatcher.FailWith = errors.New("stream unavailable")

	_, err := f.svc.StartIndexing(context.Background(), "file-1", "", false)
	if err == nil {
		t.Fatal("StartIndexing() expected error when dispatch fails")
	}
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Errorf("StartIndexing() error = %v, want UpstreamError", err)
	}

	jobs, _ := f.svc.ListJobs(context.Background())
	if len(jobs) != 1 {
		t.Fatalf("job count = %d, want 1", len(jobs))
	}
	if jobs[0].Status != domain.JobStatusFailed {
		t.Errorf("job status = %s, want failed", jobs[0].Status)
	}
	if jobs[0].Error == "" {
		t.Error("failed job should carry the dispatch error")
	}
}

func TestCompleteFromCallback_Completed(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	cb := domain.IndexCallback{
		JobID:            job.ID,
		FileID:           "file-1",
		Status:           domain.CallbackStatusCompleted,
		ProcessingTimeMs: 420,
		NumChunks:        12,
		NumVectors:       12,
		IndexKey:         "indexes/file-1.idx",
		MetadataKey:      "indexes/file-1.meta",
	}
	if err := f.svc.CompleteFromCallback(ctx, cb); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Fatalf("job status = %s, want completed", got.Status)
	}
	if got.Stats == nil || got.Stats.NumChunks != 12 || got.Stats.ProcessingTimeMs != 420 {
		t.Errorf("job stats = %+v, want callback stats recorded", got.Stats)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt is nil for completed job")
	}

	file, _ := f.objects.Get(ctx, "file-1")
	if file.IndexStatus != domain.IndexStatusCompleted {
		t.Errorf("file index status = %s, want completed", file.IndexStatus)
	}
	if file.IndexKey != "indexes/file-1.idx" || file.NumChunks != 12 {
		t.Errorf("file index metadata = %+v, want callback values mirrored", file)
	}
	if file.IndexedAt == nil {
		t.Error("file IndexedAt is nil after completion")
	}
}

func TestCompleteFromCallback_Failed(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  job.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusFailed,
		Error:  "embedding service timeout",
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Fatalf("job status = %s, want failed", got.Status)
	}
	if got.Error != "embedding service timeout" {
		t.Errorf("job error = %q, want callback error recorded", got.Error)
	}

	file, _ := f.objects.Get(ctx, "file-1")
	if file.IndexStatus != domain.IndexStatusFailed {
		t.Errorf("file index status = %s, want failed", file.IndexStatus)
	}
	if file.IndexError != "embedding service timeout" {
		t.Errorf("file index error = %q, want callback error", file.IndexError)
	}
}

func TestCompleteFromCallback_DuplicateIgnored(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	cb := domain.IndexCallback{
		JobID:     job.ID,
		FileID:    "file-1",
		Status:    domain.CallbackStatusCompleted,
		NumChunks: 7,
	}
	if err := f.svc.CompleteFromCallback(ctx, cb); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}
	first, _ := f.svc.GetJob(ctx, job.ID)

	// Redelivered callback, and a contradictory late failure: both no-ops.
	if err := f.svc.CompleteFromCallback(ctx, cb); err != nil {
		t.Fatalf("CompleteFromCallback() duplicate error = %v", err)
	}
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  job.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusFailed,
		Error:  "late failure",
	}); err != nil {
		t.Fatalf("CompleteFromCallback() late failure error = %v", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("job status = %s, want completed to stick", got.Status)
	}
	if !got.CompletedAt.Equal(*first.CompletedAt) {
		t.Error("duplicate callback changed CompletedAt")
	}
	if got.Error != "" {
		t.Errorf("job error = %q, want empty after ignored late failure", got.Error)
	}
}

func TestCompleteFromCallback_ResolvesByFileID(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)

	// Legacy indexer callback without a job ID.
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("job status = %s, want completed via file id resolution", got.Status)
	}
}

func TestCompleteFromCallback_RedeliveryAfterTerminal(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	// A legacy indexer redelivers without a job ID after the job went
	// terminal. That must be dropped, not surfaced as not-found.
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		FileID: "file-1",
		Status: domain.CallbackStatusFailed,
		Error:  "stale retry",
	}); err != nil {
		t.Fatalf("CompleteFromCallback() redelivery error = %v", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("job status = %s, want completed after stale redelivery", got.Status)
	}
}

func TestCompleteFromCallback_UnknownFileStillErrors(t *testing.T) {
	f := newIndexingFixture()

	err := f.svc.CompleteFromCallback(context.Background(), domain.IndexCallback{
		FileID: "file-never-seen",
		Status: domain.CallbackStatusCompleted,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CompleteFromCallback() error = %v, want ErrNotFound", err)
	}
}

func TestCompleteFromCallback_UnknownJob(t *testing.T) {
	f := newIndexingFixture()

	err := f.svc.CompleteFromCallback(context.Background(), domain.IndexCallback{
		JobID:  "missing",
		Status: domain.CallbackStatusCompleted,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CompleteFromCallback() error = %v, want ErrNotFound", err)
	}
}

func TestCancelJob(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)

	cancelled, err := f.svc.CancelJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelJob() error = %v", err)
	}
	if !cancelled {
		t.Fatal("CancelJob() = false, want true for processing job")
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCancelled {
		t.Errorf("job status = %s, want cancelled", got.Status)
	}

	// A late callback for the cancelled job must not resurrect it.
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  job.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}
	got, _ = f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCancelled {
		t.Errorf("job status = %s after late callback, want cancelled", got.Status)
	}
}

func TestCancelJob_TerminalReturnsFalse(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	job, _ := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  job.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v", err)
	}

	cancelled, err := f.svc.CancelJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelJob() error = %v", err)
	}
	if cancelled {
		t.Error("CancelJob() = true for completed job, want false")
	}
}

func TestCancelJob_Missing(t *testing.T) {
	f := newIndexingFixture()

	_, err := f.svc.CancelJob(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CancelJob() error = %v, want ErrNotFound", err)
	}
}

func TestIndexing_NotifierFailureSwallowed(t *testing.T) {
	f := newIndexingFixture()
	f.notifier.FailWith = errors.New("relay down")
	ctx := context.Background()

	job, err := f.svc.StartIndexing(ctx, "file-1", "", false)
	if err != nil {
		t.Fatalf("StartIndexing() error = %v with failing notifier", err)
	}
	if err := f.svc.CompleteFromCallback(ctx, domain.IndexCallback{
		JobID:  job.ID,
		FileID: "file-1",
		Status: domain.CallbackStatusCompleted,
	}); err != nil {
		t.Fatalf("CompleteFromCallback() error = %v with failing notifier", err)
	}

	got, _ := f.svc.GetJob(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("job status = %s, want completed despite notifier failure", got.Status)
	}
}

func TestListJobs_NewestFirst(t *testing.T) {
	f := newIndexingFixture()
	ctx := context.Background()

	f.objects.Put(&domain.StoredFile{ID: "file-2", Name: "b.txt", StorageKey: "objects/file-2"}, nil)
	f.objects.Put(&domain.StoredFile{ID: "file-3", Name: "c.txt", StorageKey: "objects/file-3"}, nil)

	for _, id := range []string{"file-1", "file-2", "file-3"} {
		if _, err := f.svc.StartIndexing(ctx, id, "", false); err != nil {
			t.Fatalf("StartIndexing(%s) error = %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := f.svc.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("ListJobs() returned %d jobs, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Errorf("jobs not ordered newest first at index %d", i)
		}
	}
}
