package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven/mocks"
	"github.com/docket-labs/docket-core/internal/core/ports/driving"
)

type searchFixture struct {
	svc     driving.VectorSearchService
	content *ContentStore
	objects *mocks.MockObjectStore
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	f := &searchFixture{
		objects: mocks.NewMockObjectStore(),
	}
	f.content, _ = newTestContentStore()
	f.svc = NewVectorSearchService(VectorSearchServiceConfig{
		Content: f.content,
		Objects: f.objects,
	})
	return f
}

// indexedFile registers a file with a completed index and keyword content.
func (f *searchFixture) indexedFile(t *testing.T, id, text string) {
	t.Helper()
	f.objects.Put(&domain.StoredFile{
		ID:          id,
		Name:        id + ".txt",
		IndexStatus: domain.IndexStatusCompleted,
	}, []byte(text))
	mustIndex(t, f.content, id, text)
}

func TestVectorSearch(t *testing.T) {
	f := newSearchFixture(t)
	f.indexedFile(t, "file-1", "the refund policy covers damaged items")

	results, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
		FileID: "file-1",
		Query:  "refund policy",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].FileID != "file-1" {
		t.Errorf("result FileID = %q, want file-1", results[0].FileID)
	}
}

func TestVectorSearch_KDefaultAndCap(t *testing.T) {
	f := newSearchFixture(t)

	var sb strings.Builder
	for i := 0; i < 15; i++ {
		sb.WriteString(fmt.Sprintf("refund case %d ", i))
		sb.WriteString(strings.Repeat("x ", 400))
	}
	f.indexedFile(t, "file-1", sb.String())

	tests := []struct {
		name    string
		k       int
		maxWant int
	}{
		{"default", 0, domain.DefaultSearchK},
		{"explicit", 3, 3},
		{"capped", 50, domain.MaxSearchK},
		{"negative", -1, domain.DefaultSearchK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
				FileID: "file-1",
				Query:  "refund",
				K:      tt.k,
			})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) > tt.maxWant {
				t.Errorf("Search(k=%d) returned %d results, want <= %d", tt.k, len(results), tt.maxWant)
			}
		})
	}
}

func TestVectorSearch_MinScoreFilters(t *testing.T) {
	f := newSearchFixture(t)
	f.indexedFile(t, "file-1", "refund policy for returns"+strings.Repeat(" padding", 120)+" refund mentioned once")

	unfiltered, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
		FileID: "file-1",
		Query:  "refund policy",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(unfiltered) == 0 {
		t.Fatal("Search() returned no results")
	}

	// Threshold above the weakest hit's score.
	filtered, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
		FileID:   "file-1",
		Query:    "refund policy",
		MinScore: phraseMatchWeight,
	})
	if err != nil {
		t.Fatalf("Search() with MinScore error = %v", err)
	}
	for _, r := range filtered {
		if r.Score < phraseMatchWeight {
			t.Errorf("result score %f below MinScore %f", r.Score, phraseMatchWeight)
		}
	}
	if len(filtered) >= len(unfiltered) {
		t.Errorf("MinScore did not filter: %d results before, %d after", len(unfiltered), len(filtered))
	}
}

func TestVectorSearch_NotIndexed(t *testing.T) {
	f := newSearchFixture(t)

	// File exists with keyword content but the deep index never completed.
	f.objects.Put(&domain.StoredFile{
		ID:          "file-1",
		IndexStatus: domain.IndexStatusProcessing,
	}, []byte("text"))
	mustIndex(t, f.content, "file-1", "refund notes")

	_, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
		FileID: "file-1",
		Query:  "refund",
	})
	if !errors.Is(err, domain.ErrNotIndexed) {
		t.Errorf("Search() error = %v, want ErrNotIndexed", err)
	}
}

func TestVectorSearch_FileMissing(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{
		FileID: "ghost",
		Query:  "refund",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Search() error = %v, want ErrNotFound", err)
	}
}

func TestVectorSearch_InvalidInput(t *testing.T) {
	f := newSearchFixture(t)

	if _, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{Query: "q"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Search() without file id error = %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.Search(context.Background(), domain.VectorSearchRequest{FileID: "f"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Search() without query error = %v, want ErrInvalidInput", err)
	}
}
