package driven

import (
	"context"

	"github.com/docket-labs/docket-core/internal/core/domain"
)

// IndexDispatcher hands an indexing request to the external indexer.
// Dispatch is fire-and-forget: a nil return means the request was accepted,
// not that indexing finished. The terminal outcome arrives later as a
// domain.IndexCallback, delivered at least once.
type IndexDispatcher interface {
	TriggerIndexing(ctx context.Context, req domain.IndexRequest) error
}

// IndexQueue is the consumer side of the dispatch channel, used by the
// embedded indexer worker.
type IndexQueue interface {
	// DequeueWithTimeout retrieves the next request, waiting up to timeout
	// seconds. Returns nil, nil if none became available.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IndexRequest, error)

	// Ack acknowledges a processed request by its message ID
	Ack(ctx context.Context, msgID string) error

	// Ping checks that the queue backend is healthy
	Ping(ctx context.Context) error
}
