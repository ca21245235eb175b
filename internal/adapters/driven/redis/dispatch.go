package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docket-labs/docket-core/internal/core/domain"
	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

const (
	requestStream = "docket:index:requests"
	requestGroup  = "docket:indexers"

	consumerPrefix = "indexer-"

	// claimTimeout is how long a dequeued request may sit unacknowledged
	// before another consumer may claim it
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var (
	_ driven.IndexDispatcher = (*DispatchStream)(nil)
	_ driven.IndexQueue      = (*DispatchStream)(nil)
)

// DispatchStream carries indexing requests over a Redis Stream. The core
// produces with TriggerIndexing; indexer workers consume through a
// consumer group, so each request is delivered to exactly one worker and
// redelivered if that worker dies before acknowledging.
type DispatchStream struct {
	client       *redis.Client
	consumerName string
}

// NewDispatchStream creates a dispatch stream over the given client.
// The consumerName should be unique per worker instance (e.g. hostname + PID).
func NewDispatchStream(client *redis.Client, consumerName string) (*DispatchStream, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	d := &DispatchStream{
		client:       client,
		consumerName: consumerName,
	}

	// Create consumer group if it doesn't exist
	ctx := context.Background()
	err := d.client.XGroupCreateMkStream(ctx, requestStream, requestGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return d, nil
}

// TriggerIndexing adds a request to the stream. A nil return means the
// request was durably accepted, not that indexing finished.
func (d *DispatchStream) TriggerIndexing(ctx context.Context, req domain.IndexRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal index request: %w", err)
	}

	err = d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: requestStream,
		Values: map[string]interface{}{
			"job_id":  req.JobID,
			"file_id": req.FileID,
			"request": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue index request: %w", err)
	}
	return nil
}

// DequeueWithTimeout retrieves the next request, waiting up to timeout
// seconds. Returns nil, nil if none became available.
func (d *DispatchStream) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.IndexRequest, error) {
	// Requests abandoned by dead consumers take priority over new ones
	if req, err := d.claimAbandoned(ctx); err == nil && req != nil {
		return req, nil
	}

	blockDuration := time.Duration(timeout) * time.Second
	if timeout == 0 {
		blockDuration = 0 // block forever
	}

	streams, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    requestGroup,
		Consumer: d.consumerName,
		Streams:  []string{requestStream, ">"},
		Count:    1,
		Block:    blockDuration,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return d.decodeMessage(ctx, streams[0].Messages[0]), nil
}

// Ack acknowledges a processed request by its message ID
func (d *DispatchStream) Ack(ctx context.Context, msgID string) error {
	pipe := d.client.Pipeline()
	pipe.XAck(ctx, requestStream, requestGroup, msgID)
	pipe.XDel(ctx, requestStream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack request: %w", err)
	}
	return nil
}

// Ping checks if the stream backend is healthy
func (d *DispatchStream) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// claimAbandoned tries to claim a request left pending by another consumer.
func (d *DispatchStream) claimAbandoned(ctx context.Context) (*domain.IndexRequest, error) {
	pending, err := d.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: requestStream,
		Group:  requestGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := d.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   requestStream,
			Group:    requestGroup,
			Consumer: d.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		if req := d.decodeMessage(ctx, claimed[0]); req != nil {
			return req, nil
		}
	}
	return nil, nil
}

// decodeMessage parses a stream entry into an IndexRequest. Malformed
// entries are acknowledged and dropped so they cannot wedge the group.
func (d *DispatchStream) decodeMessage(ctx context.Context, msg redis.XMessage) *domain.IndexRequest {
	raw, ok := msg.Values["request"].(string)
	if !ok {
		d.client.XAck(ctx, requestStream, requestGroup, msg.ID)
		d.client.XDel(ctx, requestStream, msg.ID)
		return nil
	}

	var req domain.IndexRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		d.client.XAck(ctx, requestStream, requestGroup, msg.ID)
		d.client.XDel(ctx, requestStream, msg.ID)
		return nil
	}

	req.MsgID = msg.ID
	return &req
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
