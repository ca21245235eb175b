package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docket-labs/docket-core/internal/core/ports/driven"
)

const (
	channelPrefix = "docket:events:"

	emitTimeout = 2 * time.Second
)

// Verify interface compliance
var _ driven.Notifier = (*Notifier)(nil)

// Notifier relays events over Redis pub/sub. Delivery is fire-and-forget:
// subscribers that are offline miss events, and a slow broker never stalls
// the caller for more than emitTimeout.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a Notifier over the given client
func NewNotifier(client *redis.Client) (*Notifier, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Notifier{client: client}, nil
}

// envelope is the wire format published on event channels
type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Emit publishes an event on a channel
func (n *Notifier) Emit(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()

	if err := n.client.Publish(ctx, channelPrefix+channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event, err)
	}
	return nil
}
