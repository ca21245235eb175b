package driven

import "context"

// Notifier fans out events to interested listeners over a side channel.
// Emit is fire-and-forget and best-effort: callers log failures and carry
// on; a broken relay must never fail the primary operation.
type Notifier interface {
	Emit(ctx context.Context, channel, event string, payload any) error
}
