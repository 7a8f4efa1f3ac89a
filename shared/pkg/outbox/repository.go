package outbox

import "context"

// Repository defines outbox event persistence
type Repository interface {
	// SaveAll saves events; pass a session context to join the aggregate's transaction
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns unpublished events below their retry limit, oldest first
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry bumps the retry count and records the last error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// CountPending counts events still waiting for delivery
	CountPending(ctx context.Context) (int64, error)

	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
