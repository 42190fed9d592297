package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event IDs so a redelivered outbox
// event (achat confirmed twice, situation validated twice) does not mutate
// the ledger again.
type IdempotencyStore interface {
	// MarkProcessed records an event ID with a TTL. Returns true when the
	// event was newly marked, false when it had already been processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID has already been processed.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig controls duplicate-event suppression.
type IdempotencyConfig struct {
	// TTL is how long a processed event ID is remembered. After it elapses
	// the same ID would be processed again.
	TTL time.Duration

	// Enabled toggles the idempotency check.
	Enabled bool
}

// DefaultIdempotencyConfig remembers processed events for 24 hours, long
// past the outbox redelivery window.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
