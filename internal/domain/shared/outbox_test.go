package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deadEntry() *OutboxEntry {
	return &OutboxEntry{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		EventType:   "budget.alerte_triggered",
		AggregateID: uuid.New(),
		Status:      OutboxStatusDead,
		RetryCount:  DefaultMaxRetries,
		MaxRetries:  DefaultMaxRetries,
		LastError:   "connecteur comptabilite indisponible",
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Minute),
	}
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("dead letter entry goes back to pending with a fresh budget", func(t *testing.T) {
		entry := deadEntry()

		require.NoError(t, entry.ResetForRetry())

		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.True(t, entry.UpdatedAt.After(time.Now().Add(-time.Second)))
	})

	t.Run("refuses entries that are not dead", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			err := entry.ResetForRetry()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "can only retry dead letter entries")
		}
	})
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	event := NewBaseDomainEvent("achat.confirmed", "Achat", uuid.New())
	entry := NewOutboxEntry(&event, []byte(`{"montant_ht":"12500.00"}`))

	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, "achat.confirmed", entry.EventType)
	assert.Equal(t, "Achat", entry.AggregateType)

	require.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)

	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	require.NotNil(t, entry.ProcessedAt)

	// A sent entry can no longer be claimed.
	assert.Error(t, entry.MarkProcessing())
}

func TestOutboxEntry_IsDead(t *testing.T) {
	assert.True(t, (&OutboxEntry{Status: OutboxStatusDead}).IsDead())

	for _, status := range []OutboxStatus{
		OutboxStatusPending,
		OutboxStatusProcessing,
		OutboxStatusSent,
		OutboxStatusFailed,
	} {
		assert.False(t, (&OutboxEntry{Status: status}).IsDead())
	}
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		EventType:  "situation.validated",
		Status:     OutboxStatusProcessing,
		RetryCount: DefaultMaxRetries - 1,
		MaxRetries: DefaultMaxRetries,
	}

	entry.MarkFailed("relais vers la paie en echec")

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.RetryCount)
	assert.Equal(t, "relais vers la paie en echec", entry.LastError)
	assert.True(t, entry.IsDead())
	assert.False(t, entry.CanRetry())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		EventType:  "facture.issued",
		Status:     OutboxStatusProcessing,
		MaxRetries: DefaultMaxRetries,
	}

	// Backoff doubles with each failure: 1s, 2s, 4s.
	windows := []struct {
		min time.Duration
		max time.Duration
	}{
		{0, 2 * time.Second},
		{time.Second, 3 * time.Second},
		{3 * time.Second, 5 * time.Second},
	}

	for i, window := range windows {
		entry.Status = OutboxStatusProcessing
		entry.MarkFailed("timeout")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, i+1, entry.RetryCount)
		assert.True(t, entry.CanRetry())
		require.NotNil(t, entry.NextRetryAt)

		backoff := time.Until(*entry.NextRetryAt)
		assert.True(t, backoff > window.min && backoff <= window.max,
			"retry %d scheduled in %v, expected between %v and %v", i+1, backoff, window.min, window.max)
	}
}
