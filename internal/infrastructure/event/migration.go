package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chantier/backend/internal/domain/shared"
)

// outboxMigrationBatchSize bounds how many outbox rows are loaded per query
// while rewriting payloads.
const outboxMigrationBatchSize = 500

// MigrationResult summarizes an outbox payload rewrite for one event type
type MigrationResult struct {
	EventType      string
	TotalScanned   int
	Upgraded       int
	AlreadyCurrent int
	Failed         int
	FailedEntries  []FailedEntry
	StartedAt      time.Time
	CompletedAt    time.Time
	ToVersion      int
}

// FailedEntry identifies an outbox row whose payload could not be upgraded
type FailedEntry struct {
	EntryID uuid.UUID
	Version int
	Error   string
}

// Duration returns how long the rewrite took
func (r *MigrationResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// OutboxMigrator rewrites persisted outbox payloads to the current schema
// version of their event type. The outbox processor already upgrades
// payloads on the fly when dispatching; the migrator exists for dead or
// long-parked rows, and to retire old upgraders once no stale payload
// remains.
type OutboxMigrator struct {
	db         *gorm.DB
	serializer *VersionedSerializer
	logger     *zap.Logger
}

// NewOutboxMigrator creates a new outbox migrator
func NewOutboxMigrator(db *gorm.DB, serializer *VersionedSerializer, logger *zap.Logger) *OutboxMigrator {
	return &OutboxMigrator{
		db:         db,
		serializer: serializer,
		logger:     logger,
	}
}

// UpgradeEventType rewrites every stale payload of one event type in place.
// Rows already at the current version are left untouched; rows that fail to
// upgrade are reported and skipped, never modified.
func (m *OutboxMigrator) UpgradeEventType(ctx context.Context, eventType string) (*MigrationResult, error) {
	currentVersion, ok := m.serializer.GetCurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	if err := m.ValidateUpgradeChain(eventType); err != nil {
		return nil, err
	}

	result := &MigrationResult{
		EventType: eventType,
		StartedAt: time.Now(),
		ToVersion: currentVersion,
	}

	var cursor uuid.UUID
	for {
		select {
		case <-ctx.Done():
			result.CompletedAt = time.Now()
			return result, ctx.Err()
		default:
		}

		var entries []*shared.OutboxEntry
		err := m.db.WithContext(ctx).
			Where("event_type = ? AND id > ?", eventType, cursor).
			Order("id ASC").
			Limit(outboxMigrationBatchSize).
			Find(&entries).Error
		if err != nil {
			result.CompletedAt = time.Now()
			return result, err
		}
		if len(entries) == 0 {
			break
		}
		cursor = entries[len(entries)-1].ID

		for _, entry := range entries {
			result.TotalScanned++

			version := ExtractVersion(entry.Payload)
			if version >= currentVersion {
				result.AlreadyCurrent++
				continue
			}

			upgraded, newVersion, err := m.serializer.UpgradePayloadOnly(eventType, entry.Payload)
			if err != nil {
				result.Failed++
				result.FailedEntries = append(result.FailedEntries, FailedEntry{
					EntryID: entry.ID,
					Version: version,
					Error:   err.Error(),
				})
				m.logger.Warn("outbox payload upgrade failed",
					zap.String("event_type", eventType),
					zap.String("entry_id", entry.ID.String()),
					zap.Int("from_version", version),
					zap.Error(err))
				continue
			}

			err = m.db.WithContext(ctx).Model(&shared.OutboxEntry{}).
				Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"payload":    upgraded,
					"updated_at": time.Now(),
				}).Error
			if err != nil {
				result.CompletedAt = time.Now()
				return result, err
			}

			result.Upgraded++
			m.logger.Debug("outbox payload upgraded",
				zap.String("event_type", eventType),
				zap.String("entry_id", entry.ID.String()),
				zap.Int("from_version", version),
				zap.Int("to_version", newVersion))
		}
	}

	result.CompletedAt = time.Now()
	return result, nil
}

// UpgradeAll rewrites stale payloads for every registered event type that
// carries an upgrade chain. Types still at version 1 have nothing to rewrite
// and are skipped.
func (m *OutboxMigrator) UpgradeAll(ctx context.Context) ([]*MigrationResult, error) {
	results := make([]*MigrationResult, 0)
	for _, eventType := range m.serializer.RegisteredTypes() {
		currentVersion, _ := m.serializer.GetCurrentVersion(eventType)
		if currentVersion <= 1 {
			continue
		}
		result, err := m.UpgradeEventType(ctx, eventType)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ValidateUpgradeChain checks that an event type has an unbroken chain of
// upgraders from version 1 to its current version
func (m *OutboxMigrator) ValidateUpgradeChain(eventType string) error {
	config, ok := m.serializer.GetVersionRegistry().GetConfig(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	for v := 1; v < config.CurrentVersion; v++ {
		if _, ok := config.Upgraders[v]; !ok {
			return fmt.Errorf("missing upgrader for version %d -> %d of %s", v, v+1, eventType)
		}
	}
	return nil
}

// VersionReport describes the schema version spread of one event type in
// the outbox table
type VersionReport struct {
	EventType      string
	CurrentVersion int
	VersionCounts  map[int]int
	TotalEntries   int
	NeedsUpgrade   int
}

// Analyze reports, per registered event type, how many outbox rows still
// carry a payload older than the current schema version. Read only.
func (m *OutboxMigrator) Analyze(ctx context.Context) ([]*VersionReport, error) {
	reports := make([]*VersionReport, 0)

	for _, eventType := range m.serializer.RegisteredTypes() {
		currentVersion, _ := m.serializer.GetCurrentVersion(eventType)
		report := &VersionReport{
			EventType:      eventType,
			CurrentVersion: currentVersion,
			VersionCounts:  make(map[int]int),
		}

		var cursor uuid.UUID
		for {
			var entries []*shared.OutboxEntry
			err := m.db.WithContext(ctx).
				Select("id", "payload").
				Where("event_type = ? AND id > ?", eventType, cursor).
				Order("id ASC").
				Limit(outboxMigrationBatchSize).
				Find(&entries).Error
			if err != nil {
				return reports, err
			}
			if len(entries) == 0 {
				break
			}
			cursor = entries[len(entries)-1].ID

			for _, entry := range entries {
				version := ExtractVersion(entry.Payload)
				report.VersionCounts[version]++
				report.TotalEntries++
				if version < currentVersion {
					report.NeedsUpgrade++
				}
			}
		}

		if report.TotalEntries > 0 {
			reports = append(reports, report)
		}
	}

	return reports, nil
}
