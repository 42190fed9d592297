package company

import (
	"context"

	"github.com/chantier/backend/internal/domain/audit"
)

// ConfigurationRepository defines the interface for fiscal year
// configuration persistence. Records are upserted and superseded,
// never deleted.
type ConfigurationRepository interface {
	// FindByAnnee finds the configuration of a fiscal year
	FindByAnnee(ctx context.Context, annee int) (*ConfigurationEntreprise, error)

	// FindLatest finds the most recent fiscal year configuration
	FindLatest(ctx context.Context) (*ConfigurationEntreprise, error)

	// FindAll returns all fiscal year configurations, newest first
	FindAll(ctx context.Context) ([]ConfigurationEntreprise, error)

	// Upsert creates or replaces the configuration of a fiscal year; the
	// audit entry, when given, commits in the same transaction
	Upsert(ctx context.Context, configuration *ConfigurationEntreprise, entry *audit.LogEntry) error
}
