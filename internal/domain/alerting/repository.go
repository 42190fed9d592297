package alerting

import (
	"context"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/shared"
)

// AlerteRepository defines the interface for alert persistence
type AlerteRepository interface {
	// FindByID finds an alert by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Alerte, error)

	// FindOpenByChantier finds the open alert of a chantier, nil when none
	FindOpenByChantier(ctx context.Context, chantierID uuid.UUID) (*Alerte, error)

	// FindByChantier finds all alerts of a chantier
	FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]Alerte, error)

	// FindAll finds alerts with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Alerte, error)

	// Save creates or updates an alert
	Save(ctx context.Context, alerte *Alerte) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox in the same transaction
	SaveWithLockAndEvents(ctx context.Context, alerte *Alerte, events []shared.DomainEvent) error

	// Count counts alerts matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
