package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/shared"
)

// SituationRepository defines the interface for situation persistence
type SituationRepository interface {
	// FindByID finds a situation by ID
	FindByID(ctx context.Context, id uuid.UUID) (*SituationTravaux, error)

	// FindByChantier finds the situations of a chantier, ordered by number
	FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]SituationTravaux, error)

	// FindAll finds situations with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]SituationTravaux, error)

	// CreateNext creates the next situation of a chantier atomically: it
	// acquires a per-chantier lock, reads the latest cumulative amount,
	// invokes build with it, and inserts the result plus its outbox events
	// and audit entry in the same transaction. build returns the situation or
	// a domain error (regression, validation) which aborts without writing;
	// entryFor produces the audit entry for the situation build returned.
	CreateNext(ctx context.Context, chantierID uuid.UUID,
		build func(numeroSituation int, previousCumule decimal.Decimal) (*SituationTravaux, error),
		entryFor func(*SituationTravaux) (*audit.LogEntry, error)) (*SituationTravaux, error)

	// Count counts situations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// FactureRepository defines the interface for client invoice persistence
type FactureRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*FactureClient, error)

	// FindBySituation finds all invoices issued from a situation
	FindBySituation(ctx context.Context, situationID uuid.UUID) ([]FactureClient, error)

	// ExistsActiveForSituation reports whether a non-cancelled invoice
	// already exists for the situation
	ExistsActiveForSituation(ctx context.Context, situationID uuid.UUID) (bool, error)

	// FindByChantier finds the invoices of a chantier
	FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]FactureClient, error)

	// SumMontantHTByChantier sums montant_ht of non-cancelled invoices for a
	// chantier (the chantier's invoiced revenue)
	SumMontantHTByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, facture *FactureClient) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox and the audit entry to the trail in the same
	// transaction
	SaveWithLockAndEvents(ctx context.Context, facture *FactureClient, events []shared.DomainEvent, entry *audit.LogEntry) error

	// NextNumero reserves the next invoice number for the given year
	NextNumero(ctx context.Context, year int) (string, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
