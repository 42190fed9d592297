package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/shared"
)

// AchatRepository defines the interface for purchase persistence
type AchatRepository interface {
	// FindByID finds a purchase by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Achat, error)

	// FindByNumero finds a purchase by its number
	FindByNumero(ctx context.Context, numero string) (*Achat, error)

	// FindAll finds purchases with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Achat, error)

	// FindByChantier finds purchases for a chantier
	FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]Achat, error)

	// FindByStatut finds purchases in a given status
	FindByStatut(ctx context.Context, statut StatutAchat, filter shared.Filter) ([]Achat, error)

	// Save creates or updates a purchase
	Save(ctx context.Context, achat *Achat) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events atomically. Events go to the outbox table and the audit entry to
	// the trail in the same transaction as the aggregate: either the mutation
	// commits fully audited or nothing commits.
	SaveWithLockAndEvents(ctx context.Context, achat *Achat, events []shared.DomainEvent, entry *audit.LogEntry) error

	// Count counts purchases matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// SumMontantEngageByChantier sums montant_ht of all non-cancelled purchases
	// for a chantier, fresh from the source rows
	SumMontantEngageByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)

	// NextNumero reserves the next purchase number for the given year
	NextNumero(ctx context.Context, year int) (string, error)
}

// FournisseurRepository defines the interface for supplier persistence
type FournisseurRepository interface {
	// FindByID finds a supplier by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Fournisseur, error)

	// FindAll finds suppliers with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Fournisseur, error)

	// FindByType finds suppliers of a given category
	FindByType(ctx context.Context, typeFournisseur FournisseurType, filter shared.Filter) ([]Fournisseur, error)

	// Save creates or updates a supplier; the audit entry, when given,
	// commits in the same transaction
	Save(ctx context.Context, fournisseur *Fournisseur, entry *audit.LogEntry) error

	// Count counts suppliers matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
