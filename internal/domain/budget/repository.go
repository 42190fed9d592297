package budget

import (
	"context"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/shared"
)

// BudgetRepository defines the interface for budget persistence
type BudgetRepository interface {
	// FindByID finds a budget by ID, lots included
	FindByID(ctx context.Context, id uuid.UUID) (*Budget, error)

	// FindByChantier finds the budget of a chantier, lots included.
	// Returns shared.ErrBudgetNotFound when the chantier has no budget yet.
	FindByChantier(ctx context.Context, chantierID uuid.UUID) (*Budget, error)

	// FindAll finds budgets with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Budget, error)

	// Save creates or updates a budget and its lots; the audit entry, when
	// given, commits in the same transaction
	Save(ctx context.Context, budget *Budget, entry *audit.LogEntry) error

	// SaveWithLockAndEvents saves with optimistic locking and persists domain
	// events to the outbox and the audit entry to the trail in the same
	// transaction
	SaveWithLockAndEvents(ctx context.Context, budget *Budget, events []shared.DomainEvent, entry *audit.LogEntry) error

	// Count counts budgets matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
