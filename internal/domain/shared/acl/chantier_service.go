package acl

import (
	"context"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/shared"
)

// ChantierStatusService is the port through which the ledger queries the
// lifecycle state of a chantier from its owning context. Implemented in the
// infrastructure layer, where it may cache results with a short TTL.
type ChantierStatusService interface {
	// GetStatut returns the current lifecycle state of the chantier.
	// Returns shared.ErrNotFound when the chantier is unknown.
	GetStatut(ctx context.Context, chantierID uuid.UUID) (StatutChantier, error)

	// ChantierExists checks existence without fetching state
	ChantierExists(ctx context.Context, chantierID uuid.UUID) (bool, error)
}

// VerifierChantierOuvert loads the chantier state and refuses the operation
// when the chantier is closed. Every state-affecting write on achats,
// situations, factures and budgets goes through this guard.
func VerifierChantierOuvert(ctx context.Context, svc ChantierStatusService, chantierID uuid.UUID) error {
	statut, err := svc.GetStatut(ctx, chantierID)
	if err != nil {
		return err
	}
	if statut.EstFerme() {
		return shared.ErrChantierFerme
	}
	return nil
}
