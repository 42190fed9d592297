package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/costing"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// SnapshotProvider supplies the committed-cost snapshot of a chantier.
// Satisfied by the budget ledger service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, chantierID uuid.UUID) (budget.EngagementSnapshot, error)
}

// CAFactureProvider supplies the invoiced revenue of a chantier, fresh from
// non-cancelled client invoices. Satisfied by billing.FactureRepository.
type CAFactureProvider interface {
	SumMontantHTByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)
}

// MargeResponse represents the margin position of a chantier.
// Amounts and percentages are rounded at this edge only. MargePct is nil when
// the margin is indeterminate (nothing invoiced yet).
type MargeResponse struct {
	ChantierID        uuid.UUID        `json:"chantier_id"`
	CAFactureHT       decimal.Decimal  `json:"ca_facture_ht"`
	TotalEngage       decimal.Decimal  `json:"total_engage"`
	CoutDeRevient     decimal.Decimal  `json:"cout_de_revient"`
	MargeMontant      decimal.Decimal  `json:"marge_montant"`
	MargePct          *decimal.Decimal `json:"marge_pct,omitempty"`
	MargeIndeterminee bool             `json:"marge_indeterminee"`
	BudgetDegrade     bool             `json:"budget_degrade"`
	ComputedAt        time.Time        `json:"computed_at"`
}

// MargeService computes chantier margins from the committed-cost ledger and
// the invoiced revenue
type MargeService struct {
	snapshots SnapshotProvider
	caFacture CAFactureProvider
}

// NewMargeService creates a new MargeService
func NewMargeService(snapshots SnapshotProvider, caFacture CAFactureProvider) *MargeService {
	return &MargeService{
		snapshots: snapshots,
		caFacture: caFacture,
	}
}

// GetMargeChantier computes the margin position of a chantier. A chantier
// without invoiced revenue yields an indeterminate percentage, never a
// division by zero.
func (s *MargeService) GetMargeChantier(ctx context.Context, chantierID uuid.UUID) (*MargeResponse, error) {
	snapshot, err := s.snapshots.Snapshot(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	ca, err := s.caFacture.SumMontantHTByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}

	result := costing.CalculerMargeChantier(snapshot.TotalEngage, ca)

	response := &MargeResponse{
		ChantierID:        chantierID,
		CAFactureHT:       valueobject.ArrondirMontant(ca),
		TotalEngage:       valueobject.ArrondirMontant(snapshot.TotalEngage),
		CoutDeRevient:     valueobject.ArrondirMontant(snapshot.CoutDeRevient),
		MargeMontant:      valueobject.ArrondirMontant(result.MargeMontant),
		MargeIndeterminee: result.MargeIndeterminee,
		BudgetDegrade:     snapshot.Degraded,
		ComputedAt:        time.Now(),
	}
	if !result.MargeIndeterminee {
		pct := valueobject.ArrondirPct(result.MargePct)
		response.MargePct = &pct
	}
	return response, nil
}
