package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EngagementSnapshot is the read-only result of a ledger re-aggregation.
// It is always recomputed fresh from source records, never incrementally
// maintained, so a stale read only reflects a slightly earlier committed
// state. Degraded is set when the chantier has no budget yet: the dashboard
// degrades to a zero-valued snapshot instead of failing.
type EngagementSnapshot struct {
	ChantierID             uuid.UUID       `json:"chantier_id"`
	MontantInitialHT       decimal.Decimal `json:"montant_initial_ht"`
	TotalAchats            decimal.Decimal `json:"total_achats"`
	CoutMainOeuvre         decimal.Decimal `json:"cout_main_oeuvre"`
	CoutMateriel           decimal.Decimal `json:"cout_materiel"`
	TotalEngage            decimal.Decimal `json:"total_engage"`
	QuotePartFraisGeneraux decimal.Decimal `json:"quote_part_frais_generaux"`
	CoutDeRevient          decimal.Decimal `json:"cout_de_revient"`
	Degraded               bool            `json:"degraded"`
	ComputedAt             time.Time       `json:"computed_at"`
}

// DegradedSnapshot builds the zero-valued snapshot returned when a chantier
// has no budget yet
func DegradedSnapshot(chantierID uuid.UUID) EngagementSnapshot {
	return EngagementSnapshot{
		ChantierID:             chantierID,
		MontantInitialHT:       decimal.Zero,
		TotalAchats:            decimal.Zero,
		CoutMainOeuvre:         decimal.Zero,
		CoutMateriel:           decimal.Zero,
		TotalEngage:            decimal.Zero,
		QuotePartFraisGeneraux: decimal.Zero,
		CoutDeRevient:          decimal.Zero,
		Degraded:               true,
		ComputedAt:             time.Now(),
	}
}

// CoutMainOeuvreProvider supplies the aggregated labor cost of a chantier.
// Labor records live in an external module; only the total crosses the boundary.
type CoutMainOeuvreProvider interface {
	CoutMainOeuvre(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)
}

// CoutMaterielProvider supplies the aggregated equipment cost of a chantier
type CoutMaterielProvider interface {
	CoutMateriel(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)
}
