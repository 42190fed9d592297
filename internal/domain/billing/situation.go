package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// NewSituationRegressionError builds the error raised when a new situation
// would decrease the cumulative billed amount
func NewSituationRegressionError(previous, attempted decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(
		shared.ErrCodeSituationRegression,
		fmt.Sprintf("Regression du cumul de facturation : cumul precedent %s, cumul demande %s",
			previous.StringFixed(2), attempted.StringFixed(2)),
	)
}

// SituationTravaux is a periodic cumulative billing statement for a chantier.
// Once the next situation supersedes it, it is conceptually append-only:
// no mutating method exists beyond creation.
type SituationTravaux struct {
	shared.AuditedAggregateRoot
	ChantierID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	NumeroSituation  int                  `gorm:"not null"`
	MontantPeriodeHT decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	MontantCumuleHT  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TauxTVA          *valueobject.VatRate `gorm:"-"`
}

// TableName returns the table name for GORM
func (SituationTravaux) TableName() string {
	return "situations_travaux"
}

// NewSituationTravaux creates the next billing statement of a chantier.
// previousCumule is the cumulative amount of the latest situation (zero when
// none exists); the caller must read it inside the same transaction as the
// insert, under a per-chantier lock, to avoid two concurrent situations
// working from the same predecessor.
func NewSituationTravaux(chantierID uuid.UUID, numeroSituation int, previousCumule,
	montantPeriodeHT decimal.Decimal, tauxTVA valueobject.VatRate) (*SituationTravaux, error) {

	if chantierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'identifiant du chantier est obligatoire")
	}
	if numeroSituation < 1 {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le numero de situation doit etre superieur ou egal a 1")
	}

	cumule := previousCumule.Add(montantPeriodeHT)
	if cumule.LessThan(previousCumule) {
		return nil, NewSituationRegressionError(previousCumule, cumule)
	}

	situation := &SituationTravaux{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		ChantierID:           chantierID,
		NumeroSituation:      numeroSituation,
		MontantPeriodeHT:     montantPeriodeHT,
		MontantCumuleHT:      cumule,
		TauxTVA:              &tauxTVA,
	}

	situation.AddDomainEvent(NewSituationCreatedEvent(situation))

	return situation, nil
}

// MontantTVA returns the VAT amount on the period, full precision
func (s *SituationTravaux) MontantTVA() decimal.Decimal {
	if s.TauxTVA == nil {
		return decimal.Zero
	}
	return s.MontantPeriodeHT.Mul(s.TauxTVA.Value()).Div(decimal.NewFromInt(100))
}

// MontantPeriodeTTC returns the tax-inclusive amount of the period
func (s *SituationTravaux) MontantPeriodeTTC() decimal.Decimal {
	return s.MontantPeriodeHT.Add(s.MontantTVA())
}
