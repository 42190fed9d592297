package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// NiveauAlerte is the severity of a budget alert
type NiveauAlerte string

const (
	NiveauAlerteWarning  NiveauAlerte = "WARNING"
	NiveauAlerteCritical NiveauAlerte = "CRITICAL"
)

// IsValid checks if the level is a valid NiveauAlerte
func (n NiveauAlerte) IsValid() bool {
	return n == NiveauAlerteWarning || n == NiveauAlerteCritical
}

// String returns the string representation of NiveauAlerte
func (n NiveauAlerte) String() string {
	return string(n)
}

// StatutAlerte is the lifecycle status of an alert
type StatutAlerte string

const (
	StatutAlerteOuverte StatutAlerte = "OUVERTE"
	StatutAlerteResolue StatutAlerte = "RESOLUE"
)

// EvaluationSeuils carries the thresholds used for an evaluation, percentages
type EvaluationSeuils struct {
	SeuilPct         decimal.Decimal
	SeuilCritiquePct decimal.Decimal
}

// Evaluation is the outcome of a spend-to-budget check
type Evaluation struct {
	RatioPct decimal.Decimal
	Niveau   NiveauAlerte
	Breached bool
}

// Evaluer computes ratio = totalEngage / montantInitial * 100 and returns
// the highest breached severity. A zero envelope never breaches: there is
// no meaningful ratio to alert on.
func Evaluer(totalEngage, montantInitial decimal.Decimal, seuils EvaluationSeuils) Evaluation {
	if montantInitial.IsZero() {
		return Evaluation{RatioPct: decimal.Zero}
	}

	ratio := totalEngage.Div(montantInitial).Mul(decimal.NewFromInt(100))
	switch {
	case ratio.GreaterThanOrEqual(seuils.SeuilCritiquePct):
		return Evaluation{RatioPct: ratio, Niveau: NiveauAlerteCritical, Breached: true}
	case ratio.GreaterThanOrEqual(seuils.SeuilPct):
		return Evaluation{RatioPct: ratio, Niveau: NiveauAlerteWarning, Breached: true}
	default:
		return Evaluation{RatioPct: ratio}
	}
}

// Alerte is a budget threshold alert. At most one open alert exists per
// chantier, carrying the highest currently breached severity;
// re-evaluation raises, lowers or resolves it instead of duplicating.
type Alerte struct {
	shared.AuditedAggregateRoot
	ChantierID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Niveau     NiveauAlerte    `gorm:"type:varchar(10);not null"`
	Statut     StatutAlerte    `gorm:"type:varchar(10);not null;default:'OUVERTE'"`
	RatioPct   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	SeuilPct   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	Message    string          `gorm:"type:varchar(500);not null"`
	ResolueLe  *time.Time
}

// TableName returns the table name for GORM
func (Alerte) TableName() string {
	return "alertes"
}

// NewAlerte opens an alert for a chantier at the given severity
func NewAlerte(chantierID uuid.UUID, evaluation Evaluation, seuils EvaluationSeuils) (*Alerte, error) {
	if chantierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'identifiant du chantier est obligatoire")
	}
	if !evaluation.Breached {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Aucun seuil franchi, pas d'alerte a ouvrir")
	}

	seuil := seuils.SeuilPct
	if evaluation.Niveau == NiveauAlerteCritical {
		seuil = seuils.SeuilCritiquePct
	}

	alerte := &Alerte{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		ChantierID:           chantierID,
		Niveau:               evaluation.Niveau,
		Statut:               StatutAlerteOuverte,
		RatioPct:             evaluation.RatioPct,
		SeuilPct:             seuil,
		Message:              messageAlerte(evaluation, seuil),
	}

	alerte.AddDomainEvent(NewAlerteDeclencheeEvent(alerte))

	return alerte, nil
}

func messageAlerte(evaluation Evaluation, seuil decimal.Decimal) string {
	return fmt.Sprintf("Budget engage a %s%% (seuil %s : %s%%)",
		evaluation.RatioPct.Round(2).String(), evaluation.Niveau, seuil.String())
}

// EstOuverte reports whether the alert is still open
func (a *Alerte) EstOuverte() bool {
	return a.Statut == StatutAlerteOuverte
}

// Reevaluer updates an open alert after a fresh evaluation. The severity is
// raised or lowered in place; the declenchee event fires only on a raise.
func (a *Alerte) Reevaluer(evaluation Evaluation, seuils EvaluationSeuils) error {
	if !a.EstOuverte() {
		return shared.NewDomainError(shared.ErrCodeValidation, "Une alerte resolue ne peut pas etre reevaluee")
	}
	if !evaluation.Breached {
		return shared.NewDomainError(shared.ErrCodeValidation, "Aucun seuil franchi, l'alerte doit etre resolue")
	}

	raised := a.Niveau == NiveauAlerteWarning && evaluation.Niveau == NiveauAlerteCritical

	seuil := seuils.SeuilPct
	if evaluation.Niveau == NiveauAlerteCritical {
		seuil = seuils.SeuilCritiquePct
	}

	a.Niveau = evaluation.Niveau
	a.RatioPct = evaluation.RatioPct
	a.SeuilPct = seuil
	a.Message = messageAlerte(evaluation, seuil)
	a.Touch()
	a.IncrementVersion()

	if raised {
		a.AddDomainEvent(NewAlerteDeclencheeEvent(a))
	}

	return nil
}

// Resoudre closes the alert once the ratio is back under the thresholds
func (a *Alerte) Resoudre() error {
	if !a.EstOuverte() {
		return shared.NewDomainError(shared.ErrCodeValidation, "L'alerte est deja resolue")
	}
	now := time.Now()
	a.Statut = StatutAlerteResolue
	a.ResolueLe = &now
	a.UpdatedAt = now
	a.IncrementVersion()
	return nil
}
