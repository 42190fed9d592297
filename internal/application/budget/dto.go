package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// CreateBudgetRequest represents a request to create a chantier budget
type CreateBudgetRequest struct {
	ChantierID       uuid.UUID        `json:"chantier_id" binding:"required"`
	MontantInitialHT decimal.Decimal  `json:"montant_initial_ht" binding:"required"`
	DevisID          *uuid.UUID       `json:"devis_id"`
	Lots             []CreateLotInput `json:"lots"`
	ActorID          *uuid.UUID       `json:"-"`
}

// CreateLotInput represents a budget line item in the create request
type CreateLotInput struct {
	Designation string          `json:"designation" binding:"required,min=1,max=200"`
	MontantHT   decimal.Decimal `json:"montant_ht" binding:"required"`
}

// AddLotRequest represents a request to add a budget line item
type AddLotRequest struct {
	Designation string          `json:"designation" binding:"required,min=1,max=200"`
	MontantHT   decimal.Decimal `json:"montant_ht" binding:"required"`
	ActorID     *uuid.UUID      `json:"-"`
}

// UpdateMontantInitialRequest represents an envelope amount update
type UpdateMontantInitialRequest struct {
	MontantInitialHT decimal.Decimal `json:"montant_initial_ht" binding:"required"`
	ActorID          *uuid.UUID      `json:"-"`
}

// LotResponse represents a budget line item in API responses
type LotResponse struct {
	ID          uuid.UUID       `json:"id"`
	Designation string          `json:"designation"`
	MontantHT   decimal.Decimal `json:"montant_ht"`
}

// BudgetResponse represents a budget in API responses
type BudgetResponse struct {
	ID                   uuid.UUID       `json:"id"`
	ChantierID           uuid.UUID       `json:"chantier_id"`
	MontantInitialHT     decimal.Decimal `json:"montant_initial_ht"`
	DevisID              *uuid.UUID      `json:"devis_id,omitempty"`
	Lots                 []LotResponse   `json:"lots"`
	TotalLots            decimal.Decimal `json:"total_lots"`
	DepassementEnveloppe bool            `json:"depassement_enveloppe"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Version              int             `json:"version"`
}

// ToBudgetResponse converts a budget aggregate to its API representation
func ToBudgetResponse(b *budget.Budget) BudgetResponse {
	lots := make([]LotResponse, len(b.Lots))
	for i, lot := range b.Lots {
		lots[i] = LotResponse{
			ID:          lot.ID,
			Designation: lot.Designation,
			MontantHT:   valueobject.ArrondirMontant(lot.MontantHT),
		}
	}
	return BudgetResponse{
		ID:                   b.ID,
		ChantierID:           b.ChantierID,
		MontantInitialHT:     valueobject.ArrondirMontant(b.MontantInitialHT),
		DevisID:              b.DevisID,
		Lots:                 lots,
		TotalLots:            valueobject.ArrondirMontant(b.TotalLots()),
		DepassementEnveloppe: b.DepassementEnveloppe(),
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
		Version:              b.Version,
	}
}

// EngagementResponse represents a committed-cost snapshot in API responses.
// Amounts are rounded to 2 decimal places at this edge only.
type EngagementResponse struct {
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

// ToEngagementResponse converts a snapshot to its API representation
func ToEngagementResponse(s budget.EngagementSnapshot) EngagementResponse {
	return EngagementResponse{
		ChantierID:             s.ChantierID,
		MontantInitialHT:       valueobject.ArrondirMontant(s.MontantInitialHT),
		TotalAchats:            valueobject.ArrondirMontant(s.TotalAchats),
		CoutMainOeuvre:         valueobject.ArrondirMontant(s.CoutMainOeuvre),
		CoutMateriel:           valueobject.ArrondirMontant(s.CoutMateriel),
		TotalEngage:            valueobject.ArrondirMontant(s.TotalEngage),
		QuotePartFraisGeneraux: valueobject.ArrondirMontant(s.QuotePartFraisGeneraux),
		CoutDeRevient:          valueobject.ArrondirMontant(s.CoutDeRevient),
		Degraded:               s.Degraded,
		ComputedAt:             s.ComputedAt,
	}
}
