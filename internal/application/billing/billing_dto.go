package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// ==================== Situation DTOs ====================

// CreateSituationRequest represents a request to create the next billing
// statement of a chantier. The statement number and the previous cumulative
// amount are assigned server-side, under a per-chantier lock.
type CreateSituationRequest struct {
	ChantierID       uuid.UUID       `json:"chantier_id" binding:"required"`
	MontantPeriodeHT decimal.Decimal `json:"montant_periode_ht" binding:"required"`
	TauxTVA          decimal.Decimal `json:"taux_tva" binding:"required"`
	ActorID          *uuid.UUID      `json:"-"`
}

// SituationListFilter represents filter options for the situation list
type SituationListFilter struct {
	ChantierID *uuid.UUID `form:"chantier_id"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SituationResponse represents a situation in API responses.
// Amounts are rounded to 2 decimal places at this edge only.
type SituationResponse struct {
	ID               uuid.UUID       `json:"id"`
	ChantierID       uuid.UUID       `json:"chantier_id"`
	NumeroSituation  int             `json:"numero_situation"`
	MontantPeriodeHT decimal.Decimal `json:"montant_periode_ht"`
	MontantCumuleHT  decimal.Decimal `json:"montant_cumule_ht"`
	TauxTVA          decimal.Decimal `json:"taux_tva"`
	MontantTVA       decimal.Decimal `json:"montant_tva"`
	MontantTTC       decimal.Decimal `json:"montant_ttc"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToSituationResponse converts a situation aggregate to its API representation
func ToSituationResponse(s *billing.SituationTravaux) SituationResponse {
	resp := SituationResponse{
		ID:               s.ID,
		ChantierID:       s.ChantierID,
		NumeroSituation:  s.NumeroSituation,
		MontantPeriodeHT: valueobject.ArrondirMontant(s.MontantPeriodeHT),
		MontantCumuleHT:  valueobject.ArrondirMontant(s.MontantCumuleHT),
		MontantTVA:       valueobject.ArrondirMontant(s.MontantTVA()),
		MontantTTC:       valueobject.ArrondirMontant(s.MontantPeriodeTTC()),
		CreatedAt:        s.CreatedAt,
	}
	if s.TauxTVA != nil {
		resp.TauxTVA = s.TauxTVA.Value()
	}
	return resp
}

// ToSituationResponses converts a slice of situations
func ToSituationResponses(situations []billing.SituationTravaux) []SituationResponse {
	responses := make([]SituationResponse, len(situations))
	for i := range situations {
		responses[i] = ToSituationResponse(&situations[i])
	}
	return responses
}

// ==================== Facture DTOs ====================

// EmettreFactureRequest represents a request to issue an invoice from a situation
type EmettreFactureRequest struct {
	SituationID uuid.UUID       `json:"situation_id" binding:"required"`
	TauxRetenue decimal.Decimal `json:"taux_retenue"`
	ActorID     *uuid.UUID      `json:"-"`
}

// PayerFactureRequest represents a request to record a client payment
type PayerFactureRequest struct {
	DatePaiement time.Time  `json:"date_paiement"`
	ActorID      *uuid.UUID `json:"-"`
}

// FactureListFilter represents filter options for the invoice list
type FactureListFilter struct {
	ChantierID *uuid.UUID `form:"chantier_id"`
	Statut     *string    `form:"statut"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// FactureResponse represents a client invoice in API responses
type FactureResponse struct {
	ID             uuid.UUID       `json:"id"`
	NumeroFacture  string          `json:"numero_facture"`
	SituationID    uuid.UUID       `json:"situation_id"`
	ChantierID     uuid.UUID       `json:"chantier_id"`
	MontantHT      decimal.Decimal `json:"montant_ht"`
	MontantTVA     decimal.Decimal `json:"montant_tva"`
	MontantTTC     decimal.Decimal `json:"montant_ttc"`
	MontantRetenue decimal.Decimal `json:"montant_retenue"`
	NetAPayer      decimal.Decimal `json:"net_a_payer"`
	Statut         string          `json:"statut"`
	EmiseLe        time.Time       `json:"emise_le"`
	PayeeLe        *time.Time      `json:"payee_le,omitempty"`
	AnnuleeLe      *time.Time      `json:"annulee_le,omitempty"`
	Version        int             `json:"version"`
}

// ToFactureResponse converts an invoice aggregate to its API representation
func ToFactureResponse(f *billing.FactureClient) FactureResponse {
	return FactureResponse{
		ID:             f.ID,
		NumeroFacture:  f.NumeroFacture,
		SituationID:    f.SituationID,
		ChantierID:     f.ChantierID,
		MontantHT:      f.MontantHT,
		MontantTVA:     f.MontantTVA,
		MontantTTC:     f.MontantTTC,
		MontantRetenue: f.MontantRetenue,
		NetAPayer:      f.NetAPayer,
		Statut:         f.Statut.String(),
		EmiseLe:        f.EmiseLe,
		PayeeLe:        f.PayeeLe,
		AnnuleeLe:      f.AnnuleeLe,
		Version:        f.Version,
	}
}

// ToFactureResponses converts a slice of invoices
func ToFactureResponses(factures []billing.FactureClient) []FactureResponse {
	responses := make([]FactureResponse, len(factures))
	for i := range factures {
		responses[i] = ToFactureResponse(&factures[i])
	}
	return responses
}
