package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeSituation = "SituationTravaux"
	AggregateTypeFacture   = "FactureClient"
)

// Event type constants, consumed by external payroll/accounting connectors
const (
	EventTypeSituationCreated = "situation_travaux.created"
	EventTypeFactureCreated   = "facture.created"
	EventTypePaiementCreated  = "paiement.created"
)

// SituationCreatedEvent is raised when a billing statement is created
type SituationCreatedEvent struct {
	shared.BaseDomainEvent
	SituationID      uuid.UUID       `json:"situation_id"`
	ChantierID       uuid.UUID       `json:"chantier_id"`
	NumeroSituation  int             `json:"numero_situation"`
	MontantPeriodeHT decimal.Decimal `json:"montant_periode_ht"`
	MontantCumuleHT  decimal.Decimal `json:"montant_cumule_ht"`
	TauxTVA          string          `json:"taux_tva"`
}

// NewSituationCreatedEvent creates a new SituationCreatedEvent
func NewSituationCreatedEvent(situation *SituationTravaux) *SituationCreatedEvent {
	taux := ""
	if situation.TauxTVA != nil {
		taux = situation.TauxTVA.String()
	}
	return &SituationCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSituationCreated, AggregateTypeSituation, situation.ID),
		SituationID:      situation.ID,
		ChantierID:       situation.ChantierID,
		NumeroSituation:  situation.NumeroSituation,
		MontantPeriodeHT: situation.MontantPeriodeHT,
		MontantCumuleHT:  situation.MontantCumuleHT,
		TauxTVA:          taux,
	}
}

// EventType returns the event type name
func (e *SituationCreatedEvent) EventType() string {
	return EventTypeSituationCreated
}

// FactureCreatedEvent is raised when an invoice is issued from a situation
type FactureCreatedEvent struct {
	shared.BaseDomainEvent
	FactureID     uuid.UUID       `json:"facture_id"`
	NumeroFacture string          `json:"numero_facture"`
	SituationID   uuid.UUID       `json:"situation_id"`
	ChantierID    uuid.UUID       `json:"chantier_id"`
	MontantHT     decimal.Decimal `json:"montant_ht"`
	MontantTTC    decimal.Decimal `json:"montant_ttc"`
	NetAPayer     decimal.Decimal `json:"net_a_payer"`
}

// NewFactureCreatedEvent creates a new FactureCreatedEvent
func NewFactureCreatedEvent(facture *FactureClient) *FactureCreatedEvent {
	return &FactureCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFactureCreated, AggregateTypeFacture, facture.ID),
		FactureID:       facture.ID,
		NumeroFacture:   facture.NumeroFacture,
		SituationID:     facture.SituationID,
		ChantierID:      facture.ChantierID,
		MontantHT:       facture.MontantHT,
		MontantTTC:      facture.MontantTTC,
		NetAPayer:       facture.NetAPayer,
	}
}

// EventType returns the event type name
func (e *FactureCreatedEvent) EventType() string {
	return EventTypeFactureCreated
}

// PaiementCreatedEvent is raised when a client invoice is paid
type PaiementCreatedEvent struct {
	shared.BaseDomainEvent
	FactureID     uuid.UUID       `json:"facture_id"`
	NumeroFacture string          `json:"numero_facture"`
	ChantierID    uuid.UUID       `json:"chantier_id"`
	MontantTTC    decimal.Decimal `json:"montant_ttc"`
	NetAPayer     decimal.Decimal `json:"net_a_payer"`
	DatePaiement  time.Time       `json:"date_paiement"`
}

// NewPaiementCreatedEvent creates a new PaiementCreatedEvent
func NewPaiementCreatedEvent(facture *FactureClient, datePaiement time.Time) *PaiementCreatedEvent {
	return &PaiementCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaiementCreated, AggregateTypeFacture, facture.ID),
		FactureID:       facture.ID,
		NumeroFacture:   facture.NumeroFacture,
		ChantierID:      facture.ChantierID,
		MontantTTC:      facture.MontantTTC,
		NetAPayer:       facture.NetAPayer,
		DatePaiement:    datePaiement,
	}
}

// EventType returns the event type name
func (e *PaiementCreatedEvent) EventType() string {
	return EventTypePaiementCreated
}
