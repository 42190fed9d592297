package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeAchat = "Achat"

// Event type constants, consumed by external payroll/accounting connectors
const (
	EventTypeAchatCreated      = "achat.created"
	EventTypeAchatStatutChange = "achat.statut_change"
)

// AchatCreatedEvent is raised when a purchase is created in DEMANDE status.
// The payload is a flat map of the purchase's public fields.
type AchatCreatedEvent struct {
	shared.BaseDomainEvent
	AchatID     uuid.UUID       `json:"achat_id"`
	Numero      string          `json:"numero"`
	ChantierID  uuid.UUID       `json:"chantier_id"`
	TypeAchat   string          `json:"type_achat"`
	Designation string          `json:"designation"`
	Quantite    decimal.Decimal `json:"quantite"`
	MontantHT   decimal.Decimal `json:"montant_ht"`
	TauxTVA     *string         `json:"taux_tva,omitempty"`
	Statut      string          `json:"statut"`
}

// NewAchatCreatedEvent creates a new AchatCreatedEvent
func NewAchatCreatedEvent(achat *Achat) *AchatCreatedEvent {
	var taux *string
	if achat.TauxTVA != nil {
		s := achat.TauxTVA.String()
		taux = &s
	}
	return &AchatCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAchatCreated, AggregateTypeAchat, achat.ID),
		AchatID:         achat.ID,
		Numero:          achat.Numero,
		ChantierID:      achat.ChantierID,
		TypeAchat:       achat.TypeAchat.String(),
		Designation:     achat.Designation,
		Quantite:        achat.Quantite,
		MontantHT:       achat.MontantHT,
		TauxTVA:         taux,
		Statut:          achat.Statut.String(),
	}
}

// EventType returns the event type name
func (e *AchatCreatedEvent) EventType() string {
	return EventTypeAchatCreated
}

// AchatStatutChangeSchemaVersion is the current schema version of
// achat.statut_change. Version 1 carried a single "statut" field; version 2
// splits it into "ancien_statut" and "nouveau_statut" so consumers can
// reconstruct the transition.
const AchatStatutChangeSchemaVersion = 2

// AchatStatutChangeEvent is raised on every successful status transition
type AchatStatutChangeEvent struct {
	shared.BaseDomainEvent
	AchatID       uuid.UUID       `json:"achat_id"`
	Numero        string          `json:"numero"`
	ChantierID    uuid.UUID       `json:"chantier_id"`
	AncienStatut  string          `json:"ancien_statut"`
	NouveauStatut string          `json:"nouveau_statut"`
	MontantHT     decimal.Decimal `json:"montant_ht"`
	FournisseurID *uuid.UUID      `json:"fournisseur_id,omitempty"`
	DateCommande  *time.Time      `json:"date_commande,omitempty"`
}

// NewAchatStatutChangeEvent creates a new AchatStatutChangeEvent
func NewAchatStatutChangeEvent(achat *Achat, ancien StatutAchat) *AchatStatutChangeEvent {
	return &AchatStatutChangeEvent{
		BaseDomainEvent: shared.NewVersionedBaseDomainEvent(EventTypeAchatStatutChange, AggregateTypeAchat,
			achat.ID, AchatStatutChangeSchemaVersion),
		AchatID:       achat.ID,
		Numero:        achat.Numero,
		ChantierID:    achat.ChantierID,
		AncienStatut:  ancien.String(),
		NouveauStatut: achat.Statut.String(),
		MontantHT:     achat.MontantHT,
		FournisseurID: achat.FournisseurID,
		DateCommande:  achat.DateCommande,
	}
}

// EventType returns the event type name
func (e *AchatStatutChangeEvent) EventType() string {
	return EventTypeAchatStatutChange
}
