package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// StatutFacture represents the status of a client invoice
type StatutFacture string

const (
	StatutFactureEmise   StatutFacture = "EMISE"
	StatutFacturePayee   StatutFacture = "PAYEE"
	StatutFactureAnnulee StatutFacture = "ANNULEE"
)

// IsValid checks if the status is a valid StatutFacture
func (s StatutFacture) IsValid() bool {
	switch s {
	case StatutFactureEmise, StatutFacturePayee, StatutFactureAnnulee:
		return true
	}
	return false
}

// String returns the string representation of StatutFacture
func (s StatutFacture) String() string {
	return string(s)
}

// NewFactureAlreadyExistsError builds the error raised when a situation
// already carries a non-cancelled invoice
func NewFactureAlreadyExistsError() *shared.DomainError {
	return shared.NewDomainError(
		shared.ErrCodeFactureAlreadyExists,
		"Une facture non annulee existe deja pour cette situation",
	)
}

// FactureClient is a client invoice snapshotted from a situation de travaux.
// The retenue de garantie is withheld from the payable amount until
// defect-free handover.
type FactureClient struct {
	shared.AuditedAggregateRoot
	NumeroFacture  string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	SituationID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChantierID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontantHT      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MontantTVA     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MontantTTC     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MontantRetenue decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetAPayer      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Statut         StatutFacture   `gorm:"type:varchar(20);not null;default:'EMISE'"`
	EmiseLe        time.Time       `gorm:"not null"`
	PayeeLe        *time.Time
	AnnuleeLe      *time.Time
}

// TableName returns the table name for GORM
func (FactureClient) TableName() string {
	return "factures_clients"
}

// NewFactureClient snapshots an invoice from a situation. Amounts are rounded
// half-up to 2 decimals here, the persistence edge of the billing chain.
func NewFactureClient(numeroFacture string, situation *SituationTravaux,
	retenue valueobject.RetentionRate) (*FactureClient, error) {

	if numeroFacture == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le numero de facture est obligatoire")
	}
	if situation == nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "La situation est obligatoire pour emettre une facture")
	}

	montantHT := valueobject.ArrondirMontant(situation.MontantPeriodeHT)
	montantTVA := valueobject.ArrondirMontant(situation.MontantTVA())
	montantTTC := valueobject.ArrondirMontant(situation.MontantPeriodeTTC())
	montantRetenue := valueobject.ArrondirMontant(
		situation.MontantPeriodeHT.Mul(retenue.Value()).Div(decimal.NewFromInt(100)))
	netAPayer := montantTTC.Sub(montantRetenue)

	facture := &FactureClient{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		NumeroFacture:        numeroFacture,
		SituationID:          situation.ID,
		ChantierID:           situation.ChantierID,
		MontantHT:            montantHT,
		MontantTVA:           montantTVA,
		MontantTTC:           montantTTC,
		MontantRetenue:       montantRetenue,
		NetAPayer:            netAPayer,
		Statut:               StatutFactureEmise,
		EmiseLe:              time.Now(),
	}

	facture.AddDomainEvent(NewFactureCreatedEvent(facture))

	return facture, nil
}

// EstActive reports whether the invoice still counts against its situation
func (f *FactureClient) EstActive() bool {
	return f.Statut != StatutFactureAnnulee
}

// MarquerPayee records client payment, EMISE -> PAYEE
func (f *FactureClient) MarquerPayee(datePaiement time.Time) error {
	if f.Statut != StatutFactureEmise {
		return shared.NewDomainError(shared.ErrCodeValidation,
			"Seule une facture emise peut etre marquee payee, statut actuel "+f.Statut.String())
	}
	if datePaiement.IsZero() {
		datePaiement = time.Now()
	}
	f.Statut = StatutFacturePayee
	f.PayeeLe = &datePaiement
	f.Touch()
	f.IncrementVersion()
	f.AddDomainEvent(NewPaiementCreatedEvent(f, datePaiement))
	return nil
}

// Annuler cancels the invoice, freeing the situation for re-invoicing
func (f *FactureClient) Annuler() error {
	if f.Statut == StatutFactureAnnulee {
		return shared.NewDomainError(shared.ErrCodeValidation, "La facture est deja annulee")
	}
	if f.Statut == StatutFacturePayee {
		return shared.NewDomainError(shared.ErrCodeValidation, "Une facture payee ne peut pas etre annulee")
	}
	now := time.Now()
	f.Statut = StatutFactureAnnulee
	f.AnnuleeLe = &now
	f.UpdatedAt = now
	f.IncrementVersion()
	return nil
}
