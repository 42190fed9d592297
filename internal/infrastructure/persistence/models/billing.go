package models

import (
	"time"

	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SituationTravauxModel is the persistence model for the SituationTravaux
// aggregate root. Situation numbers are unique per chantier.
type SituationTravauxModel struct {
	AuditedAggregateModel
	ChantierID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_situation_chantier_numero,priority:1"`
	NumeroSituation  int             `gorm:"not null;uniqueIndex:idx_situation_chantier_numero,priority:2"`
	MontantPeriodeHT decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	MontantCumuleHT  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TauxTVA          decimal.Decimal `gorm:"type:decimal(9,4);not null"`
}

// TableName returns the table name for GORM
func (SituationTravauxModel) TableName() string {
	return "situations_travaux"
}

// ToDomain converts the persistence model to a domain SituationTravaux aggregate
func (m *SituationTravauxModel) ToDomain() (*billing.SituationTravaux, error) {
	taux, err := valueobject.NewVatRate(m.TauxTVA)
	if err != nil {
		return nil, err
	}
	situation := &billing.SituationTravaux{
		ChantierID:       m.ChantierID,
		NumeroSituation:  m.NumeroSituation,
		MontantPeriodeHT: m.MontantPeriodeHT,
		MontantCumuleHT:  m.MontantCumuleHT,
		TauxTVA:          &taux,
	}
	m.PopulateAuditedAggregateRoot(&situation.AuditedAggregateRoot)
	return situation, nil
}

// FromDomain populates the persistence model from a domain SituationTravaux aggregate
func (m *SituationTravauxModel) FromDomain(s *billing.SituationTravaux) {
	m.FromDomainAuditedAggregateRoot(s.AuditedAggregateRoot)
	m.ChantierID = s.ChantierID
	m.NumeroSituation = s.NumeroSituation
	m.MontantPeriodeHT = s.MontantPeriodeHT
	m.MontantCumuleHT = s.MontantCumuleHT
	if s.TauxTVA != nil {
		m.TauxTVA = s.TauxTVA.Value()
	}
}

// SituationTravauxModelFromDomain creates a new persistence model from a domain SituationTravaux aggregate
func SituationTravauxModelFromDomain(s *billing.SituationTravaux) *SituationTravauxModel {
	m := &SituationTravauxModel{}
	m.FromDomain(s)
	return m
}

// FactureClientModel is the persistence model for the FactureClient aggregate
// root. Invoice amounts are immutable snapshots, stored rounded.
type FactureClientModel struct {
	AuditedAggregateModel
	NumeroFacture  string                `gorm:"type:varchar(20);not null;uniqueIndex"`
	SituationID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	ChantierID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	MontantHT      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	MontantTVA     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	MontantTTC     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	MontantRetenue decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	NetAPayer      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Statut         billing.StatutFacture `gorm:"type:varchar(20);not null;default:'EMISE';index"`
	EmiseLe        time.Time             `gorm:"not null"`
	PayeeLe        *time.Time
	AnnuleeLe      *time.Time
}

// TableName returns the table name for GORM
func (FactureClientModel) TableName() string {
	return "factures_clients"
}

// ToDomain converts the persistence model to a domain FactureClient aggregate
func (m *FactureClientModel) ToDomain() *billing.FactureClient {
	facture := &billing.FactureClient{
		NumeroFacture:  m.NumeroFacture,
		SituationID:    m.SituationID,
		ChantierID:     m.ChantierID,
		MontantHT:      m.MontantHT,
		MontantTVA:     m.MontantTVA,
		MontantTTC:     m.MontantTTC,
		MontantRetenue: m.MontantRetenue,
		NetAPayer:      m.NetAPayer,
		Statut:         m.Statut,
		EmiseLe:        m.EmiseLe,
		PayeeLe:        m.PayeeLe,
		AnnuleeLe:      m.AnnuleeLe,
	}
	m.PopulateAuditedAggregateRoot(&facture.AuditedAggregateRoot)
	return facture
}

// FromDomain populates the persistence model from a domain FactureClient aggregate
func (m *FactureClientModel) FromDomain(f *billing.FactureClient) {
	m.FromDomainAuditedAggregateRoot(f.AuditedAggregateRoot)
	m.NumeroFacture = f.NumeroFacture
	m.SituationID = f.SituationID
	m.ChantierID = f.ChantierID
	m.MontantHT = f.MontantHT
	m.MontantTVA = f.MontantTVA
	m.MontantTTC = f.MontantTTC
	m.MontantRetenue = f.MontantRetenue
	m.NetAPayer = f.NetAPayer
	m.Statut = f.Statut
	m.EmiseLe = f.EmiseLe
	m.PayeeLe = f.PayeeLe
	m.AnnuleeLe = f.AnnuleeLe
}

// FactureClientModelFromDomain creates a new persistence model from a domain FactureClient aggregate
func FactureClientModelFromDomain(f *billing.FactureClient) *FactureClientModel {
	m := &FactureClientModel{}
	m.FromDomain(f)
	return m
}
