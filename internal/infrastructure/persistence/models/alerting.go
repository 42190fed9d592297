package models

import (
	"time"

	"github.com/chantier/backend/internal/domain/alerting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlerteModel is the persistence model for the Alerte aggregate root.
// A partial unique index (migration-managed) guarantees at most one open
// alert per chantier.
type AlerteModel struct {
	AuditedAggregateModel
	ChantierID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Niveau     alerting.NiveauAlerte `gorm:"type:varchar(10);not null"`
	Statut     alerting.StatutAlerte `gorm:"type:varchar(10);not null;default:'OUVERTE';index"`
	RatioPct   decimal.Decimal       `gorm:"type:decimal(9,4);not null"`
	SeuilPct   decimal.Decimal       `gorm:"type:decimal(9,4);not null"`
	Message    string                `gorm:"type:varchar(500);not null"`
	ResolueLe  *time.Time
}

// TableName returns the table name for GORM
func (AlerteModel) TableName() string {
	return "alertes"
}

// ToDomain converts the persistence model to a domain Alerte aggregate
func (m *AlerteModel) ToDomain() *alerting.Alerte {
	alerte := &alerting.Alerte{
		ChantierID: m.ChantierID,
		Niveau:     m.Niveau,
		Statut:     m.Statut,
		RatioPct:   m.RatioPct,
		SeuilPct:   m.SeuilPct,
		Message:    m.Message,
		ResolueLe:  m.ResolueLe,
	}
	m.PopulateAuditedAggregateRoot(&alerte.AuditedAggregateRoot)
	return alerte
}

// FromDomain populates the persistence model from a domain Alerte aggregate
func (m *AlerteModel) FromDomain(a *alerting.Alerte) {
	m.FromDomainAuditedAggregateRoot(a.AuditedAggregateRoot)
	m.ChantierID = a.ChantierID
	m.Niveau = a.Niveau
	m.Statut = a.Statut
	m.RatioPct = a.RatioPct
	m.SeuilPct = a.SeuilPct
	m.Message = a.Message
	m.ResolueLe = a.ResolueLe
}

// AlerteModelFromDomain creates a new persistence model from a domain Alerte aggregate
func AlerteModelFromDomain(a *alerting.Alerte) *AlerteModel {
	m := &AlerteModel{}
	m.FromDomain(a)
	return m
}
