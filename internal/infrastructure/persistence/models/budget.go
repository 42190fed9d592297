package models

import (
	"time"

	"github.com/chantier/backend/internal/domain/budget"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetModel is the persistence model for the Budget aggregate root.
type BudgetModel struct {
	AuditedAggregateModel
	ChantierID       uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex"`
	MontantInitialHT decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	DevisID          *uuid.UUID           `gorm:"type:uuid"`
	Lots             []LotBudgetaireModel `gorm:"foreignKey:BudgetID;references:ID"`
}

// TableName returns the table name for GORM
func (BudgetModel) TableName() string {
	return "budgets"
}

// ToDomain converts the persistence model to a domain Budget aggregate
func (m *BudgetModel) ToDomain() *budget.Budget {
	b := &budget.Budget{
		ChantierID:       m.ChantierID,
		MontantInitialHT: m.MontantInitialHT,
		DevisID:          m.DevisID,
		Lots:             make([]budget.LotBudgetaire, len(m.Lots)),
	}
	m.PopulateAuditedAggregateRoot(&b.AuditedAggregateRoot)
	for i, lot := range m.Lots {
		b.Lots[i] = *lot.ToDomain()
	}
	return b
}

// FromDomain populates the persistence model from a domain Budget aggregate
func (m *BudgetModel) FromDomain(b *budget.Budget) {
	m.FromDomainAuditedAggregateRoot(b.AuditedAggregateRoot)
	m.ChantierID = b.ChantierID
	m.MontantInitialHT = b.MontantInitialHT
	m.DevisID = b.DevisID
	m.Lots = make([]LotBudgetaireModel, len(b.Lots))
	for i := range b.Lots {
		m.Lots[i] = *LotBudgetaireModelFromDomain(&b.Lots[i])
	}
}

// BudgetModelFromDomain creates a new persistence model from a domain Budget aggregate
func BudgetModelFromDomain(b *budget.Budget) *BudgetModel {
	m := &BudgetModel{}
	m.FromDomain(b)
	return m
}

// LotBudgetaireModel is the persistence model for the LotBudgetaire entity.
type LotBudgetaireModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	BudgetID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Designation string          `gorm:"type:varchar(200);not null"`
	MontantHT   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LotBudgetaireModel) TableName() string {
	return "lots_budgetaires"
}

// ToDomain converts the persistence model to a domain LotBudgetaire entity
func (m *LotBudgetaireModel) ToDomain() *budget.LotBudgetaire {
	return &budget.LotBudgetaire{
		ID:          m.ID,
		BudgetID:    m.BudgetID,
		Designation: m.Designation,
		MontantHT:   m.MontantHT,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LotBudgetaire entity
func (m *LotBudgetaireModel) FromDomain(l *budget.LotBudgetaire) {
	m.ID = l.ID
	m.BudgetID = l.BudgetID
	m.Designation = l.Designation
	m.MontantHT = l.MontantHT
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
}

// LotBudgetaireModelFromDomain creates a new persistence model from a domain LotBudgetaire entity
func LotBudgetaireModelFromDomain(l *budget.LotBudgetaire) *LotBudgetaireModel {
	m := &LotBudgetaireModel{}
	m.FromDomain(l)
	return m
}
