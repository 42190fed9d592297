package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// LotBudgetaire is a budget line item inside a chantier's envelope
type LotBudgetaire struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	BudgetID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Designation string          `gorm:"type:varchar(200);not null"`
	MontantHT   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LotBudgetaire) TableName() string {
	return "lots_budgetaires"
}

// NewLotBudgetaire creates a budget line item
func NewLotBudgetaire(budgetID uuid.UUID, designation string, montantHT decimal.Decimal) (*LotBudgetaire, error) {
	if designation == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "La designation du lot est obligatoire")
	}
	if montantHT.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le montant HT du lot ne peut pas etre negatif")
	}

	now := time.Now()
	return &LotBudgetaire{
		ID:          uuid.New(),
		BudgetID:    budgetID,
		Designation: designation,
		MontantHT:   montantHT,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateMontant updates the line amount
func (l *LotBudgetaire) UpdateMontant(montantHT decimal.Decimal) error {
	if montantHT.IsNegative() {
		return shared.NewDomainError(shared.ErrCodeValidation, "Le montant HT du lot ne peut pas etre negatif")
	}
	l.MontantHT = montantHT
	l.UpdatedAt = time.Now()
	return nil
}

// Budget is the financial envelope of a chantier. The chantier and the
// originating devis are weak references: id + lookup, never ownership.
type Budget struct {
	shared.AuditedAggregateRoot
	ChantierID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	MontantInitialHT decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DevisID          *uuid.UUID      `gorm:"type:uuid"`
	Lots             []LotBudgetaire `gorm:"foreignKey:BudgetID;references:ID"`
}

// TableName returns the table name for GORM
func (Budget) TableName() string {
	return "budgets"
}

// NewBudget creates the budget envelope for a chantier
func NewBudget(chantierID uuid.UUID, montantInitialHT decimal.Decimal, devisID *uuid.UUID) (*Budget, error) {
	if chantierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'identifiant du chantier est obligatoire")
	}
	if montantInitialHT.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le montant initial HT ne peut pas etre negatif")
	}

	return &Budget{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		ChantierID:           chantierID,
		MontantInitialHT:     montantInitialHT,
		DevisID:              devisID,
		Lots:                 make([]LotBudgetaire, 0),
	}, nil
}

// AddLot adds a budget line item. The sum of lots may exceed the envelope:
// the overrun is surfaced through alerts, never rejected here.
func (b *Budget) AddLot(designation string, montantHT decimal.Decimal) (*LotBudgetaire, error) {
	lot, err := NewLotBudgetaire(b.ID, designation, montantHT)
	if err != nil {
		return nil, err
	}

	b.Lots = append(b.Lots, *lot)
	b.Touch()
	b.IncrementVersion()

	return lot, nil
}

// RemoveLot removes a budget line item
func (b *Budget) RemoveLot(lotID uuid.UUID) error {
	for idx, lot := range b.Lots {
		if lot.ID == lotID {
			b.Lots = append(b.Lots[:idx], b.Lots[idx+1:]...)
			b.Touch()
			b.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("LOT_NOT_FOUND", "Lot budgetaire introuvable")
}

// TotalLots returns the sum of all line items
func (b *Budget) TotalLots() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.Lots {
		total = total.Add(lot.MontantHT)
	}
	return total
}

// DepassementEnveloppe reports whether the line items exceed the envelope
func (b *Budget) DepassementEnveloppe() bool {
	return b.TotalLots().GreaterThan(b.MontantInitialHT)
}

// UpdateMontantInitial updates the envelope amount
func (b *Budget) UpdateMontantInitial(montantHT decimal.Decimal) error {
	if montantHT.IsNegative() {
		return shared.NewDomainError(shared.ErrCodeValidation, "Le montant initial HT ne peut pas etre negatif")
	}
	b.MontantInitialHT = montantHT
	b.Touch()
	b.IncrementVersion()
	return nil
}
