package acl

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chantier/backend/internal/domain/budget"
)

// coutsChantierTable is owned by the payroll and equipment contexts. Each of
// them pushes one aggregated row per chantier and cost type; the ledger only
// ever sums the montants.
const coutsChantierTable = "couts_chantier"

// Cost type discriminators in couts_chantier
const (
	coutTypeMainOeuvre = "MAIN_OEUVRE"
	coutTypeMateriel   = "MATERIEL"
)

// GormCoutProvider reads aggregated labor and equipment costs from the
// owning contexts' table. A chantier with no rows costs zero.
type GormCoutProvider struct {
	db *gorm.DB
}

// NewGormCoutProvider creates a new GormCoutProvider
func NewGormCoutProvider(db *gorm.DB) *GormCoutProvider {
	return &GormCoutProvider{db: db}
}

// CoutMainOeuvre returns the aggregated labor cost of the chantier
func (p *GormCoutProvider) CoutMainOeuvre(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	return p.sum(ctx, chantierID, coutTypeMainOeuvre)
}

// CoutMateriel returns the aggregated equipment cost of the chantier
func (p *GormCoutProvider) CoutMateriel(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	return p.sum(ctx, chantierID, coutTypeMateriel)
}

func (p *GormCoutProvider) sum(ctx context.Context, chantierID uuid.UUID, coutType string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := p.db.WithContext(ctx).
		Table(coutsChantierTable).
		Select("SUM(montant)").
		Where("chantier_id = ? AND type_cout = ?", chantierID, coutType).
		Take(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormCoutProvider implements both cost provider ports
var (
	_ budget.CoutMainOeuvreProvider = (*GormCoutProvider)(nil)
	_ budget.CoutMaterielProvider   = (*GormCoutProvider)(nil)
)
