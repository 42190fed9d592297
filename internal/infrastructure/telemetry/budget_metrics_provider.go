// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBudgetMetricsProvider implements BudgetMetricsProvider using GORM.
// It queries the budgets, achats and alertes tables directly for aggregated metrics.
type GormBudgetMetricsProvider struct {
	db *gorm.DB
}

// NewGormBudgetMetricsProvider creates a new GormBudgetMetricsProvider.
func NewGormBudgetMetricsProvider(db *gorm.DB) *GormBudgetMetricsProvider {
	return &GormBudgetMetricsProvider{db: db}
}

// GetConsommationPct returns the engagement/budget ratio (in percent) for a chantier.
// A chantier without a budget, or with a zero budget, reports 0.
func (p *GormBudgetMetricsProvider) GetConsommationPct(ctx context.Context, chantierID uuid.UUID) (float64, error) {
	var budgetInitial decimal.NullDecimal
	err := p.db.WithContext(ctx).
		Table("budgets").
		Select("montant_initial_ht").
		Where("chantier_id = ?", chantierID).
		Scan(&budgetInitial).Error
	if err != nil {
		return 0, err
	}
	if !budgetInitial.Valid || budgetInitial.Decimal.IsZero() {
		return 0, nil
	}

	var engage decimal.NullDecimal
	err = p.db.WithContext(ctx).
		Table("achats").
		Select("COALESCE(SUM(montant_ht), 0)").
		Where("chantier_id = ? AND statut <> ?", chantierID, "ANNULE").
		Scan(&engage).Error
	if err != nil {
		return 0, err
	}
	if !engage.Valid {
		return 0, nil
	}

	pct, _ := engage.Decimal.
		Div(budgetInitial.Decimal).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return pct, nil
}

// GetOpenAlerteCount returns the number of open alerts for a chantier.
func (p *GormBudgetMetricsProvider) GetOpenAlerteCount(ctx context.Context, chantierID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("alertes").
		Where("chantier_id = ? AND statut = ?", chantierID, "OUVERTE").
		Count(&count).Error

	return count, err
}

// GormChantierProvider implements ChantierProvider using GORM.
type GormChantierProvider struct {
	db *gorm.DB
}

// NewGormChantierProvider creates a new GormChantierProvider.
func NewGormChantierProvider(db *gorm.DB) *GormChantierProvider {
	return &GormChantierProvider{db: db}
}

// GetActiveChantierIDs returns the IDs of all chantiers that are not closed.
func (p *GormChantierProvider) GetActiveChantierIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("chantiers").
		Select("id").
		Where("statut <> ?", "FERME").
		Find(&ids).Error

	return ids, err
}
