package persistence

import (
	"context"
	"errors"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormConfigurationRepository implements ConfigurationRepository using GORM
type GormConfigurationRepository struct {
	db    *gorm.DB
	trail *GormTrailRepository
}

// NewGormConfigurationRepository creates a new GormConfigurationRepository
func NewGormConfigurationRepository(db *gorm.DB) *GormConfigurationRepository {
	return &GormConfigurationRepository{db: db, trail: NewGormTrailRepository(db)}
}

// FindByAnnee finds the configuration of a fiscal year
func (r *GormConfigurationRepository) FindByAnnee(ctx context.Context, annee int) (*company.ConfigurationEntreprise, error) {
	var model models.ConfigurationEntrepriseModel
	if err := r.db.WithContext(ctx).First(&model, "annee = ?", annee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLatest finds the most recent fiscal year configuration
func (r *GormConfigurationRepository) FindLatest(ctx context.Context) (*company.ConfigurationEntreprise, error) {
	var model models.ConfigurationEntrepriseModel
	if err := r.db.WithContext(ctx).
		Order("annee DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all fiscal year configurations, newest first
func (r *GormConfigurationRepository) FindAll(ctx context.Context) ([]company.ConfigurationEntreprise, error) {
	var configModels []models.ConfigurationEntrepriseModel
	if err := r.db.WithContext(ctx).
		Order("annee DESC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	configs := make([]company.ConfigurationEntreprise, len(configModels))
	for i := range configModels {
		configs[i] = *configModels[i].ToDomain()
	}
	return configs, nil
}

// Upsert creates or replaces the configuration of a fiscal year.
// The year carries the unique constraint: a second write for the same year
// overwrites every coefficient, never creates a duplicate. The audit entry,
// when given, commits in the same transaction.
func (r *GormConfigurationRepository) Upsert(ctx context.Context, configuration *company.ConfigurationEntreprise, entry *audit.LogEntry) error {
	model := models.ConfigurationEntrepriseModelFromDomain(configuration)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "annee"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"couts_fixes_annuels",
				"coeff_frais_generaux",
				"coeff_charges_patronales",
				"coeff_heures_sup",
				"coeff_heures_sup_2",
				"coeff_charges_par_categorie",
				"seuil_alerte_budget_pct",
				"seuil_alerte_budget_critique_pct",
				"created_by",
				"updated_at",
			}),
		}).Create(model).Error
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return r.trail.RecordInTx(ctx, tx, entry)
	})
}

// Ensure GormConfigurationRepository implements ConfigurationRepository
var _ company.ConfigurationRepository = (*GormConfigurationRepository)(nil)
