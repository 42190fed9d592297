package persistence

import (
	"context"
	"errors"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFournisseurRepository implements FournisseurRepository using GORM
type GormFournisseurRepository struct {
	db    *gorm.DB
	trail *GormTrailRepository
}

// NewGormFournisseurRepository creates a new GormFournisseurRepository
func NewGormFournisseurRepository(db *gorm.DB) *GormFournisseurRepository {
	return &GormFournisseurRepository{db: db, trail: NewGormTrailRepository(db)}
}

// FindByID finds a supplier by its ID
func (r *GormFournisseurRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Fournisseur, error) {
	var model models.FournisseurModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds suppliers with filtering and pagination
func (r *GormFournisseurRepository) FindAll(ctx context.Context, filter shared.Filter) ([]purchasing.Fournisseur, error) {
	query := r.db.WithContext(ctx).Model(&models.FournisseurModel{})
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

// FindByType finds suppliers of a given category
func (r *GormFournisseurRepository) FindByType(ctx context.Context, typeFournisseur purchasing.FournisseurType, filter shared.Filter) ([]purchasing.Fournisseur, error) {
	query := r.db.WithContext(ctx).Model(&models.FournisseurModel{}).
		Where("type = ?", typeFournisseur)
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

func (r *GormFournisseurRepository) findModels(query *gorm.DB) ([]purchasing.Fournisseur, error) {
	var fournisseurModels []models.FournisseurModel
	if err := query.Find(&fournisseurModels).Error; err != nil {
		return nil, err
	}
	fournisseurs := make([]purchasing.Fournisseur, len(fournisseurModels))
	for i := range fournisseurModels {
		fournisseurs[i] = *fournisseurModels[i].ToDomain()
	}
	return fournisseurs, nil
}

// Save creates or updates a supplier; the audit entry, when given, commits
// in the same transaction
func (r *GormFournisseurRepository) Save(ctx context.Context, fournisseur *purchasing.Fournisseur, entry *audit.LogEntry) error {
	model := models.FournisseurModelFromDomain(fournisseur)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return r.trail.RecordInTx(ctx, tx, entry)
	})
}

// Count counts suppliers matching the filter
func (r *GormFournisseurRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.FournisseurModel{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormFournisseurRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, FournisseurSortFields, "nom")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormFournisseurRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("nom ILIKE ? OR siret ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "actif":
			query = query.Where("actif = ?", value)
		}
	}

	return query
}

// Ensure GormFournisseurRepository implements FournisseurRepository
var _ purchasing.FournisseurRepository = (*GormFournisseurRepository)(nil)
