package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chantier/backend/internal/domain/alerting"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAlerteRepository implements AlerteRepository using GORM
type GormAlerteRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormAlerteRepository creates a new GormAlerteRepository
func NewGormAlerteRepository(db *gorm.DB) *GormAlerteRepository {
	return &GormAlerteRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAlerteRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an alert by ID
func (r *GormAlerteRepository) FindByID(ctx context.Context, id uuid.UUID) (*alerting.Alerte, error) {
	var model models.AlerteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByChantier finds the open alert of a chantier, nil when none
func (r *GormAlerteRepository) FindOpenByChantier(ctx context.Context, chantierID uuid.UUID) (*alerting.Alerte, error) {
	var model models.AlerteModel
	if err := r.db.WithContext(ctx).
		Where("chantier_id = ? AND statut = ?", chantierID, alerting.StatutAlerteOuverte).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByChantier finds all alerts of a chantier
func (r *GormAlerteRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]alerting.Alerte, error) {
	query := r.db.WithContext(ctx).Model(&models.AlerteModel{}).
		Where("chantier_id = ?", chantierID)
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

// FindAll finds alerts with filtering and pagination
func (r *GormAlerteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]alerting.Alerte, error) {
	query := r.db.WithContext(ctx).Model(&models.AlerteModel{})
	query = r.applyFilterWithoutPagination(query, filter)
	query = r.applyPagination(query, filter)
	return r.findModels(query)
}

func (r *GormAlerteRepository) findModels(query *gorm.DB) ([]alerting.Alerte, error) {
	var alerteModels []models.AlerteModel
	if err := query.Find(&alerteModels).Error; err != nil {
		return nil, err
	}
	alertes := make([]alerting.Alerte, len(alerteModels))
	for i := range alerteModels {
		alertes[i] = *alerteModels[i].ToDomain()
	}
	return alertes, nil
}

// Save creates or updates an alert
func (r *GormAlerteRepository) Save(ctx context.Context, alerte *alerting.Alerte) error {
	model := models.AlerteModelFromDomain(alerte)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain
// events to the outbox in the same transaction
func (r *GormAlerteRepository) SaveWithLockAndEvents(ctx context.Context, alerte *alerting.Alerte, events []shared.DomainEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.AlerteModel{}).
			Where("id = ?", alerte.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion == 0 {
			model := models.AlerteModelFromDomain(alerte)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			return r.saveEvents(ctx, tx, events)
		}

		if currentVersion != alerte.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "L'alerte a ete modifiee par un autre utilisateur")
		}

		alerte.Version++
		alerte.UpdatedAt = time.Now()

		result := tx.Model(&models.AlerteModel{}).
			Where("id = ? AND version = ?", alerte.ID, currentVersion).
			Updates(map[string]interface{}{
				"niveau":     alerte.Niveau,
				"statut":     alerte.Statut,
				"ratio_pct":  alerte.RatioPct,
				"seuil_pct":  alerte.SeuilPct,
				"message":    alerte.Message,
				"resolue_le": alerte.ResolueLe,
				"version":    alerte.Version,
				"updated_at": alerte.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "L'alerte a ete modifiee par un autre utilisateur")
		}

		return r.saveEvents(ctx, tx, events)
	})
}

func (r *GormAlerteRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// Count counts alerts matching the filter
func (r *GormAlerteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AlerteModel{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormAlerteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)
	return r.applyPagination(query, filter)
}

func (r *GormAlerteRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, AlerteSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormAlerteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "chantier_id":
			query = query.Where("chantier_id = ?", value)
		case "statut":
			query = query.Where("statut = ?", value)
		case "niveau":
			query = query.Where("niveau = ?", value)
		}
	}
	return query
}

// Ensure GormAlerteRepository implements AlerteRepository
var _ alerting.AlerteRepository = (*GormAlerteRepository)(nil)
