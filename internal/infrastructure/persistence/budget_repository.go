package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBudgetRepository implements BudgetRepository using GORM
type GormBudgetRepository struct {
	db          *gorm.DB
	trail       *GormTrailRepository
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db, trail: NewGormTrailRepository(db)}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormBudgetRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a budget by ID, lots included
func (r *GormBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	var model models.BudgetModel
	if err := r.db.WithContext(ctx).
		Preload("Lots").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByChantier finds the budget of a chantier, lots included.
// Returns shared.ErrBudgetNotFound when the chantier has no budget yet.
func (r *GormBudgetRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID) (*budget.Budget, error) {
	var model models.BudgetModel
	if err := r.db.WithContext(ctx).
		Preload("Lots").
		First(&model, "chantier_id = ?", chantierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrBudgetNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds budgets with filtering and pagination
func (r *GormBudgetRepository) FindAll(ctx context.Context, filter shared.Filter) ([]budget.Budget, error) {
	var budgetModels []models.BudgetModel

	query := r.db.WithContext(ctx).Model(&models.BudgetModel{})
	query = r.applyFilter(query, filter)

	if err := query.Preload("Lots").Find(&budgetModels).Error; err != nil {
		return nil, err
	}
	budgets := make([]budget.Budget, len(budgetModels))
	for i := range budgetModels {
		budgets[i] = *budgetModels[i].ToDomain()
	}
	return budgets, nil
}

// Save creates or updates a budget and its lots; the audit entry, when
// given, commits in the same transaction
func (r *GormBudgetRepository) Save(ctx context.Context, b *budget.Budget, entry *audit.LogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.BudgetModelFromDomain(b)
		if err := tx.Omit("Lots").Save(model).Error; err != nil {
			return err
		}
		if err := r.syncLots(tx, b); err != nil {
			return err
		}
		return r.recordAudit(ctx, tx, entry)
	})
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain
// events to the outbox and the audit entry to the trail in the same
// transaction
func (r *GormBudgetRepository) SaveWithLockAndEvents(ctx context.Context, b *budget.Budget, events []shared.DomainEvent, entry *audit.LogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.BudgetModel{}).
			Where("id = ?", b.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion == 0 {
			model := models.BudgetModelFromDomain(b)
			if err := tx.Omit("Lots").Create(model).Error; err != nil {
				return err
			}
			if err := r.syncLots(tx, b); err != nil {
				return err
			}
			if err := r.saveEvents(ctx, tx, events); err != nil {
				return err
			}
			return r.recordAudit(ctx, tx, entry)
		}

		if currentVersion != b.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "Le budget a ete modifie par un autre utilisateur")
		}

		b.Version++
		b.UpdatedAt = time.Now()

		result := tx.Model(&models.BudgetModel{}).
			Where("id = ? AND version = ?", b.ID, currentVersion).
			Updates(map[string]interface{}{
				"montant_initial_ht": b.MontantInitialHT,
				"devis_id":           b.DevisID,
				"version":            b.Version,
				"updated_at":         b.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "Le budget a ete modifie par un autre utilisateur")
		}

		if err := r.syncLots(tx, b); err != nil {
			return err
		}
		if err := r.saveEvents(ctx, tx, events); err != nil {
			return err
		}
		return r.recordAudit(ctx, tx, entry)
	})
}

// syncLots reconciles the lot rows with the aggregate's current lot list
func (r *GormBudgetRepository) syncLots(tx *gorm.DB, b *budget.Budget) error {
	currentLotIDs := make([]uuid.UUID, len(b.Lots))
	for i, lot := range b.Lots {
		currentLotIDs[i] = lot.ID
	}

	if len(currentLotIDs) > 0 {
		if err := tx.Where("budget_id = ? AND id NOT IN ?", b.ID, currentLotIDs).
			Delete(&models.LotBudgetaireModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("budget_id = ?", b.ID).
			Delete(&models.LotBudgetaireModel{}).Error; err != nil {
			return err
		}
	}

	for i := range b.Lots {
		b.Lots[i].BudgetID = b.ID
		lotModel := models.LotBudgetaireModelFromDomain(&b.Lots[i])
		if err := tx.Save(lotModel).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormBudgetRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func (r *GormBudgetRepository) recordAudit(ctx context.Context, tx *gorm.DB, entry *audit.LogEntry) error {
	if entry == nil {
		return nil
	}
	return r.trail.RecordInTx(ctx, tx, entry)
}

// Count counts budgets matching the filter
func (r *GormBudgetRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.BudgetModel{})
	for key, value := range filter.Filters {
		if key == "chantier_id" {
			query = query.Where("chantier_id = ?", value)
		}
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormBudgetRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		if key == "chantier_id" {
			query = query.Where("chantier_id = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, BudgetSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormBudgetRepository implements BudgetRepository
var _ budget.BudgetRepository = (*GormBudgetRepository)(nil)
