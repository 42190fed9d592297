package persistence

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSituationRepository implements SituationRepository using GORM
type GormSituationRepository struct {
	db          *gorm.DB
	trail       *GormTrailRepository
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormSituationRepository creates a new GormSituationRepository
func NewGormSituationRepository(db *gorm.DB) *GormSituationRepository {
	return &GormSituationRepository{db: db, trail: NewGormTrailRepository(db)}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSituationRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a situation by ID
func (r *GormSituationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SituationTravaux, error) {
	var model models.SituationTravauxModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByChantier finds the situations of a chantier, ordered by number
func (r *GormSituationRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]billing.SituationTravaux, error) {
	query := r.db.WithContext(ctx).Model(&models.SituationTravauxModel{}).
		Where("chantier_id = ?", chantierID)
	query = r.applyFilter(query, filter, "numero_situation")
	return r.findModels(query)
}

// FindAll finds situations with filtering and pagination
func (r *GormSituationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.SituationTravaux, error) {
	query := r.db.WithContext(ctx).Model(&models.SituationTravauxModel{})
	for key, value := range filter.Filters {
		if key == "chantier_id" {
			query = query.Where("chantier_id = ?", value)
		}
	}
	query = r.applyFilter(query, filter, "created_at")
	return r.findModels(query)
}

func (r *GormSituationRepository) findModels(query *gorm.DB) ([]billing.SituationTravaux, error) {
	var situationModels []models.SituationTravauxModel
	if err := query.Find(&situationModels).Error; err != nil {
		return nil, err
	}
	situations := make([]billing.SituationTravaux, len(situationModels))
	for i := range situationModels {
		situation, err := situationModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		situations[i] = *situation
	}
	return situations, nil
}

// CreateNext creates the next situation of a chantier atomically. It takes a
// per-chantier advisory lock, reads the latest cumulative amount, invokes
// build with it, and inserts the result plus its outbox events and audit
// entry in the same transaction. A domain error from build aborts without
// writing anything.
func (r *GormSituationRepository) CreateNext(ctx context.Context, chantierID uuid.UUID,
	build func(numeroSituation int, previousCumule decimal.Decimal) (*billing.SituationTravaux, error),
	entryFor func(*billing.SituationTravaux) (*audit.LogEntry, error)) (*billing.SituationTravaux, error) {

	var created *billing.SituationTravaux
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", situationLockClass, chantierLockKey(chantierID)).Error; err != nil {
			return err
		}

		var last models.SituationTravauxModel
		err := tx.Where("chantier_id = ?", chantierID).
			Order("numero_situation DESC").
			First(&last).Error

		numero := 1
		previousCumule := decimal.Zero
		switch {
		case err == nil:
			numero = last.NumeroSituation + 1
			previousCumule = last.MontantCumuleHT
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first situation of the chantier
		default:
			return err
		}

		situation, err := build(numero, previousCumule)
		if err != nil {
			return err
		}

		model := models.SituationTravauxModelFromDomain(situation)
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		events := situation.GetDomainEvents()
		situation.ClearDomainEvents()
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		if entryFor != nil {
			entry, err := entryFor(situation)
			if err != nil {
				return err
			}
			if entry != nil {
				if err := r.trail.RecordInTx(ctx, tx, entry); err != nil {
					return err
				}
			}
		}

		created = situation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Count counts situations matching the filter
func (r *GormSituationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.SituationTravauxModel{})
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

// applyFilter applies pagination and ordering
func (r *GormSituationRepository) applyFilter(query *gorm.DB, filter shared.Filter, defaultSort string) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, SituationSortFields, defaultSort)
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// chantierLockKey derives a stable 31-bit advisory lock key from a chantier id
func chantierLockKey(chantierID uuid.UUID) int32 {
	h := fnv.New32a()
	h.Write(chantierID[:])
	return int32(h.Sum32() & 0x7FFFFFFF)
}

// Ensure GormSituationRepository implements SituationRepository
var _ billing.SituationRepository = (*GormSituationRepository)(nil)
