package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormFactureRepository implements FactureRepository using GORM
type GormFactureRepository struct {
	db          *gorm.DB
	trail       *GormTrailRepository
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormFactureRepository creates a new GormFactureRepository
func NewGormFactureRepository(db *gorm.DB) *GormFactureRepository {
	return &GormFactureRepository{db: db, trail: NewGormTrailRepository(db)}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormFactureRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an invoice by ID
func (r *GormFactureRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.FactureClient, error) {
	var model models.FactureClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySituation finds all invoices issued from a situation
func (r *GormFactureRepository) FindBySituation(ctx context.Context, situationID uuid.UUID) ([]billing.FactureClient, error) {
	var factureModels []models.FactureClientModel
	if err := r.db.WithContext(ctx).
		Where("situation_id = ?", situationID).
		Order("created_at ASC").
		Find(&factureModels).Error; err != nil {
		return nil, err
	}
	return toFactures(factureModels), nil
}

// ExistsActiveForSituation reports whether a non-cancelled invoice already
// exists for the situation
func (r *GormFactureRepository) ExistsActiveForSituation(ctx context.Context, situationID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FactureClientModel{}).
		Where("situation_id = ? AND statut <> ?", situationID, billing.StatutFactureAnnulee).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByChantier finds the invoices of a chantier
func (r *GormFactureRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]billing.FactureClient, error) {
	query := r.db.WithContext(ctx).Model(&models.FactureClientModel{}).
		Where("chantier_id = ?", chantierID)
	query = r.applyFilter(query, filter)

	var factureModels []models.FactureClientModel
	if err := query.Find(&factureModels).Error; err != nil {
		return nil, err
	}
	return toFactures(factureModels), nil
}

// SumMontantHTByChantier sums montant_ht of non-cancelled invoices for a
// chantier (the chantier's invoiced revenue)
func (r *GormFactureRepository) SumMontantHTByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.FactureClientModel{}).
		Where("chantier_id = ? AND statut <> ?", chantierID, billing.StatutFactureAnnulee).
		Select("SUM(montant_ht)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Save creates or updates an invoice
func (r *GormFactureRepository) Save(ctx context.Context, facture *billing.FactureClient) error {
	model := models.FactureClientModelFromDomain(facture)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain
// events to the outbox and the audit entry to the trail in the same
// transaction
func (r *GormFactureRepository) SaveWithLockAndEvents(ctx context.Context, facture *billing.FactureClient, events []shared.DomainEvent, entry *audit.LogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.FactureClientModel{}).
			Where("id = ?", facture.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion == 0 {
			model := models.FactureClientModelFromDomain(facture)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			if err := r.saveEvents(ctx, tx, events); err != nil {
				return err
			}
			return r.recordAudit(ctx, tx, entry)
		}

		if currentVersion != facture.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "La facture a ete modifiee par un autre utilisateur")
		}

		facture.Version++
		facture.UpdatedAt = time.Now()

		// Amounts are an immutable snapshot: only lifecycle fields move
		result := tx.Model(&models.FactureClientModel{}).
			Where("id = ? AND version = ?", facture.ID, currentVersion).
			Updates(map[string]interface{}{
				"statut":     facture.Statut,
				"payee_le":   facture.PayeeLe,
				"annulee_le": facture.AnnuleeLe,
				"version":    facture.Version,
				"updated_at": facture.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "La facture a ete modifiee par un autre utilisateur")
		}

		if err := r.saveEvents(ctx, tx, events); err != nil {
			return err
		}
		return r.recordAudit(ctx, tx, entry)
	})
}

func (r *GormFactureRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func (r *GormFactureRepository) recordAudit(ctx context.Context, tx *gorm.DB, entry *audit.LogEntry) error {
	if entry == nil {
		return nil
	}
	return r.trail.RecordInTx(ctx, tx, entry)
}

// NextNumero reserves the next invoice number for the given year.
// Format: FC-YYYY-NNNNN (e.g. FC-2026-00017). A per-year advisory lock
// serializes concurrent reservations.
func (r *GormFactureRepository) NextNumero(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("FC-%d-", year)
	var numero string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", factureNumeroLockClass, year).Error; err != nil {
			return err
		}

		var lastNumero string
		err := tx.Model(&models.FactureClientModel{}).
			Where("numero_facture LIKE ?", prefix+"%").
			Order("numero_facture DESC").
			Limit(1).
			Pluck("numero_facture", &lastNumero).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		numero = fmt.Sprintf("%s%05d", prefix, nextSequence(lastNumero))
		return nil
	})
	if err != nil {
		return "", err
	}
	return numero, nil
}

// Count counts invoices matching the filter
func (r *GormFactureRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.FactureClientModel{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toFactures(factureModels []models.FactureClientModel) []billing.FactureClient {
	factures := make([]billing.FactureClient, len(factureModels))
	for i := range factureModels {
		factures[i] = *factureModels[i].ToDomain()
	}
	return factures
}

// applyFilter applies filter options to the query
func (r *GormFactureRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, FactureSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormFactureRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("numero_facture ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "chantier_id":
			query = query.Where("chantier_id = ?", value)
		case "situation_id":
			query = query.Where("situation_id = ?", value)
		case "statut":
			query = query.Where("statut = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("emise_le >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("emise_le <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormFactureRepository implements FactureRepository
var _ billing.FactureRepository = (*GormFactureRepository)(nil)
