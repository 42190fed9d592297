package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAchatRepository implements AchatRepository using GORM
type GormAchatRepository struct {
	db          *gorm.DB
	trail       *GormTrailRepository
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormAchatRepository creates a new GormAchatRepository
func NewGormAchatRepository(db *gorm.DB) *GormAchatRepository {
	return &GormAchatRepository{db: db, trail: NewGormTrailRepository(db)}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAchatRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a purchase by its ID
func (r *GormAchatRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Achat, error) {
	var model models.AchatModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByNumero finds a purchase by its number
func (r *GormAchatRepository) FindByNumero(ctx context.Context, numero string) (*purchasing.Achat, error) {
	var model models.AchatModel
	if err := r.db.WithContext(ctx).First(&model, "numero = ?", numero).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds purchases with filtering and pagination
func (r *GormAchatRepository) FindAll(ctx context.Context, filter shared.Filter) ([]purchasing.Achat, error) {
	query := r.db.WithContext(ctx).Model(&models.AchatModel{})
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

// FindByChantier finds purchases for a chantier
func (r *GormAchatRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID, filter shared.Filter) ([]purchasing.Achat, error) {
	query := r.db.WithContext(ctx).Model(&models.AchatModel{}).
		Where("chantier_id = ?", chantierID)
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

// FindByStatut finds purchases in a given status
func (r *GormAchatRepository) FindByStatut(ctx context.Context, statut purchasing.StatutAchat, filter shared.Filter) ([]purchasing.Achat, error) {
	query := r.db.WithContext(ctx).Model(&models.AchatModel{}).
		Where("statut = ?", statut)
	query = r.applyFilter(query, filter)
	return r.findModels(query)
}

func (r *GormAchatRepository) findModels(query *gorm.DB) ([]purchasing.Achat, error) {
	var achatModels []models.AchatModel
	if err := query.Find(&achatModels).Error; err != nil {
		return nil, err
	}
	achats := make([]purchasing.Achat, len(achatModels))
	for i := range achatModels {
		achat, err := achatModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		achats[i] = *achat
	}
	return achats, nil
}

// Save creates or updates a purchase
func (r *GormAchatRepository) Save(ctx context.Context, achat *purchasing.Achat) error {
	model := models.AchatModelFromDomain(achat)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLockAndEvents saves with optimistic locking and persists domain events atomically.
// Events go to the outbox table and the audit entry to the trail in the same
// transaction as the aggregate: the mutation commits fully audited or not at all.
func (r *GormAchatRepository) SaveWithLockAndEvents(ctx context.Context, achat *purchasing.Achat, events []shared.DomainEvent, entry *audit.LogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.AchatModel{}).
			Where("id = ?", achat.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if currentVersion == 0 {
			// New aggregate: insert it together with its events
			model := models.AchatModelFromDomain(achat)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			if err := r.saveEvents(ctx, tx, events); err != nil {
				return err
			}
			return r.recordAudit(ctx, tx, entry)
		}

		if currentVersion != achat.Version {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "L'achat a ete modifie par un autre utilisateur")
		}

		achat.Version++
		achat.UpdatedAt = time.Now()

		model := models.AchatModelFromDomain(achat)
		result := tx.Model(&models.AchatModel{}).
			Where("id = ? AND version = ?", achat.ID, currentVersion).
			Updates(map[string]interface{}{
				"type_achat":                model.TypeAchat,
				"designation":               model.Designation,
				"quantite":                  model.Quantite,
				"prix_unitaire_ht":          model.PrixUnitaireHT,
				"montant_ht":                model.MontantHT,
				"taux_tva":                  model.TauxTVA,
				"statut":                    model.Statut,
				"fournisseur_id":            model.FournisseurID,
				"fournisseur_nom":           model.FournisseurNom,
				"fournisseur_sous_traitant": model.FournisseurSousTraitant,
				"date_commande":             model.DateCommande,
				"date_livraison_prevue":     model.DateLivraisonPrevue,
				"date_livraison":            model.DateLivraison,
				"date_facture":              model.DateFacture,
				"date_paiement":             model.DatePaiement,
				"annule_le":                 model.AnnuleLe,
				"motif_annulation":          model.MotifAnnulation,
				"version":                   model.Version,
				"updated_at":                model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "L'achat a ete modifie par un autre utilisateur")
		}

		if err := r.saveEvents(ctx, tx, events); err != nil {
			return err
		}
		return r.recordAudit(ctx, tx, entry)
	})
}

func (r *GormAchatRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func (r *GormAchatRepository) recordAudit(ctx context.Context, tx *gorm.DB, entry *audit.LogEntry) error {
	if entry == nil {
		return nil
	}
	return r.trail.RecordInTx(ctx, tx, entry)
}

// Count counts purchases matching the filter
func (r *GormAchatRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AchatModel{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumMontantEngageByChantier sums montant_ht of all non-cancelled purchases
// for a chantier, fresh from the source rows
func (r *GormAchatRepository) SumMontantEngageByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AchatModel{}).
		Where("chantier_id = ? AND statut <> ?", chantierID, purchasing.StatutAchatAnnule).
		Select("SUM(montant_ht)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// NextNumero reserves the next purchase number for the given year.
// Format: AC-YYYY-NNNNN (e.g. AC-2026-00042). A per-year advisory lock
// serializes concurrent reservations.
func (r *GormAchatRepository) NextNumero(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("AC-%d-", year)
	var numero string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", achatNumeroLockClass, year).Error; err != nil {
			return err
		}

		var lastNumero string
		err := tx.Model(&models.AchatModel{}).
			Where("numero LIKE ?", prefix+"%").
			Order("numero DESC").
			Limit(1).
			Pluck("numero", &lastNumero).Error
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

// Advisory lock classes, one per numbered sequence
const (
	achatNumeroLockClass   = 1001
	factureNumeroLockClass = 1002
	situationLockClass     = 1003
)

// nextSequence parses the trailing sequence of a numbered reference
// (XX-YYYY-NNNNN) and returns the next value, 1 when none exists
func nextSequence(lastNumero string) int64 {
	if lastNumero == "" {
		return 1
	}
	parts := strings.Split(lastNumero, "-")
	if len(parts) != 3 {
		return 1
	}
	var num int64
	if _, err := fmt.Sscanf(parts[2], "%d", &num); err != nil {
		return 1
	}
	return num + 1
}

// applyFilter applies filter options to the query
func (r *GormAchatRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Whitelist validation prevents SQL injection through sort fields
	sortField := ValidateSortField(filter.OrderBy, AchatSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormAchatRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("numero ILIKE ? OR designation ILIKE ? OR fournisseur_nom ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "chantier_id":
			query = query.Where("chantier_id = ?", value)
		case "fournisseur_id":
			query = query.Where("fournisseur_id = ?", value)
		case "type_achat":
			query = query.Where("type_achat = ?", value)
		case "statut":
			query = query.Where("statut = ?", value)
		case "statuts":
			if statuts, ok := value.([]string); ok && len(statuts) > 0 {
				query = query.Where("statut IN ?", statuts)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		case "min_montant":
			if d, ok := value.(decimal.Decimal); ok {
				query = query.Where("montant_ht >= ?", d)
			}
		case "max_montant":
			if d, ok := value.(decimal.Decimal); ok {
				query = query.Where("montant_ht <= ?", d)
			}
		}
	}

	return query
}

// Ensure GormAchatRepository implements AchatRepository
var _ purchasing.AchatRepository = (*GormAchatRepository)(nil)
