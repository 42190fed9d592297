package persistence

import (
	"context"
	"fmt"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTrailRepository implements TrailRepository using GORM. The interface
// carries no update or delete method; RegisterAuditGuards adds a second line
// of defense inside GORM itself, and the migration installs a database
// trigger as the last one.
type GormTrailRepository struct {
	db *gorm.DB
}

// NewGormTrailRepository creates a new GormTrailRepository
func NewGormTrailRepository(db *gorm.DB) *GormTrailRepository {
	return &GormTrailRepository{db: db}
}

// ErrAuditTrailImmutable is returned when code attempts to rewrite history
var ErrAuditTrailImmutable = shared.NewDomainError("AUDIT_TRAIL_IMMUTABLE",
	"Les entrees du journal d'audit ne peuvent etre ni modifiees ni supprimees")

// RegisterAuditGuards installs GORM callbacks that reject UPDATE and DELETE
// statements against the audit log table
func RegisterAuditGuards(db *gorm.DB) error {
	guard := func(tx *gorm.DB) {
		if tx.Statement != nil && tx.Statement.Table == (audit.LogEntry{}).TableName() {
			_ = tx.AddError(ErrAuditTrailImmutable)
		}
	}
	if err := db.Callback().Update().Before("gorm:update").Register("audit:forbid_update", guard); err != nil {
		return fmt.Errorf("failed to register audit update guard: %w", err)
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("audit:forbid_delete", guard); err != nil {
		return fmt.Errorf("failed to register audit delete guard: %w", err)
	}
	return nil
}

// Record appends an entry to the audit trail
func (r *GormTrailRepository) Record(ctx context.Context, entry *audit.LogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// RecordInTx appends an entry within an existing transaction, so the audit
// line commits or rolls back together with the mutation it describes
func (r *GormTrailRepository) RecordInTx(ctx context.Context, tx interface{}, entry *audit.LogEntry) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("expected *gorm.DB transaction, got %T", tx)
	}
	return gormTx.WithContext(ctx).Create(entry).Error
}

// FindByEntity retrieves the full history of one entity, oldest first
func (r *GormTrailRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.LogEntry, error) {
	var entries []audit.LogEntry
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAll retrieves audit entries with filtering and pagination
func (r *GormTrailRepository) FindAll(ctx context.Context, filter shared.Filter) ([]audit.LogEntry, error) {
	query := r.db.WithContext(ctx).Model(&audit.LogEntry{})
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, AuditLogSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	var entries []audit.LogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Count counts audit entries matching the filter
func (r *GormTrailRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&audit.LogEntry{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormTrailRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "entity_type":
			query = query.Where("entity_type = ?", value)
		case "entity_id":
			query = query.Where("entity_id = ?", value)
		case "action":
			query = query.Where("action = ?", value)
		case "actor_id":
			query = query.Where("actor_id = ?", value)
		}
	}
	return query
}

// Ensure GormTrailRepository implements TrailRepository
var _ audit.TrailRepository = (*GormTrailRepository)(nil)
