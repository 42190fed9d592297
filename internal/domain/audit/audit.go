package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/shared"
)

// Action constants recorded on audit entries
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionTransition = "TRANSITION"
	ActionCancel     = "CANCEL"
	ActionUpsert     = "UPSERT"
)

// Values is a flat snapshot of entity fields, stored as JSON
type Values map[string]interface{}

// Value implements driver.Valuer for database storage
func (v Values) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for database retrieval
func (v *Values) Scan(value any) error {
	if value == nil {
		*v = nil
		return nil
	}
	var data []byte
	switch raw := value.(type) {
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return fmt.Errorf("cannot scan %T into audit.Values", value)
	}
	return json.Unmarshal(data, v)
}

// LogEntry is one record of the immutable audit trail. The entry has no
// mutating method and no transition out of "persisted": the storage layer
// rejects UPDATE and DELETE on the table unconditionally, independent of
// application code correctness.
type LogEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	EntityType string     `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Action     string     `gorm:"type:varchar(30);not null"`
	OldValues  Values     `gorm:"type:jsonb"`
	NewValues  Values     `gorm:"type:jsonb"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt  time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LogEntry) TableName() string {
	return "audit_log_entries"
}

// NewLogEntry creates an audit entry for a mutating operation
func NewLogEntry(entityType string, entityID uuid.UUID, action string,
	oldValues, newValues Values, actorID *uuid.UUID) (*LogEntry, error) {

	if entityType == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le type d'entite est obligatoire")
	}
	if entityID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'identifiant d'entite est obligatoire")
	}
	if action == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'action est obligatoire")
	}

	return &LogEntry{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	}, nil
}

// TrailRepository is the append-only interface of the audit trail.
// By construction it exposes no update or delete method; the storage layer
// additionally rejects both at the gorm callback and database trigger level.
type TrailRepository interface {
	// Record appends an entry to the trail
	Record(ctx context.Context, entry *LogEntry) error

	// RecordInTx appends an entry within an ambient transaction so the audit
	// write commits atomically with the aggregate it describes. tx is the
	// *gorm.DB transaction handle.
	RecordInTx(ctx context.Context, tx interface{}, entry *LogEntry) error

	// FindByEntity returns the trail of one entity, oldest first
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]LogEntry, error)

	// FindAll returns entries with filtering and pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]LogEntry, error)

	// Count counts entries matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
