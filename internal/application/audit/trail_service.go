package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/shared"
)

// LogEntryResponse represents an audit trail entry in API responses
type LogEntryResponse struct {
	ID         uuid.UUID    `json:"id"`
	EntityType string       `json:"entity_type"`
	EntityID   uuid.UUID    `json:"entity_id"`
	Action     string       `json:"action"`
	OldValues  audit.Values `json:"old_values,omitempty"`
	NewValues  audit.Values `json:"new_values,omitempty"`
	ActorID    *uuid.UUID   `json:"actor_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ToLogEntryResponse converts an audit entry to its API representation
func ToLogEntryResponse(e *audit.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		ActorID:    e.ActorID,
		CreatedAt:  e.CreatedAt,
	}
}

// TrailListFilter represents filter options for the audit trail list
type TrailListFilter struct {
	EntityType *string    `form:"entity_type"`
	EntityID   *uuid.UUID `form:"entity_id"`
	Action     *string    `form:"action"`
	ActorID    *uuid.UUID `form:"actor_id"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=100"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TrailService exposes read access to the audit trail. The trail is
// append-only; this service has no write operation on purpose, entries are
// recorded by the services that mutate the audited aggregates.
type TrailService struct {
	trailRepo audit.TrailRepository
}

// NewTrailService creates a new TrailService
func NewTrailService(trailRepo audit.TrailRepository) *TrailService {
	return &TrailService{trailRepo: trailRepo}
}

// GetByEntity retrieves the full history of one entity, oldest first
func (s *TrailService) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]LogEntryResponse, error) {
	entries, err := s.trailRepo.FindByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	responses := make([]LogEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLogEntryResponse(&entries[i])
	}
	return responses, nil
}

// List retrieves audit entries with filtering and pagination, newest first
// by default
func (s *TrailService) List(ctx context.Context, filter TrailListFilter) ([]LogEntryResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.EntityType != nil {
		domainFilter.Filters["entity_type"] = *filter.EntityType
	}
	if filter.EntityID != nil {
		domainFilter.Filters["entity_id"] = *filter.EntityID
	}
	if filter.Action != nil {
		domainFilter.Filters["action"] = *filter.Action
	}
	if filter.ActorID != nil {
		domainFilter.Filters["actor_id"] = *filter.ActorID
	}

	entries, err := s.trailRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.trailRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]LogEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLogEntryResponse(&entries[i])
	}
	return responses, total, nil
}
