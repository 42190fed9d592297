package budget

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBudget = "Budget"

// Event type constants
const (
	EventTypeEngagementRecompute = "budget.engagement_recompute"
)

// EngagementRecomputeEvent is raised after a ledger re-aggregation
type EngagementRecomputeEvent struct {
	shared.BaseDomainEvent
	ChantierID    uuid.UUID       `json:"chantier_id"`
	TotalEngage   decimal.Decimal `json:"total_engage"`
	CoutDeRevient decimal.Decimal `json:"cout_de_revient"`
	Degraded      bool            `json:"degraded"`
}

// NewEngagementRecomputeEvent creates a new EngagementRecomputeEvent
func NewEngagementRecomputeEvent(snapshot EngagementSnapshot) *EngagementRecomputeEvent {
	return &EngagementRecomputeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEngagementRecompute, AggregateTypeBudget, snapshot.ChantierID),
		ChantierID:      snapshot.ChantierID,
		TotalEngage:     snapshot.TotalEngage,
		CoutDeRevient:   snapshot.CoutDeRevient,
		Degraded:        snapshot.Degraded,
	}
}

// EventType returns the event type name
func (e *EngagementRecomputeEvent) EventType() string {
	return EventTypeEngagementRecompute
}
