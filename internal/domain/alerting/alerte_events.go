package alerting

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeAlerte = "Alerte"

// Event type constants
const (
	EventTypeAlerteDeclenchee = "alerte.declenchee"
)

// AlerteDeclencheeEvent is raised when an alert opens or its severity rises
type AlerteDeclencheeEvent struct {
	shared.BaseDomainEvent
	AlerteID   uuid.UUID       `json:"alerte_id"`
	ChantierID uuid.UUID       `json:"chantier_id"`
	Niveau     string          `json:"niveau"`
	RatioPct   decimal.Decimal `json:"ratio_pct"`
	SeuilPct   decimal.Decimal `json:"seuil_pct"`
	Message    string          `json:"message"`
}

// NewAlerteDeclencheeEvent creates a new AlerteDeclencheeEvent
func NewAlerteDeclencheeEvent(alerte *Alerte) *AlerteDeclencheeEvent {
	return &AlerteDeclencheeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlerteDeclenchee, AggregateTypeAlerte, alerte.ID),
		AlerteID:        alerte.ID,
		ChantierID:      alerte.ChantierID,
		Niveau:          alerte.Niveau.String(),
		RatioPct:        alerte.RatioPct,
		SeuilPct:        alerte.SeuilPct,
		Message:         alerte.Message,
	}
}

// EventType returns the event type name
func (e *AlerteDeclencheeEvent) EventType() string {
	return EventTypeAlerteDeclenchee
}
