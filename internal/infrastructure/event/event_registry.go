package event

import (
	"github.com/chantier/backend/internal/domain/alerting"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table; an event missing here dead-letters on first dispatch.
func RegisterAllEvents(serializer EventCodec) {
	// Purchasing
	serializer.Register(purchasing.EventTypeAchatCreated, &purchasing.AchatCreatedEvent{})
	serializer.Register(purchasing.EventTypeAchatStatutChange, &purchasing.AchatStatutChangeEvent{})

	// Budget
	serializer.Register(budget.EventTypeEngagementRecompute, &budget.EngagementRecomputeEvent{})

	// Billing
	serializer.Register(billing.EventTypeSituationCreated, &billing.SituationCreatedEvent{})
	serializer.Register(billing.EventTypeFactureCreated, &billing.FactureCreatedEvent{})
	serializer.Register(billing.EventTypePaiementCreated, &billing.PaiementCreatedEvent{})

	// Alerting
	serializer.Register(alerting.EventTypeAlerteDeclenchee, &alerting.AlerteDeclencheeEvent{})
}

// RegisterEventUpgraders re-registers the event types whose schema has
// evolved, attaching their upgrade chain. Must be called after
// RegisterAllEvents so old payloads still sitting in the outbox deserialize
// to the current structs.
func RegisterEventUpgraders(serializer *VersionedSerializer) error {
	return serializer.RegisterVersioned(
		purchasing.EventTypeAchatStatutChange,
		purchasing.AchatStatutChangeSchemaVersion,
		map[int]shared.DomainEvent{
			purchasing.AchatStatutChangeSchemaVersion: &purchasing.AchatStatutChangeEvent{},
		},
		achatStatutChangeV1toV2(),
	)
}

// achatStatutChangeV1toV2 upgrades achat.statut_change payloads written
// before the transition was split in two fields: "statut" becomes
// "nouveau_statut" and "ancien_statut" is filled with the empty string,
// since v1 never recorded the previous status.
func achatStatutChangeV1toV2() EventUpgrader {
	return NewBaseEventUpgrader(1, 2, func(data map[string]any) (map[string]any, error) {
		if statut, ok := data["statut"]; ok {
			data["nouveau_statut"] = statut
			delete(data, "statut")
		}
		if _, ok := data["ancien_statut"]; !ok {
			data["ancien_statut"] = ""
		}
		return data, nil
	})
}
