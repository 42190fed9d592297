package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chantier/backend/internal/domain/alerting"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
)

// LedgerMetricsRecorder receives business metric observations derived from
// domain events. Satisfied by telemetry.BusinessMetrics.
type LedgerMetricsRecorder interface {
	RecordAchatWithMontant(ctx context.Context, chantierID uuid.UUID, typeAchat string, montantHT decimal.Decimal)
	RecordSituationCreated(ctx context.Context, chantierID uuid.UUID)
	RecordFactureEmise(ctx context.Context, chantierID uuid.UUID)
	RecordPaiement(ctx context.Context, chantierID uuid.UUID, moyenPaiement string, statutFacture string)
	RecordAlerteDeclenchee(ctx context.Context, chantierID uuid.UUID, niveau string)
}

// MetricsHandler projects ledger domain events into business metrics.
// It is a passive observer: recording failures never fail the event.
type MetricsHandler struct {
	recorder LedgerMetricsRecorder
	logger   *zap.Logger
}

// NewMetricsHandler creates a new handler for metric-relevant ledger events
func NewMetricsHandler(recorder LedgerMetricsRecorder, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		recorder: recorder,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		purchasing.EventTypeAchatCreated,
		billing.EventTypeSituationCreated,
		billing.EventTypeFactureCreated,
		billing.EventTypePaiementCreated,
		alerting.EventTypeAlerteDeclenchee,
	}
}

// Handle records the metric matching the event type. Unknown event types are
// logged and dropped, never retried.
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *purchasing.AchatCreatedEvent:
		h.recorder.RecordAchatWithMontant(ctx, e.ChantierID, e.TypeAchat, e.MontantHT)
	case *billing.SituationCreatedEvent:
		h.recorder.RecordSituationCreated(ctx, e.ChantierID)
	case *billing.FactureCreatedEvent:
		h.recorder.RecordFactureEmise(ctx, e.ChantierID)
	case *billing.PaiementCreatedEvent:
		h.recorder.RecordPaiement(ctx, e.ChantierID, "virement", string(billing.StatutFacturePayee))
	case *alerting.AlerteDeclencheeEvent:
		h.recorder.RecordAlerteDeclenchee(ctx, e.ChantierID, e.Niveau)
	default:
		h.logger.Warn("metrics handler received unexpected event type",
			zap.String("event_type", event.EventType()),
		)
	}
	return nil
}
