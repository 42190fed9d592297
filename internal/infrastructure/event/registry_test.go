package event

import (
	"context"
	"testing"

	"github.com/chantier/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// recordingHandler implements shared.EventHandler and records what it saw.
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler("achat.confirmed", "achat.delivered")

	registry.Register(handler, "achat.confirmed", "achat.delivered")

	handlers := registry.GetHandlers("achat.confirmed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("achat.delivered")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("achat.cancelled")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	auditTrail := newRecordingHandler() // no event types, wants everything

	registry.Register(auditTrail)

	handlers := registry.GetHandlers("achat.confirmed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, auditTrail, handlers[0])

	handlers = registry.GetHandlers("situation.validated")
	assert.Len(t, handlers, 1)
	assert.Equal(t, auditTrail, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	alerting := newRecordingHandler("budget.recalculated")
	auditTrail := newRecordingHandler()

	registry.Register(alerting, "budget.recalculated")
	registry.Register(auditTrail)

	handlers := registry.GetHandlers("budget.recalculated")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("facture.issued")
	assert.Len(t, handlers, 1)
	assert.Equal(t, auditTrail, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newRecordingHandler("situation.validated")
	handler2 := newRecordingHandler("situation.validated")

	registry.Register(handler1, "situation.validated")
	registry.Register(handler2, "situation.validated")

	assert.Len(t, registry.GetHandlers("situation.validated"), 2)

	registry.Unregister(handler1)

	handlers := registry.GetHandlers("situation.validated")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	auditTrail := newRecordingHandler()

	registry.Register(auditTrail)
	assert.Len(t, registry.GetHandlers("alerte.triggered"), 1)

	registry.Unregister(auditTrail)
	assert.Len(t, registry.GetHandlers("alerte.triggered"), 0)
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	alerting := newRecordingHandler("budget.recalculated")
	billing := newRecordingHandler("situation.validated")
	auditTrail := newRecordingHandler()

	registry.Register(alerting, "budget.recalculated")
	registry.Register(billing, "situation.validated")
	registry.Register(auditTrail)

	assert.Len(t, registry.GetAllHandlers(), 3)
}

func TestHandlerRegistry_GetAllHandlers_NoDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler("achat.confirmed", "achat.delivered")

	// One handler registered for several types still counts once.
	registry.Register(handler, "achat.confirmed", "achat.delivered")

	assert.Len(t, registry.GetAllHandlers(), 1)
}
