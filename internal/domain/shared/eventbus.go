package shared

import "context"

// EventHandler consumes domain events delivered by the bus, e.g. the
// alerting engine reacting to budget recalculations.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants. Empty means all.
	EventTypes() []string
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers for event types.
type EventSubscriber interface {
	// Subscribe registers a handler. Without event types the handler
	// receives every event.
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publishing and subscription with a lifecycle for the
// background dispatch loop.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes domain events to the outbox table inside the same
// transaction that persists the aggregate, so ledger state and its events
// commit or roll back together.
type OutboxEventSaver interface {
	// SaveEvents appends events to the outbox. txProvider is the *gorm.DB
	// transaction the aggregate is being saved in.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
