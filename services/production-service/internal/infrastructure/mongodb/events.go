package mongodb

import (
	"context"
	"fmt"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/cloudevents"
	"github.com/mes-platform/production/shared/pkg/kafka"
	"github.com/mes-platform/production/shared/pkg/outbox"
	outboxMongo "github.com/mes-platform/production/shared/pkg/outbox/mongodb"
)

const aggregateType = "ProductionOrder"

// EventValidator checks an event payload against its published contract
type EventValidator interface {
	Validate(eventType string, data interface{}) error
}

// EventWriter turns domain events into outbox rows inside the caller's transaction
type EventWriter struct {
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	validator    EventValidator
}

// NewEventWriter creates a new EventWriter. validator may be nil.
func NewEventWriter(outboxRepo *outboxMongo.OutboxRepository, eventFactory *cloudevents.EventFactory, validator EventValidator) *EventWriter {
	return &EventWriter{
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		validator:    validator,
	}
}

// Write stores the events in the outbox. ctx must carry the transaction of the
// aggregate write so both commit together.
func (w *EventWriter) Write(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		if w.validator != nil {
			if err := w.validator.Validate(event.EventType(), event); err != nil {
				return fmt.Errorf("%w: event %s violates its contract: %v", domain.ErrValidation, event.EventType(), err)
			}
		}

		cloudEvent := w.eventFactory.CreateOrderEvent(ctx, event.EventType(), event.AggregateID(), event.MachineName(), event)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			event.AggregateID(),
			aggregateType,
			kafka.Topics.ProductionEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := w.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
