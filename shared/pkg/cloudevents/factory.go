package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mes-platform/production/shared/pkg/logging"
)

// EventFactory creates CloudEvents for one event source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Source returns the factory's source URI
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new event and stamps it with the correlation id and
// trace context found on ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *ProductionCloudEvent {
	event := &ProductionCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}
	event.SetTraceContext(ctx)
	return event
}

// CreateOrderEvent creates an event whose subject is the production order
func (f *EventFactory) CreateOrderEvent(ctx context.Context, eventType, orderID, machine string, data interface{}) *ProductionCloudEvent {
	event := f.CreateEvent(ctx, eventType, "order/"+orderID, data)
	event.OrderID = orderID
	event.Machine = machine
	return event
}
