package kafka

import (
	"context"
	"time"

	"github.com/mes-platform/production/shared/pkg/cloudevents"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func eventAttributes(event *cloudevents.ProductionCloudEvent) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.kafka.event_type", event.Type),
		attribute.String("messaging.message_id", event.ID),
	}
	if event.CorrelationID != "" {
		attrs = append(attrs, attribute.String("mes.correlation_id", event.CorrelationID))
	}
	if event.OrderID != "" {
		attrs = append(attrs, attribute.String("mes.order_id", event.OrderID))
	}
	if event.Machine != "" {
		attrs = append(attrs, attribute.String("mes.machine", event.Machine))
	}
	return attrs
}

// InstrumentedProducer wraps an EventPublisher with metrics and tracing
type InstrumentedProducer struct {
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes a CloudEvent inside a producer span. The span is
// parented on the trace context stored in the event, so outbox relays keep
// the originating request's trace.
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.ProductionCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(event.TraceContext(ctx), "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(tracing.MessagingSpanAttributes("kafka", topic, "publish")...),
		trace.WithAttributes(eventAttributes(event)...),
	)
	defer span.End()

	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)
	success := err == nil

	p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// PublishBatch publishes multiple events inside a single span
func (p *InstrumentedProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.ProductionCloudEvent) error {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish.batch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(tracing.MessagingSpanAttributes("kafka", topic, "publish")...),
		trace.WithAttributes(attribute.Int("messaging.batch_size", len(events))),
	)
	defer span.End()

	err := p.producer.PublishBatch(ctx, topic, events)
	duration := time.Since(start)
	success := err == nil

	perEvent := duration / time.Duration(len(events))
	for _, event := range events {
		p.metrics.RecordKafkaPublish(topic, event.Type, success, perEvent)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// Close closes the underlying producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
