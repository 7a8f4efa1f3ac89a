package kafka

import (
	"context"
	"time"

	"github.com/mes-platform/production/shared/pkg/cloudevents"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/mes-platform/production/shared/pkg/metrics"
	"github.com/mes-platform/production/shared/pkg/resilience"
)

// CircuitBreakerProducer wraps an EventPublisher with circuit breaker protection
type CircuitBreakerProducer struct {
	producer       EventPublisher
	circuitBreaker *resilience.CircuitBreaker
}

// NewCircuitBreakerProducer creates a breaker-protected producer using the
// "kafka-producer" breaker from registry
func NewCircuitBreakerProducer(producer EventPublisher, registry *resilience.CircuitBreakerRegistry) *CircuitBreakerProducer {
	cb := registry.GetWithConfig(&resilience.CircuitBreakerConfig{
		Name:                  "kafka-producer",
		MaxRequests:           5,
		Interval:              time.Minute,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	})
	return &CircuitBreakerProducer{producer: producer, circuitBreaker: cb}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.ProductionCloudEvent) error {
	_, err := p.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	return err
}

// PublishBatch publishes multiple events with circuit breaker protection
func (p *CircuitBreakerProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.ProductionCloudEvent) error {
	_, err := p.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.PublishBatch(ctx, topic, events)
	})
	return err
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}

// NewProductionProducer builds the Kafka producer stack: writer, instrumentation, breaker
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger, registry *resilience.CircuitBreakerRegistry) *CircuitBreakerProducer {
	instrumented := NewInstrumentedProducer(NewProducer(config), m, logger)
	return NewCircuitBreakerProducer(instrumented, registry)
}
