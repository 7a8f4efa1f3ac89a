package outbox

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/mes-platform/production/shared/pkg/cloudevents"
	"github.com/mes-platform/production/shared/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	events    []*OutboxEvent
	published map[string]bool
	retries   map[string]int
}

func newMemoryRepository(events ...*OutboxEvent) *memoryRepository {
	return &memoryRepository{
		events:    events,
		published: map[string]bool{},
		retries:   map[string]int{},
	}
}

func (r *memoryRepository) SaveAll(_ context.Context, events []*OutboxEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *memoryRepository) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	var out []*OutboxEvent
	for _, e := range r.events {
		if !r.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepository) MarkPublished(_ context.Context, id string) error {
	r.published[id] = true
	return nil
}

func (r *memoryRepository) IncrementRetry(_ context.Context, id string, _ string) error {
	r.retries[id]++
	return nil
}

func (r *memoryRepository) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, e := range r.events {
		if !r.published[e.ID] {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) FindByAggregateID(_ context.Context, id string) ([]*OutboxEvent, error) {
	var out []*OutboxEvent
	for _, e := range r.events {
		if e.AggregateID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubProducer struct {
	sent    []*cloudevents.ProductionCloudEvent
	failFor string
}

func (p *stubProducer) PublishEvent(_ context.Context, _ string, event *cloudevents.ProductionCloudEvent) error {
	if event.Type == p.failFor {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, event)
	return nil
}

func (p *stubProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.ProductionCloudEvent) error {
	for _, e := range events {
		if err := p.PublishEvent(ctx, topic, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *stubProducer) Close() error { return nil }

func newEvent(t *testing.T, eventType, orderID string) *OutboxEvent {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceProduction)
	ce := factory.CreateOrderEvent(context.Background(), eventType, orderID, "Trefila", map[string]string{"orderId": orderID})
	ev, err := NewOutboxEventFromCloudEvent(orderID, "ProductionOrder", "mes.production.events", ce)
	require.NoError(t, err)
	return ev
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: logging.LevelError, Output: io.Discard})
}

func TestPublisher_ProcessBatch(t *testing.T) {
	started := newEvent(t, cloudevents.OrderStarted, "OP-1")
	failing := newEvent(t, cloudevents.DowntimeLogged, "OP-1")
	repo := newMemoryRepository(started, failing)
	producer := &stubProducer{failFor: cloudevents.DowntimeLogged}

	p := NewPublisher(repo, producer, testLogger(), nil, nil)
	delivered := p.ProcessBatch(context.Background())

	assert.Equal(t, 1, delivered)
	assert.True(t, repo.published[started.ID])
	assert.False(t, repo.published[failing.ID])
	assert.Equal(t, 1, repo.retries[failing.ID])

	require.Len(t, producer.sent, 1)
	assert.Equal(t, "OP-1", producer.sent[0].OrderID)
	assert.Equal(t, "Trefila", producer.sent[0].Machine)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, p.Stats())
}

func TestPublisher_StartStop(t *testing.T) {
	p := NewPublisher(newMemoryRepository(), &stubProducer{}, testLogger(), nil, nil)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()))

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}

func TestOutboxEvent_RoundTrip(t *testing.T) {
	ev := newEvent(t, cloudevents.OrderCompleted, "OP-9")

	assert.Equal(t, cloudevents.OrderCompleted, ev.EventType)
	assert.True(t, ev.ShouldRetry())

	ce, err := ev.ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, "order/OP-9", ce.Subject)
	assert.Equal(t, "1.0", ce.SpecVersion)
}
