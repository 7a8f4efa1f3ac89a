package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/logging"
	sharedmqtt "github.com/mes-platform/production/shared/pkg/mqtt"
)

// fakeToken completes immediately with err
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; only Publish is exercised
type fakeClient struct {
	MQTT.Client
	mu       sync.Mutex
	messages []published
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: logging.LevelError, Format: "json", ServiceName: "test"})
}

func TestTopic(t *testing.T) {
	tests := []struct {
		site    string
		machine domain.Machine
		want    string
	}{
		{"plant1", domain.MachineTrefila, "mes/plant1/trefila/status"},
		{"plant1", domain.MachineTrelica, "mes/plant1/trelica/status"},
		{"Main Site", domain.MachineTrelica, "mes/main-site/trelica/status"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Topic(tt.site, tt.machine))
	}
}

func TestStatusPublisher_PublishStatus(t *testing.T) {
	client := &fakeClient{}
	publisher := sharedmqtt.NewPublisherWithClient(client, sharedmqtt.DefaultConfig("tcp://broker:1883", "test"), testLogger())
	status := NewStatusPublisher(publisher, "plant1", testLogger())

	since := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	err := status.PublishStatus(context.Background(), domain.MachineStatus{
		Machine: domain.MachineTrelica,
		Status:  domain.MachineStopped,
		Reason:  "Manutenção",
		OrderID: "ord-1",
		Since:   &since,
	})
	require.NoError(t, err)

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "mes/plant1/trelica/status", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &body))
	assert.Equal(t, "Treliça", body["machine"])
	assert.Equal(t, "Stopped", body["status"])
	assert.Equal(t, "Manutenção", body["reason"])
	assert.Equal(t, "plant1", body["site"])
}

func TestStatusPublisher_BrokerError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	publisher := sharedmqtt.NewPublisherWithClient(client, sharedmqtt.DefaultConfig("tcp://broker:1883", "test"), testLogger())
	status := NewStatusPublisher(publisher, "plant1", testLogger())

	err := status.PublishStatus(context.Background(), domain.MachineStatus{Machine: domain.MachineTrefila, Status: domain.MachineIdle})
	assert.Error(t, err)
}
