package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/mes-platform/production/shared/pkg/logging"
)

// Config holds MQTT broker settings
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retained       bool
	PublishTimeout time.Duration
}

// DefaultConfig returns status-broadcast defaults: QoS 1, retained
func DefaultConfig(brokerURL, clientID string) *Config {
	return &Config{
		BrokerURL:      brokerURL,
		ClientID:       clientID,
		QoS:            1,
		Retained:       true,
		PublishTimeout: 5 * time.Second,
	}
}

// Publisher sends JSON payloads to an MQTT broker
type Publisher struct {
	client MQTT.Client
	config *Config
	logger *logging.Logger
}

// NewPublisher connects to the broker
func NewPublisher(config *Config, logger *logging.Logger) (*Publisher, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(c MQTT.Client) {
		logger.Info("Connected to MQTT broker", "broker", config.BrokerURL, "clientId", config.ClientID)
	})
	opts.SetConnectionLostHandler(func(c MQTT.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err, "clientId", config.ClientID)
	})

	client := MQTT.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.PublishTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", config.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return NewPublisherWithClient(client, config, logger), nil
}

// NewPublisherWithClient wraps an existing client
func NewPublisherWithClient(client MQTT.Client, config *Config, logger *logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		config: config,
		logger: logger.WithComponent("mqtt-publisher"),
	}
}

// Publish marshals payload to JSON and waits for the broker acknowledgement
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal MQTT payload: %w", err)
	}

	token := p.client.Publish(topic, p.config.QoS, p.config.Retained, data)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.PublishTimeout):
		return fmt.Errorf("timed out publishing to %s", topic)
	}

	if err := token.Error(); err != nil {
		p.logger.WithContext(ctx).Warn("MQTT publish failed", "topic", topic, "error", err)
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to drain
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// StatusTopic builds the machine status topic mes/<site>/<machine>/status
func StatusTopic(site, machine string) string {
	return fmt.Sprintf("mes/%s/%s/status", site, machine)
}
