package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/mes-platform/production/services/production-service/internal/domain"
	"github.com/mes-platform/production/shared/pkg/logging"
	sharedmqtt "github.com/mes-platform/production/shared/pkg/mqtt"
)

// Publisher sends a JSON payload to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// StatusMessage is the retained machine status payload
type StatusMessage struct {
	domain.MachineStatus
	Site        string    `json:"site"`
	PublishedAt time.Time `json:"publishedAt"`
}

// StatusPublisher implements application.StatusPublisher over MQTT
type StatusPublisher struct {
	publisher Publisher
	site      string
	logger    *logging.Logger
}

// NewStatusPublisher creates a new StatusPublisher
func NewStatusPublisher(publisher Publisher, site string, logger *logging.Logger) *StatusPublisher {
	return &StatusPublisher{
		publisher: publisher,
		site:      site,
		logger:    logger.WithComponent("machine-status"),
	}
}

// PublishStatus broadcasts the status on the machine's retained topic
func (p *StatusPublisher) PublishStatus(ctx context.Context, status domain.MachineStatus) error {
	topic := Topic(p.site, status.Machine)
	msg := StatusMessage{
		MachineStatus: status,
		Site:          p.site,
		PublishedAt:   time.Now().UTC(),
	}

	if err := p.publisher.Publish(ctx, topic, msg); err != nil {
		return err
	}
	p.logger.WithContext(ctx).Debug("Machine status published", "topic", topic, "status", status.Status)
	return nil
}

var topicSegment = strings.NewReplacer("ç", "c", " ", "-", "/", "-", "+", "-", "#", "-")

// Topic builds mes/<site>/<machine>/status with the machine name as a plain
// lowercase segment, so Treliça publishes to .../trelica/status
func Topic(site string, machine domain.Machine) string {
	return sharedmqtt.StatusTopic(topicSegment.Replace(strings.ToLower(site)), topicSegment.Replace(strings.ToLower(string(machine))))
}
