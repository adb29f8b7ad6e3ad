// Package events publishes domain events (room created, message sent,
// saga rolled back) to an AMQP topic exchange so that downstream
// consumers can react without polling the store.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"chat-core/observability"
)

// Routing keys for the chat exchange.
const (
	RoomsKey    = "chat.rooms"
	MessagesKey = "chat.messages"
	MediaKey    = "chat.media"
)

// Envelope wraps every published event.
type Envelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventName     string         `json:"event_name"`
	OccurredAt    string         `json:"occurred_at"`
	UserID        string         `json:"user_id,omitempty"`
	RoomID        string         `json:"room_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(name, userID, roomID string, payload map[string]any) Envelope {
	return Envelope{
		SchemaVersion: 1,
		EventName:     name,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		UserID:        userID,
		RoomID:        roomID,
		Payload:       payload,
	}
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event Envelope) error
	Close() error
}

// NewPublisher builds an AMQP publisher, or a noop publisher when the
// URL is empty or the broker cannot be reached. A chat deployment works
// without a broker; events are then logged and dropped.
func NewPublisher(amqpURL, exchange string, logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if amqpURL == "" {
		logger.Info("amqp disabled, using noop publisher", zap.String("reason", "empty amqp url"))
		return &noopPublisher{logger: logger}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warn("amqp disabled, using noop publisher", zap.Error(err))
		return &noopPublisher{logger: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("amqp disabled, using noop publisher", zap.Error(err))
		_ = conn.Close()
		return &noopPublisher{logger: logger}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		logger.Warn("amqp disabled, using noop publisher", zap.Error(err))
		_ = ch.Close()
		_ = conn.Close()
		return &noopPublisher{logger: logger}
	}

	logger.Info("amqp connected", zap.String("exchange", exchange))
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event Envelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		observability.IncEventPublishError()
		p.logger.Warn("amqp publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	logger *zap.Logger
}

func (n *noopPublisher) Publish(ctx context.Context, routingKey string, event Envelope) error {
	n.logger.Debug("noop publish",
		zap.String("routing_key", routingKey),
		zap.String("event_name", event.EventName),
		zap.String("room_id", event.RoomID),
	)
	return nil
}

func (n *noopPublisher) Close() error { return nil }

// Mode reports how a publisher was wired, for startup logging.
func Mode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case *noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

// Emit publishes on a possibly-nil publisher; a nil publisher drops the
// event. Publish failures are already counted and logged by the
// publisher and never fail the calling operation.
func Emit(ctx context.Context, p Publisher, routingKey string, event Envelope) {
	if p == nil {
		return
	}
	_ = p.Publish(ctx, routingKey, event)
}
