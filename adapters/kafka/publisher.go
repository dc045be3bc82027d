// Package kafka publishes domain events to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
	skafka "github.com/segmentio/kafka-go"
)

// Writer defines the subset of kafka.Writer used by the publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher with a Kafka writer. Events are
// keyed by ports.Event.Key so one user's events stay ordered.
type Publisher struct {
	writer Writer
	logger zerolog.Logger
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NewPublisher creates a publisher writing to the configured topic.
func NewPublisher(cfg Config, logger zerolog.Logger) *Publisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}
	w := &skafka.Writer{
		Addr:                   skafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &skafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           skafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, logger)
}

// NewPublisherWithWriter allows injecting a test writer.
func NewPublisherWithWriter(w Writer, logger zerolog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger}
}

type envelope struct {
	Type    string    `json:"type"`
	Key     string    `json:"key"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Publish marshals the event to JSON and writes it.
func (p *Publisher) Publish(ctx context.Context, e ports.Event) error {
	value, err := json.Marshal(envelope{Type: e.Type, Key: e.Key, At: e.At.UTC(), Payload: e.Payload})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}

	msg := skafka.Message{
		Key:   []byte(e.Key),
		Value: value,
		Time:  e.At,
		Headers: []skafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("event_type", e.Type).Str("key", e.Key).Msg("kafka write failed")
		return fmt.Errorf("write event %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, ports.Event) error { return nil }
func (Noop) Close() error                              { return nil }

// Ensure interface compliance.
var (
	_ ports.EventPublisher = (*Publisher)(nil)
	_ ports.EventPublisher = Noop{}
)
