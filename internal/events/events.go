// Package events publishes order lifecycle notifications for downstream consumers
// such as print-file generation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// TypeOrderReady is emitted when an order's runner result is resolved
const TypeOrderReady = "order.ready"

// DefaultTopic is the Kafka topic for order events
const DefaultTopic = "race-results.orders"

// OrderReady describes an order whose result was found, by search or by operator acceptance.
type OrderReady struct {
	OrderNumber   string    `json:"order_number"`
	RaceEditionID string    `json:"race_edition_id"`
	RaceName      string    `json:"race_name"`
	Year          int       `json:"year"`
	RunnerName    string    `json:"runner_name"`
	BibNumber     string    `json:"bib_number,omitempty"`
	OfficialTime  string    `json:"official_time,omitempty"`
	OfficialPace  string    `json:"official_pace,omitempty"`
	EventType     string    `json:"event_type,omitempty"`
	Source        string    `json:"source"`
	ResearchedAt  time.Time `json:"researched_at"`
}

// Event is the envelope written to the topic
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers order events
type Publisher interface {
	PublishOrderReady(ctx context.Context, event OrderReady) error
	Close() error
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) PublishOrderReady(context.Context, OrderReady) error { return nil }
func (NopPublisher) Close() error                                        { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic, keyed by order number so all
// events of one order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger logrus.FieldLogger
}

// NewKafkaPublisher creates a synchronous publisher for the given brokers
func NewKafkaPublisher(brokers []string, topic string, logger logrus.FieldLogger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger logrus.FieldLogger) *KafkaPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// PublishOrderReady writes one order.ready event
func (p *KafkaPublisher) PublishOrderReady(ctx context.Context, data OrderReady) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      TypeOrderReady,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(data.OrderNumber),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(TypeOrderReady)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":     event.ID,
			"order_number": data.OrderNumber,
		}).Error("failed to publish event")
		return fmt.Errorf("failed to publish %s for order %s: %w", TypeOrderReady, data.OrderNumber, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"order_number": data.OrderNumber,
		"topic":        p.topic,
	}).Info("event published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
