// Package audit publishes order lifecycle events to a Kafka topic so
// downstream consumers (reporting, notifications) can follow the store's
// activity without polling it.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

const (
	EventOrderPlaced   = "order.placed"
	EventOrderPaid     = "order.paid"
	EventStatusChanged = "order.status_changed"
)

type Event struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher is the capability services depend on. Publishing is
// best-effort: a broker outage must never fail a customer action.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop is used when Kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

// NewKafka connects a sync producer to the given brokers.
func NewKafka(brokers []string, topic string, log *slog.Logger) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &kafkaPublisher{producer: producer, topic: topic, log: log}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.log.ErrorContext(ctx, "audit event marshal failed", "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.log.ErrorContext(ctx, "audit event publish failed",
			"type", event.Type, "order_id", event.OrderID, "error", err)
	}
}
