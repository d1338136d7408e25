// Package kafka publishes JSON events to Kafka with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

// Event is one JSON message. Records sharing a Key land on the same
// partition, so per-query ordering holds. Type becomes the event-type header.
type Event struct {
	Key   string
	Type  string
	Value any
}

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// NewProducer dials the configured brokers lazily; nothing is sent until the
// first Publish.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, topic)
}

func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		logger: logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// Publish encodes events and writes them in one call. An encoding failure
// aborts the whole batch before anything is sent.
func (p *Producer) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	msgs := make([]kafka.Message, len(events))
	for i, ev := range events {
		value, err := json.Marshal(ev.Value)
		if err != nil {
			return fmt.Errorf("encoding event %d for %s: %w", i, p.topic, err)
		}
		msgs[i] = kafka.Message{Key: []byte(ev.Key), Value: value, Time: now}
		if ev.Type != "" {
			msgs[i].Headers = []kafka.Header{{Key: "event-type", Value: []byte(ev.Type)}}
		}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("publish failed", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing %d events to %s: %w", len(msgs), p.topic, err)
	}
	p.logger.Debug("events published", "count", len(msgs))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
