package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Single synchronous writes would otherwise wait out kafka-go's default
// one-second batch window.
const kafkaBatchTimeout = 10 * time.Millisecond

// KafkaPublisher writes synchronously and waits for all in-sync replicas.
// Kafka assigns no message id to a produce call, so one is generated and
// sent as the message-id header.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: kafkaBatchTimeout,
		},
		topic: topic,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, payload any) (string, error) {
	data, err := Encode(payload)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	msg := kafka.Message{
		Value:   data,
		Headers: []kafka.Header{{Key: "message-id", Value: []byte(id)}},
	}
	if key := keyOf(payload); key != "" {
		msg.Key = []byte(key)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Kafka publish failed", "topic", p.topic, "error", err)
		return "", fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}

	slog.Debug("Published message", "topic", p.topic, "message_id", id)
	return id, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
