package queue

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogPublisher only logs payloads. Used when no transport is configured.
type LogPublisher struct {
	topic string
}

func NewLogPublisher(topic string) *LogPublisher {
	return &LogPublisher{topic: topic}
}

func (p *LogPublisher) Publish(ctx context.Context, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := Encode(payload)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	slog.Info("Message published to log", "topic", p.topic, "message_id", id, "payload", string(data))
	return id, nil
}

func (p *LogPublisher) Close() error {
	return nil
}
