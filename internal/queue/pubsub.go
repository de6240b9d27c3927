package queue

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}

	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, payload any) (string, error) {
	data, err := Encode(payload)
	if err != nil {
		return "", err
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		slog.Error("Pub/Sub publish failed", "topic", p.topic.ID(), "error", err)
		return "", fmt.Errorf("failed to publish to %s: %w", p.topic.ID(), err)
	}

	slog.Debug("Published message", "topic", p.topic.ID(), "message_id", id)
	return id, nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
