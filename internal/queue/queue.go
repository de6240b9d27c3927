// Package queue publishes processing requests to a message transport.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher sends one payload and blocks until the transport acknowledges it.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
	Close() error
}

// Keyed payloads carry a routing key, used as the Kafka message key.
type Keyed interface {
	MessageKey() string
}

// Encode is the wire encoding shared by all publishers.
func Encode(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

func keyOf(payload any) string {
	if k, ok := payload.(Keyed); ok {
		return k.MessageKey()
	}
	return ""
}
