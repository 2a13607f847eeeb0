// Package mq publishes and consumes domain events over a message broker.
package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/config"
)

var ErrChannelRequired = errors.New("mq channel is required")

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A returned error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by every supported broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects to the backend selected by cfg.Backend. It returns a nil
// Backend when no broker is configured.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.MQBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.MQBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
}
