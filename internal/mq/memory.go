package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var errBackendClosed = errors.New("mq backend closed")

// MemoryBackend delivers messages in-process. Publishes are kept so they
// can be inspected; subscribers only see messages published after they
// subscribed.
type MemoryBackend struct {
	mu          sync.Mutex
	published   map[string][]Message
	subscribers map[string][]chan Message
	closed      bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		published:   make(map[string][]Message),
		subscribers: make(map[string][]chan Message),
	}
}

func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if channel == "" {
		return "", ErrChannelRequired
	}

	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errBackendClosed
	}
	m.published[channel] = append(m.published[channel], msg)
	subs := append([]chan Message(nil), m.subscribers[channel]...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return msg.ID, nil
}

// Subscribe blocks, invoking handler for each message until ctx is done.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if channel == "" {
		return ErrChannelRequired
	}

	ch := make(chan Message, 64)
	m.mu.Lock()
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	m.mu.Unlock()

	defer m.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

// Published returns a copy of every message sent to channel.
func (m *MemoryBackend) Published(channel string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.published[channel]...)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) unsubscribe(channel string, target chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[channel]
	for i, ch := range subs {
		if ch == target {
			m.subscribers[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
