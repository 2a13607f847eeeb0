package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type EventType string

const (
	EventUserRegistered         EventType = "user.registered"
	EventUserLoggedIn           EventType = "user.logged_in"
	EventMFASetupStarted        EventType = "mfa.setup_started"
	EventMFAEnabled             EventType = "mfa.enabled"
	EventMFADisabled            EventType = "mfa.disabled"
	EventPasswordResetRequested EventType = "password.reset_requested"
	EventPasswordResetCompleted EventType = "password.reset_completed"
)

const publishTimeout = 5 * time.Second

// Event is the JSON body of every auth event. It never carries secrets.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher emits auth events on a single channel. Delivery is best
// effort: failures are logged and never surface to the caller.
type EventPublisher struct {
	backend Backend
	channel string
	logger  *slog.Logger
	now     func() time.Time
}

// NewEventPublisher returns a publisher; a nil backend disables publishing.
func NewEventPublisher(backend Backend, channel string, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		backend: backend,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType EventType, userID string) {
	if p == nil || p.backend == nil {
		return
	}

	event := Event{Type: eventType, UserID: userID, OccurredAt: p.now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", slog.String("type", string(eventType)), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	id, err := p.backend.Publish(ctx, p.channel, data, map[string]string{"type": string(eventType)})
	if err != nil {
		p.logger.Warn("failed to publish event",
			slog.String("type", string(eventType)),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return
	}
	p.logger.Debug("event published", slog.String("type", string(eventType)), slog.String("message_id", id))
}

func DecodeEvent(msg Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}

// ConsumeEvents subscribes to channel and hands each decoded event to fn.
// Undecodable messages are acked and skipped so they are not redelivered.
func ConsumeEvents(ctx context.Context, backend Backend, channel string, logger *slog.Logger, fn func(context.Context, Event) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	return backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		event, err := DecodeEvent(msg)
		if err != nil {
			logger.Warn("dropping malformed event", slog.String("message_id", msg.ID), slog.Any("error", err))
			return nil
		}
		return fn(ctx, event)
	})
}
