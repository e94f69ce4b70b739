package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"betbot/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sourceService = "betbot"

// MessagePublisher sends raw bytes to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards bus events to NATS
type NATSEventPublisher struct {
	client        MessagePublisher
	subjectMapper *EventSubjectMapper
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
	}
}

// Attach subscribes the publisher to every mapped event type on bus
func (p *NATSEventPublisher) Attach(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	}, p.subjectMapper.EventTypes()...)
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject := p.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, envelopeData); err != nil {
		// The stream is optional; a server without it acks nothing
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")
	return nil
}
