package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/subscriptions/pkg/observability"
	"github.com/google/uuid"
)

// ErrMalformedEvent marks an event that can never be processed. Brokers
// discard such events instead of redelivering them.
var ErrMalformedEvent = errors.New("malformed event")

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["billing.purchase.updated"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent is the envelope carried on the bus.
type ConsumedEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	RoutingKey string          `json:"routing_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
	Metadata   EventMetadata   `json:"metadata,omitzero"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Decode unmarshals the payload into v. Failures wrap ErrMalformedEvent.
func (e *ConsumedEvent) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedEvent, e.RoutingKey, err)
	}
	return nil
}

// NewEvent wraps payload in an envelope stamped with a fresh event ID and
// the correlation ID carried by ctx.
func NewEvent(ctx context.Context, routingKey, source string, payload any) (*ConsumedEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return &ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
		Metadata: EventMetadata{
			CorrelationID: observability.CorrelationIDFromContext(ctx),
			Source:        source,
		},
	}, nil
}

// PublishEvent builds an envelope for payload and publishes it.
func PublishEvent(ctx context.Context, publisher Publisher, routingKey, source string, payload any) error {
	event, err := NewEvent(ctx, routingKey, source, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", routingKey, err)
	}
	return publisher.Publish(ctx, routingKey, body)
}

// Consumer consumes events from a message broker.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterConsumer registers an event consumer.
	RegisterConsumer(consumer EventConsumer)

	// Close closes the consumer connection.
	Close() error
}
