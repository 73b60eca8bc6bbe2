// Package registry maps outbox event types to Pub/Sub topics and decodes
// their payloads before the relay publishes them.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will never publish; the relay parks
// them in the DLQ instead of retrying.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// route builds a descriptor whose payload decodes into a fresh *T.
func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			out := new(T)
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes vendor lifecycle events to the vendor topic and
// money movements to the settlement topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.VendorTopic == "" {
		missing = append(missing, errors.New("vendor topic is required"))
	}
	if cfg.SettlementTopic == "" {
		missing = append(missing, errors.New("settlement topic is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	descriptors := []EventDescriptor{
		route[payloads.SubscriptionActivatedEvent](enums.EventSubscriptionActivated, enums.AggregateVendor, cfg.VendorTopic),
		route[payloads.VendorSuspendedEvent](enums.EventVendorSuspended, enums.AggregateVendor, cfg.VendorTopic),
		route[payloads.SubscriptionPaymentRecordedEvent](enums.EventSubscriptionPaymentRecorded, enums.AggregateTransaction, cfg.SettlementTopic),
		route[payloads.OrderSettledEvent](enums.EventOrderSettled, enums.AggregateOrder, cfg.SettlementTopic),
		route[payloads.OrderExpiredEvent](enums.EventOrderExpired, enums.AggregateOrder, cfg.SettlementTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics lists every distinct topic the registry routes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, d := range r.entries {
		if !seen[d.Topic] {
			seen[d.Topic] = true
			topics = append(topics, d.Topic)
		}
	}
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is permanent, so all are NonRetryableError.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return nil, fatalf("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return nil, fatalf("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, fatalf("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fatalf("payload missing for %s", row.EventType)
	}
	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, fatalf("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
