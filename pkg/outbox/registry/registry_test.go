package registry

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{VendorTopic: "vendor-topic", SettlementTopic: "settlement-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeFor(t, payloads.OrderSettledEvent{
			OrderID:            orderID,
			Gross:              10000,
			PlatformCommission: 900,
			VendorPayout:       9100,
			SubscriptionPlan:   enums.PlanEconomy,
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "settlement-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.OrderSettledEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, payload.Gross, payload.PlatformCommission+payload.VendorPayout)
}

func TestResolveRoutesVendorEventsToVendorTopic(t *testing.T) {
	reg := testRegistry(t)
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventVendorSuspended,
		AggregateType: enums.AggregateVendor,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, payloads.VendorSuspendedEvent{VendorID: uuid.New(), PlanID: enums.PlanEconomy}),
	})
	require.NoError(t, err)
	assert.Equal(t, "vendor-topic", resolved.Descriptor.Topic)
}

func TestResolveFailuresAreNonRetryable(t *testing.T) {
	reg := testRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "ad_clicked", AggregateType: enums.AggregateVendor, AggregateID: uuid.New(),
			Payload: envelopeFor(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType: enums.EventSubscriptionActivated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelopeFor(t, []byte(`{"plan_id":"economy"}`)),
		},
		"missing aggregate id": {
			EventType: enums.EventVendorSuspended, AggregateType: enums.AggregateVendor,
			Payload: envelopeFor(t, []byte(`{}`)),
		},
		"null data": {
			EventType: enums.EventVendorSuspended, AggregateType: enums.AggregateVendor, AggregateID: uuid.New(),
			Payload: envelopeFor(t, []byte(`null`)),
		},
		"future envelope": {
			EventType: enums.EventVendorSuspended, AggregateType: enums.AggregateVendor, AggregateID: uuid.New(),
			Payload: json.RawMessage(`{"version":9,"eventId":"e","data":{}}`),
		},
		"bad payload shape": {
			EventType: enums.EventOrderSettled, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(),
			Payload: envelopeFor(t, []byte(`{"gross":"lots"}`)),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			var fatal NonRetryableError
			assert.True(t, errors.As(err, &fatal), "got %v", err)
		})
	}
}

func TestNewEventRegistryRequiresBothTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor topic")
	assert.Contains(t, err.Error(), "settlement topic")
}

func TestTopicsAreDistinct(t *testing.T) {
	topics := testRegistry(t).Topics()
	sort.Strings(topics)
	assert.Equal(t, []string{"settlement-topic", "vendor-topic"}, topics)

	shared, err := NewEventRegistry(config.PubSubConfig{VendorTopic: "events", SettlementTopic: "events"})
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, shared.Topics())
}
