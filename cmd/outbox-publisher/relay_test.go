package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/registry"
)

func TestDrainContinuesAfterTransientFailure(t *testing.T) {
	first, second := settledRow(t), settledRow(t)
	store := &fakeStore{rows: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: []publishResult{
		fakeResult{err: errors.New("transient")},
		fakeResult{},
	}}
	relay := newTestRelay(t, store, pub, resolvedAs("settlement-topic", &payloads.OrderSettledEvent{}), &fakeDLQ{}, nil)

	n, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID}, store.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, store.published)
	assert.Empty(t, store.terminal)
}

func TestDeliverKeysMessagesByAggregate(t *testing.T) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventVendorSuspended,
		AggregateType: enums.AggregateVendor,
		AggregateID:   uuid.New(),
		Payload:       envelopeBytes(t, "suspended"),
	}
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakeResult{}}}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, store, pub, resolvedAs("vendor-topic", &payloads.VendorSuspendedEvent{}), &fakeDLQ{}, nil)
	relay.metrics = metrics.NewOutboxMetrics(reg)
	relay.publishers = func(topic string) publisher {
		require.Equal(t, "vendor-topic", topic)
		return pub
	}

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, row.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, string(enums.EventVendorSuspended), msg.Attributes["event_type"])
	assert.Equal(t, row.ID.String(), msg.Attributes["event_id"])
	assert.Equal(t, []uuid.UUID{row.ID}, store.published)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var published float64
	for _, mf := range mfs {
		if mf.GetName() == "outbox_published_total" {
			for _, m := range mf.GetMetric() {
				published += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), published)
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	row := settledRow(t)
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	resolve := &fakeResolver{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	relay := newTestRelay(t, store, &fakePublisher{}, resolve, dlq, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	assert.Equal(t, row.ID, entry.EventID)
	assert.Equal(t, []byte(row.Payload), []byte(entry.Payload))
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, store.terminal)
}

func TestDrainDeadLettersMissingTopic(t *testing.T) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeBytes(t, "expired"),
	}
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	relay := newTestRelay(t, store, &fakePublisher{}, resolvedAs("settlement-topic", &payloads.OrderExpiredEvent{}), dlq, nil)
	relay.publishers = func(string) publisher { return nil }

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	assert.Empty(t, store.published)
}

func TestDrainDeadLettersOnLastAttempt(t *testing.T) {
	row := settledRow(t)
	row.AttemptCount = 1
	store := &fakeStore{rows: []models.OutboxEvent{row}}
	pub := &fakePublisher{results: []publishResult{fakeResult{err: errors.New("transient")}}}
	dlq := &fakeDLQ{}
	relay := newTestRelay(t, store, pub, resolvedAs("settlement-topic", &payloads.OrderSettledEvent{}), dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Empty(t, store.failed)
}

func TestNewRelayRequiresDeadLetters(t *testing.T) {
	_, err := NewRelay(RelayParams{
		Config:   &config.Config{},
		Logger:   logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		DB:       &fakeDB{},
		PubSub:   &fakeTopics{},
		Outbox:   &fakeStore{},
		Registry: &fakeResolver{},
	})
	assert.EqualError(t, err, "dlq repository is required")
}

func newTestRelay(t *testing.T, store outboxStore, pub publisher, resolve resolver, dlq deadLetters, override *config.OutboxConfig) *Relay {
	t.Helper()
	cfg := &config.Config{Outbox: config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}}
	if override != nil {
		cfg.Outbox = *override
	}
	relay, err := NewRelay(RelayParams{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		DB:          &fakeDB{},
		PubSub:      &fakeTopics{},
		Outbox:      store,
		DeadLetters: dlq,
		Registry:    resolve,
		Publishers:  func(string) publisher { return pub },
	})
	require.NoError(t, err)
	return relay
}

func settledRow(t *testing.T) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeBytes(t, uuid.NewString()),
	}
}

func resolvedAs(topic string, payload any) *fakeResolver {
	return &fakeResolver{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: topic},
		Payload:    payload,
	}}
}

func envelopeBytes(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return payload
}

type fakeStore struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeTopics struct{}

func (fakeTopics) Ping(context.Context) error { return nil }

func (fakeTopics) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) { return "msg-1", f.err }

type fakeResolver struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	out := *f.resolved
	out.Descriptor.AggregateType = row.AggregateType
	out.Envelope = outbox.PayloadEnvelope{EventID: row.ID.String(), OccurredAt: time.Now()}
	return &out, nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
