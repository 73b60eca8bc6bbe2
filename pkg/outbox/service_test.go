package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/pkg/db/dbtest"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	vendorID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSubscriptionActivated,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendorID,
			Data:          payloads.SubscriptionActivatedEvent{VendorID: vendorID, PlanID: enums.PlanEconomy},
		})
	}))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventSubscriptionActivated, rows[0].EventType)
	assert.Equal(t, vendorID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)

	var data payloads.SubscriptionActivatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.PlanEconomy, data.PlanID)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()

	cases := map[string]DomainEvent{
		"unknown type":    {EventType: "ad_clicked", AggregateType: enums.AggregateOrder, AggregateID: orderID, Data: struct{}{}},
		"missing id":      {EventType: enums.EventOrderSettled, AggregateType: enums.AggregateOrder, Data: struct{}{}},
		"missing payload": {EventType: enums.EventOrderSettled, AggregateType: enums.AggregateOrder, AggregateID: orderID},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			err := db.Transaction(func(tx *gorm.DB) error {
				return svc.Emit(context.Background(), tx, event)
			})
			assert.Error(t, err)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitUsesRowIDAsEventID(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderSettledEvent{OrderID: orderID},
		})
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, row.ID.String(), env.EventID)
}

func TestDecodeEnvelopeRejectsUnknownVersions(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":7,"eventId":"x","data":{}}`))
	assert.Error(t, err)
	_, err = DecodeEnvelope([]byte(`{"version":1,"data":{}}`))
	assert.Error(t, err)
	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestRepositoryFetchAndMark(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	vendorID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventVendorSuspended,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendorID,
			Data:          payloads.VendorSuspendedEvent{VendorID: vendorID},
		})
	}))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkTerminalTx(db, rows[0].ID, assert.AnError, 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
