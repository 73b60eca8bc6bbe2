package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimart-ng/marketplace-backend/pkg/db/dbtest"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
)

func seedEvent(t *testing.T, repo *Repository, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, repo.Insert(repo.db, event))
	return event.ID
}

func TestDeletePublishedBefore(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)
	recent := now.AddDate(0, 0, -1)

	seedEvent(t, repo, old, &old, 1)
	seedEvent(t, repo, old, nil, 5)
	keepPending := seedEvent(t, repo, old, nil, 1)
	keepRecent := seedEvent(t, repo, recent, &recent, 1)

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, now.AddDate(0, 0, -30), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{keepPending, keepRecent}, ids)
}

func TestDeletePublishedBeforeHonoursLimit(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)
	for i := 0; i < 3; i++ {
		seedEvent(t, repo, old, &old, 1)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, now.AddDate(0, 0, -30), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var left int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	id := seedEvent(t, repo, time.Now().UTC(), nil, 0)

	require.NoError(t, repo.MarkFailedTx(db, id, errors.New("broker down")))
	require.NoError(t, repo.MarkFailedTx(db, id, errors.New("broker down")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker down", *row.LastError)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewDLQRepository(db)
	long := strings.Repeat("x", maxLastErrorLen+50)

	require.NoError(t, repo.InsertTx(db, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		AttemptCount:  5,
	}))

	var stored models.OutboxDLQ
	require.NoError(t, db.First(&stored).Error)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxLastErrorLen)

	err := repo.InsertTx(db, models.OutboxDLQ{EventID: uuid.New(), ErrorReason: "gave_up"})
	assert.Error(t, err)
	assert.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}
