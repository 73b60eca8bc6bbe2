package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/unimart-ng/marketplace-backend/pkg/errors"
	pkgredis "github.com/unimart-ng/marketplace-backend/pkg/redis"
)

const (
	markProcessing = "processing"
	markDone       = "done"

	// processingTTL bounds how long a crashed handler blocks redelivery.
	processingTTL = 5 * time.Minute
)

var ErrEventInFlight = pkgerrors.New(pkgerrors.CodeConflict, "event is being processed")

// EventDedupe tracks gateway event ids through processing -> done so that
// redeliveries of a finished event are acknowledged without work and
// overlapping deliveries are told to come back later.
type EventDedupe struct {
	store   pkgredis.IdempotencyStore
	doneTTL time.Duration
	scope   string
}

func NewEventDedupe(store pkgredis.IdempotencyStore, doneTTL time.Duration, scope string) (*EventDedupe, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case doneTTL <= 0:
		return nil, errors.New("done ttl must be positive")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	return &EventDedupe{store: store, doneTTL: doneTTL, scope: scope}, nil
}

// Begin claims eventID. It returns false when the event already finished,
// and ErrEventInFlight while another delivery holds the claim.
func (d *EventDedupe) Begin(ctx context.Context, eventID string) (bool, error) {
	key, err := d.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := d.store.SetNX(ctx, key, markProcessing, processingTTL)
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	if claimed {
		return true, nil
	}
	state, err := d.store.Get(ctx, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("read event state: %w", err)
	}
	if state == markDone {
		return false, nil
	}
	return false, ErrEventInFlight
}

// Finish marks eventID done for the configured retention.
func (d *EventDedupe) Finish(ctx context.Context, eventID string) error {
	key, err := d.key(eventID)
	if err != nil {
		return err
	}
	if err := d.store.Del(ctx, key); err != nil {
		return fmt.Errorf("clear claim: %w", err)
	}
	if _, err := d.store.SetNX(ctx, key, markDone, d.doneTTL); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// Release drops the claim so the gateway's next retry is processed.
func (d *EventDedupe) Release(ctx context.Context, eventID string) error {
	key, err := d.key(eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

func (d *EventDedupe) key(eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return d.store.IdempotencyKey(d.scope, eventID), nil
}
