package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/internal/orders"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/payloads"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	pendingOrderBatch      = 200
)

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders orders.Repository
	Outbox outboxEmitter
	TTL    time.Duration
	Now    func() time.Time
}

// NewOrderTTLJob builds the cron job that cancels orders left unpaid past TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &orderTTLJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outboxEmitter
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	pending, err := j.orders.ListPendingBefore(ctx, cutoff, pendingOrderBatch)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range pending {
		ok, err := j.expireOrder(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(pending),
		"expired": expired,
	})
	j.logg.Info(logCtx, "order expiration loop complete")
	return errs
}

func (j *orderTTLJob) expireOrder(ctx context.Context, order models.Order) (bool, error) {
	var expired bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		expired = false
		cancelled, err := j.orders.WithTx(tx).MarkCancelled(ctx, order.ID)
		if err != nil {
			return err
		}
		if !cancelled {
			return nil
		}
		expired = true
		now := j.now().UTC()
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:    order.ID,
				CheckoutID: order.CheckoutID,
				VendorID:   order.VendorID,
				UserID:     order.UserID,
				Reference:  order.Reference,
				ExpiredAt:  now,
			},
		})
	})
	return expired, err
}
