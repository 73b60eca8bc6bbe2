package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/enums"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/registry"
)

type outcome int

const (
	delivered outcome = iota
	retryLater
	deadLettered
)

// delivery is what happened to one row; settle persists it.
type delivery struct {
	outcome outcome
	topic   string
	eventID string
	reason  enums.OutboxDLQErrorReason
	err     error
}

// drain publishes one locked batch and returns how many rows it touched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var handled int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		handled = 0
		rows, err := r.outbox.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := r.settle(ctx, tx, row, r.deliver(ctx, row)); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) delivery {
	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return delivery{outcome: deadLettered, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}

	pub := r.publishers(d.topic)
	if pub == nil {
		d.outcome, d.reason = deadLettered, enums.OutboxDLQReasonNonRetryable
		d.err = fmt.Errorf("no publisher for topic %s", d.topic)
		return d
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, message(row, d.eventID))
	if result == nil {
		d.outcome, d.reason = deadLettered, enums.OutboxDLQReasonNonRetryable
		d.err = fmt.Errorf("publisher for %s returned no result", d.topic)
		return d
	}
	if _, err := result.Get(publishCtx); err != nil {
		d.err = err
		var fatal registry.NonRetryableError
		switch {
		case errors.As(err, &fatal):
			d.outcome, d.reason = deadLettered, enums.OutboxDLQReasonNonRetryable
		case row.LastAttempt(r.maxAttempts):
			d.outcome, d.reason = deadLettered, enums.OutboxDLQReasonMaxAttempts
			d.err = fmt.Errorf("max publish attempts reached: %w", err)
		default:
			d.outcome = retryLater
		}
		return d
	}
	d.outcome = delivered
	return d
}

// message keys every event by its aggregate so a vendor's or an order's
// events keep their relative order on the topic.
func message(row models.OutboxEvent, eventID string) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, d delivery) error {
	eventType := string(row.EventType)
	ctx = r.logg.WithFields(ctx, r.logFields(row, d))

	switch d.outcome {
	case delivered:
		if err := r.outbox.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(ctx, "outbox event published")

	case retryLater:
		if err := r.outbox.MarkFailedTx(tx, row.ID, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, err)
		}
		r.metrics.IncFailed(eventType, "retry")
		r.logg.Warn(ctx, "outbox publish failed; will retry")

	case deadLettered:
		if err := r.dlq.InsertTx(tx, row.DeadLetter(d.reason, d.err, time.Now())); err != nil {
			return fmt.Errorf("insert dlq %s: %w", row.ID, err)
		}
		if err := r.outbox.MarkTerminalTx(tx, row.ID, d.err, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
		r.metrics.IncFailed(eventType, "dlq")
		r.logg.Warn(ctx, "outbox event dead-lettered")
	}
	return nil
}

func (r *Relay) logFields(row models.OutboxEvent, d delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	if d.reason != "" {
		fields["error_reason"] = d.reason
	}
	if d.err != nil {
		fields["error"] = d.err.Error()
	}
	return fields
}
