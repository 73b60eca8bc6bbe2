package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/unimart-ng/marketplace-backend/pkg/logger"
)

const (
	defaultSuspensionBatch = 100
	maxSuspensionRounds    = 50
)

type expirySuspender interface {
	SuspendExpired(ctx context.Context, limit int) (int, error)
}

// SubscriptionExpiryJobParams configure the lapsed subscription sweep.
type SubscriptionExpiryJobParams struct {
	Logger    *logger.Logger
	Suspender expirySuspender
	BatchSize int
	MaxRounds int
}

// NewSubscriptionExpiryJob builds the job that flags vendors whose paid cycle
// has ended. Reads never depend on it; it only persists what the clock implies.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Suspender == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSuspensionBatch
	}
	rounds := params.MaxRounds
	if rounds <= 0 {
		rounds = maxSuspensionRounds
	}
	return &subscriptionExpiryJob{
		logg:      params.Logger,
		suspender: params.Suspender,
		batch:     batch,
		rounds:    rounds,
	}, nil
}

type subscriptionExpiryJob struct {
	logg      *logger.Logger
	suspender expirySuspender
	batch     int
	rounds    int
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	var errs error
	total := 0
	for round := 0; round < j.rounds; round++ {
		n, err := j.suspender.SuspendExpired(ctx, j.batch)
		total += n
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if n < j.batch {
			break
		}
	}
	logCtx := j.logg.WithField(ctx, "suspended", total)
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return errs
}
