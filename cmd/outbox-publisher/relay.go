package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db/models"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackMaxAttempts = 10
	fallbackPoll        = 500 * time.Millisecond
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterSpread        = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// RelayParams wires the outbox relay. Publishers is optional and defaults to
// ordering-enabled Pub/Sub topic handles.
type RelayParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          txRunner
	PubSub      topicSource
	Outbox      outboxStore
	DeadLetters deadLetters
	Registry    resolver
	Publishers  func(topic string) publisher
	Metrics     *metrics.OutboxMetrics
}

// Relay moves committed outbox rows onto their Pub/Sub topics.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicSource
	outbox      outboxStore
	dlq         deadLetters
	registry    resolver
	publishers  func(topic string) publisher
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Outbox == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		outbox:      p.Outbox,
		dlq:         p.DeadLetters,
		registry:    p.Registry,
		publishers:  p.Publishers,
		metrics:     p.Metrics,
		batchSize:   positiveOr(p.Config.Outbox.BatchSize, fallbackBatchSize),
		maxAttempts: positiveOr(p.Config.Outbox.MaxAttempts, fallbackMaxAttempts),
		poll:        p.Config.Outbox.PollInterval(),
	}
	if r.poll <= 0 {
		r.poll = fallbackPoll
	}
	if r.publishers == nil {
		r.publishers = r.topicPublisher
	}
	return r, nil
}

func (r *Relay) topicPublisher(topic string) publisher {
	handle := r.pubsub.Publisher(topic)
	if handle == nil {
		return nil
	}
	return &orderedPublisher{handle: handle}
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; errors back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.db.Ping,
		"pubsub":   r.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.poll
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		n, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, backoffCeiling)
		case n == r.batchSize:
			wait = r.poll
			continue
		default:
			wait = r.poll
		}

		if err := pause(ctx, wait+rand.N(jitterSpread)); err != nil {
			return err
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
