package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unimart-ng/marketplace-backend/internal/cron"
	"github.com/unimart-ng/marketplace-backend/internal/orders"
	"github.com/unimart-ng/marketplace-backend/internal/payments"
	"github.com/unimart-ng/marketplace-backend/internal/settlement"
	"github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/internal/transactions"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	"github.com/unimart-ng/marketplace-backend/pkg/bootstrap"
	"github.com/unimart-ng/marketplace-backend/pkg/db"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/stripe"
)

func main() {
	app, err := bootstrap.Init("cron-worker")
	if err != nil {
		app.Exit("failed to load config", err)
	}
	app.Exit("cron worker stopped unexpectedly", run(app))
}

func run(app *bootstrap.App) error {
	ctx, stop := app.SignalContext()
	defer stop()
	cfg, logg := app.Config, app.Logger

	dbClient, err := app.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := app.Redis(ctx)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(app, dbClient)
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockEnv(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:       logg,
		Registry:     cron.NewRegistry(jobs...),
		Lock:         lock,
		Metrics:      metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval:     cfg.Cron.Interval,
		CycleTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

// buildJobs wires subscription expiry, pending-order expiry and outbox
// retention, in that run order.
func buildJobs(app *bootstrap.App, dbClient *db.Client) ([]cron.Job, error) {
	cfg, logg := app.Config, app.Logger

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap stripe: %w", err)
	}
	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Transactions: transactions.NewRepository(dbClient.DB()),
		Outbox:       outboxService,
		Metrics:      engineMetrics,
		Logger:       logg,
	})
	if err != nil {
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Vendors:           vendors.NewRepository(dbClient.DB()),
		Payments:          settlementService,
		Gateway:           gateway,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Metrics:           engineMetrics,
		Logger:            logg,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription service: %w", err)
	}

	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:    logg,
		Suspender: subscriptionService,
		BatchSize: cfg.Cron.ExpiryBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription expiry job: %w", err)
	}
	orderTTLJob, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger: logg,
		DB:     dbClient,
		Orders: orders.NewRepository(dbClient.DB()),
		Outbox: outboxService,
		TTL:    cfg.Cron.PendingOrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("order ttl job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Cron.OutboxRetention,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	return []cron.Job{expiryJob, orderTTLJob, retentionJob}, nil
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
