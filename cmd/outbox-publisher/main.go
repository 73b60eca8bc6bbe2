package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unimart-ng/marketplace-backend/pkg/bootstrap"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox/registry"
	"github.com/unimart-ng/marketplace-backend/pkg/pubsub"
)

func main() {
	app, err := bootstrap.Init("outbox-publisher")
	if err != nil {
		app.Exit("failed to load config", err)
	}
	app.Exit("outbox publisher stopped unexpectedly", run(app))
}

func run(app *bootstrap.App) error {
	ctx, stop := app.SignalContext()
	defer stop()
	cfg, logg := app.Config, app.Logger

	dbClient, err := app.Database(ctx)
	if err != nil {
		return err
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, eventRegistry.Topics(), logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	app.OnClose("pubsub", pubsubClient.Close)

	relay, err := NewRelay(RelayParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		PubSub:      pubsubClient,
		Outbox:      outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Registry:    eventRegistry,
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("outbox relay: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}
