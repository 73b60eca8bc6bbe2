package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unimart-ng/marketplace-backend/api/routes"
	"github.com/unimart-ng/marketplace-backend/internal/checkout"
	"github.com/unimart-ng/marketplace-backend/internal/orders"
	"github.com/unimart-ng/marketplace-backend/internal/payments"
	product "github.com/unimart-ng/marketplace-backend/internal/products"
	"github.com/unimart-ng/marketplace-backend/internal/settlement"
	"github.com/unimart-ng/marketplace-backend/internal/subscriptions"
	"github.com/unimart-ng/marketplace-backend/internal/transactions"
	"github.com/unimart-ng/marketplace-backend/internal/vendors"
	stripewebhook "github.com/unimart-ng/marketplace-backend/internal/webhooks/stripe"
	"github.com/unimart-ng/marketplace-backend/pkg/bootstrap"
	"github.com/unimart-ng/marketplace-backend/pkg/db"
	"github.com/unimart-ng/marketplace-backend/pkg/env"
	"github.com/unimart-ng/marketplace-backend/pkg/metrics"
	"github.com/unimart-ng/marketplace-backend/pkg/outbox"
	"github.com/unimart-ng/marketplace-backend/pkg/redis"
	"github.com/unimart-ng/marketplace-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app, err := bootstrap.Init("api")
	if err != nil {
		app.Exit("failed to load config", err)
	}
	app.Exit("api server stopped unexpectedly", run(app))
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
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("bootstrap stripe: %w", err)
	}

	params, err := routeParams(app, dbClient, redisClient, stripeClient)
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler:      routes.NewRouter(params),
	}

	ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "stripe_env": stripeClient.Environment()})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// routeParams builds the services behind the HTTP surface.
func routeParams(app *bootstrap.App, dbClient *db.Client, redisClient *redis.Client, stripeClient *stripe.Client) (routes.Params, error) {
	cfg, logg := app.Config, app.Logger

	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		return routes.Params{}, fmt.Errorf("payment gateway: %w", err)
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	vendorRepo := vendors.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Transactions: transactions.NewRepository(dbClient.DB()),
		Outbox:       outboxService,
		Metrics:      engineMetrics,
		Logger:       logg,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("settlement service: %w", err)
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Vendors:           vendorRepo,
		Payments:          settlementService,
		Gateway:           gateway,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Metrics:           engineMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("subscription service: %w", err)
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Products:          productRepo,
		Vendors:           vendorRepo,
		Orders:            orders.NewRepository(dbClient.DB()),
		Settlement:        settlementService,
		Gateway:           gateway,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("checkout service: %w", err)
	}
	productService, err := product.NewService(productRepo, vendorRepo, nil)
	if err != nil {
		return routes.Params{}, fmt.Errorf("product service: %w", err)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Subscriptions: subscriptionService,
		Checkout:      checkoutService,
		Logger:        logg,
	})
	if err != nil {
		return routes.Params{}, fmt.Errorf("webhook service: %w", err)
	}
	webhookGuard, err := stripewebhook.NewEventDedupe(redisClient, cfg.Webhooks.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		return routes.Params{}, fmt.Errorf("webhook dedupe: %w", err)
	}

	return routes.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		RateLimiter:   redisClient,
		Idempotency:   redisClient,
		Vendors:       vendorRepo,
		Subscriptions: subscriptionService,
		Products:      productService,
		Checkout:      checkoutService,
		Reports:       settlementService,
		Webhooks:      webhookService,
		SigningClient: stripeClient,
		WebhookGuard:  webhookGuard,
		Gatherer:      prometheus.DefaultGatherer,
	}, nil
}
