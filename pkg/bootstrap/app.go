// Package bootstrap holds the startup and shutdown steps shared by the
// binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
	"github.com/unimart-ng/marketplace-backend/pkg/db"
	"github.com/unimart-ng/marketplace-backend/pkg/instance"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/migrate"
	"github.com/unimart-ng/marketplace-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// App is a loaded binary: its config, its logger and the resources to
// release on the way out.
type App struct {
	Kind    string
	Config  *config.Config
	Logger  *logger.Logger
	closers []closer
}

// Init reads .env when present, loads config and builds the leveled logger.
// On error the returned App still carries a default logger for reporting.
func Init(kind string) (*App, error) {
	app := &App{Kind: kind, Logger: logger.New(logger.Options{ServiceName: kind})}

	if err := godotenv.Load(); err != nil {
		app.Logger.Debug(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return app, err
	}
	cfg.Service.Kind = kind

	app.Config = cfg
	app.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return app, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM and tags every entry
// logged through it with the process identity.
func (a *App) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"instance":     instance.GetID(),
		"service_kind": a.Kind,
	}
	if a.Config != nil {
		fields["env"] = a.Config.App.Env
	}
	return a.Logger.WithFields(ctx, fields), stop
}

// OnClose registers fn to run at Close. Hooks run last-registered first.
func (a *App) OnClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close runs every hook, logs each failure and returns them combined.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.Logger.Error(a.Logger.WithField(context.Background(), "resource", c.name), "close failed", err)
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errs
}

// Database connects, registers the pool for Close and applies dev
// migrations when enabled.
func (a *App) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, a.Config.DB, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a.OnClose("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, a.Config, a.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (a *App) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, a.Config.Redis, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	a.OnClose("redis", client.Close)
	return client, nil
}

// Exit closes the app and terminates the process, non-zero when err or a
// close hook failed.
func (a *App) Exit(msg string, err error) {
	if err != nil {
		a.Logger.Error(context.Background(), msg, err)
	}
	if closeErr := a.Close(); err != nil || closeErr != nil {
		os.Exit(1)
	}
}
