package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/unimart-ng/marketplace-backend/pkg/bootstrap"
	"github.com/unimart-ng/marketplace-backend/pkg/db"
	"github.com/unimart-ng/marketplace-backend/pkg/logger"
	"github.com/unimart-ng/marketplace-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	if err := offline(opts); !errors.Is(err, errNeedsDB) {
		exitOn(err)
		return
	}

	app, err := bootstrap.Init("migrate")
	if err != nil {
		app.Exit("failed to load config", err)
	}
	ctx := app.Logger.WithField(context.Background(), "cmd", opts.cmd)

	// no dev auto-run here: -cmd alone decides what gets applied
	dbClient, err := db.New(ctx, app.Config.DB, app.Logger)
	if err != nil {
		app.Exit("database unavailable", err)
	}
	app.OnClose("database", dbClient.Close)

	app.Exit("migration failed", online(ctx, opts, dbClient, app.Logger))
}

var errNeedsDB = errors.New("command needs a database")

// offline handles the commands that only touch files.
func offline(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("-name is required for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateFS(migrate.Source(opts.dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}
	return errNeedsDB
}

func online(ctx context.Context, opts options, client *db.Client, logg *logger.Logger) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := migrate.New(sqlDB, migrate.Source(opts.dir), logg)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		pending, err := m.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d pending migration(s)\n", pending)
		return nil
	case "version":
		if opts.version == "" {
			return fmt.Errorf("-version is required for version")
		}
		return m.ToVersion(ctx, opts.version)
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
