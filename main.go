// Command pgadmin-seed registers a PostgreSQL server connection for an
// existing pgAdmin user, identified by email, in pgAdmin's configuration
// database. Running it again with the same profile is a no-op.
//
//	pgadmin-seed -db /var/lib/pgadmin/pgadmin4.db -email dba@example.com \
//	    -name Production -host pg.internal -username admin -password secret
//
// Exactly one outcome line is printed on stdout; logs go to stderr as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skryldev/pgadmin-seed/config"
	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/metrics"
	"github.com/Skryldev/pgadmin-seed/seeder"

	// Blank-import every supported driver so each self-registers with
	// database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	queryTimeout       = 10 * time.Second
	slowQueryThreshold = 200 * time.Millisecond
)

func main() {
	os.Exit(run(os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr))
}

// run is main without the process boundary: it returns the exit status.
func run(args []string, lookup config.LookupFunc, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, lookup, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, config.ErrUsage):
		fmt.Fprintln(stderr, err)
		return exitUsage
	case err != nil:
		fmt.Fprintln(stderr, err)
		return exitError
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	collector := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := seed(ctx, cfg, logger, collector)
	outcome := "error"
	if err == nil {
		outcome = res.Outcome.String()
	}
	collector.RecordOutcome(outcome)
	if cfg.MetricsFile != "" {
		if werr := collector.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Error("write metrics textfile", "path", cfg.MetricsFile, "err", werr)
		}
	}

	if err != nil {
		logger.Error("seed failed", "err", err)
		return exitError
	}
	fmt.Fprintln(stdout, res.Outcome.Message())
	return exitOK
}

// seed opens the configuration database, runs the seeder once and closes
// the connection.
func seed(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (seeder.Result, error) {
	opts := db.DriverOptions{URL: cfg.Database}
	if db.IsSQLite(cfg.Driver) {
		// Opening a missing SQLite file would silently create an empty one.
		if _, err := os.Stat(cfg.Database); err != nil {
			return seeder.Result{}, fmt.Errorf("pgadmin configuration database: %w", err)
		}
		opts = db.DriverOptions{Database: cfg.Database}
	}

	database, err := db.OpenWithDriver(cfg.Driver, opts, db.Config{
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		DefaultTimeout: queryTimeout,
		Hooks: []db.Hook{
			db.NewLogHook(db.LogHookConfig{
				Logger:             logger,
				SlowQueryThreshold: slowQueryThreshold,
			}),
			db.NewMetricsHook(collector),
		},
	})
	if err != nil {
		return seeder.Result{}, err
	}
	defer database.Close()

	logger.Debug("connected", "driver", cfg.Driver, "bind", database.BindStyle().String())
	return seeder.New(database, cfg.Profile, logger).Run(ctx)
}
