// Command migrate manages the fixture pgAdmin configuration schema embedded
// in package migrations, for development databases.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/Skryldev/pgadmin-seed/migrations"
)

var errUsage = errors.New("usage")

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	flag.Usage = usage
	flag.Parse()

	err := run(flag.Args(), os.Getenv("DATABASE_URL"), os.Stdin, os.Stdout)
	switch {
	case errors.Is(err, errUsage):
		usage()
		os.Exit(2)
	case err != nil:
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// run executes one migrate command. It returns instead of exiting so the
// migrate instance is always closed.
func run(args []string, dbURL string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	if dbURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	m, err := migrations.New(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	m.Log = &migrateLogger{}

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up failed: %w", err)
		}
		slog.Info("migrations: up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("down failed: %w", err)
		}
		slog.Info("migrations: down completed", "steps", steps)

	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("version failed: %w", err)
		}
		fmt.Fprintf(out, "version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		slog.Info("migrations: forced", "version", v)

	case "drop":
		fmt.Fprintln(out, "WARNING: drop removes the user, servergroup and server tables. Type 'yes' to confirm:")
		var confirm string
		_, _ = fmt.Fscanln(in, &confirm)
		if confirm != "yes" {
			fmt.Fprintln(out, "aborted")
			return nil
		}
		if err := m.Drop(); err != nil {
			return fmt.Errorf("drop failed: %w", err)
		}
		slog.Info("migrations: all tables dropped")

	default:
		return errUsage
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}
func (l *migrateLogger) Verbose() bool { return false }

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (bypass dirty state)
  drop         Drop all tables (dev only)

Environment:
  DATABASE_URL   Required. sqlite3://path/to/pgadmin4.db or postgres://...`)
}
