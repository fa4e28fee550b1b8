// Package migrations embeds a fixture copy of the pgAdmin configuration
// tables the seeder touches ("user", servergroup, server). pgAdmin owns the
// real schema; these exist for local development databases and tests.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Dir returns the embedded migration directory matching the database URL
// scheme: "sqlite3://" or "postgres://" / "postgresql://".
func Dir(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		return "sqlite", nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", nil
	}
	return "", fmt.Errorf("migrations: unsupported database URL %q", redact(databaseURL))
}

// New returns a migrate instance reading the embedded migrations for
// databaseURL. The caller must Close it.
func New(databaseURL string) (*migrate.Migrate, error) {
	dir, err := Dir(databaseURL)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. Already up to date is not an error.
func Up(databaseURL string) error {
	m, err := New(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// SQLiteURL turns a file path into the URL golang-migrate expects.
func SQLiteURL(path string) string {
	return "sqlite3://" + path
}

// redact hides everything between the scheme and the host so passwords in
// connection URLs never reach logs.
func redact(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
