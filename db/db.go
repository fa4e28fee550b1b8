// Package db is the SQL-first data-access layer used to talk to a pgAdmin
// configuration database. It is NOT an ORM: every statement is explicit and
// written with "?" placeholders, rebound per driver before execution.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config holds all options for opening and managing the connection pool.
type Config struct {
	// DSN is the driver-specific data-source name.
	DSN string

	// DriverName is "sqlite3", "sqlite", "postgres", or "pgx".
	DriverName string

	// Bind selects the placeholder style. BindAuto resolves it from the
	// registered Driver for DriverName.
	Bind BindStyle

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Default statement timeout applied when no deadline is set on the
	// context. Zero means no default timeout.
	DefaultTimeout time.Duration

	// Hooks executed around every statement (logging, metrics).
	// Nil entries are skipped.
	Hooks []Hook
}

// ─────────────────────────────────────────────────────────────────────────────
// DB: the central type
// ─────────────────────────────────────────────────────────────────────────────

// DB is a thin wrapper around *sql.DB that adds placeholder rebinding, hook
// dispatch, unified error mapping, and transaction management.
//
// All methods accept a context.Context so callers control timeouts and
// cancellation.
type DB struct {
	sqldb  *sql.DB
	cfg    Config
	hooks  hookChain
	errMap ErrorMapper
}

// Open opens the database described by cfg and verifies connectivity with Ping.
// Callers are responsible for calling Close().
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgadmin-seed/db: DSN must not be empty")
	}
	if cfg.DriverName == "" {
		return nil, fmt.Errorf("pgadmin-seed/db: DriverName must not be empty")
	}

	sqldb, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgadmin-seed/db: open: %w", err)
	}

	d := Wrap(sqldb, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("pgadmin-seed/db: ping: %w", d.mapErr(err))
	}

	return d, nil
}

// Wrap adopts an already opened *sql.DB. Pool settings from cfg are applied;
// DSN is ignored and no ping is performed.
func Wrap(sqldb *sql.DB, cfg Config) *DB {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.Bind == BindAuto {
		cfg.Bind = bindFor(cfg.DriverName)
	}

	return &DB{
		sqldb:  sqldb,
		cfg:    cfg,
		hooks:  newHookChain(cfg.Hooks),
		errMap: DefaultErrorMapper(),
	}
}

// Raw returns the underlying *sql.DB.
func (d *DB) Raw() *sql.DB { return d.sqldb }

// BindStyle reports the placeholder style statements are rebound to.
func (d *DB) BindStyle() BindStyle { return d.cfg.Bind }

// Close closes all pooled connections. Safe to call multiple times.
func (d *DB) Close() error { return d.sqldb.Close() }

// Ping verifies that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withDefaultTimeout(ctx)
	defer cancel()
	return d.mapErr(d.sqldb.PingContext(ctx))
}

// ─────────────────────────────────────────────────────────────────────────────
// Query execution helpers
// ─────────────────────────────────────────────────────────────────────────────

// Exec executes a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := d.withDefaultTimeout(ctx)
	defer cancel()
	query = Rebind(d.cfg.Bind, query)
	start := time.Now()
	d.hooks.Before(ctx, query, args)
	res, err := d.sqldb.ExecContext(ctx, query, args...)
	err = d.mapErr(err)
	d.hooks.After(ctx, query, args, time.Since(start), err)
	return res, err
}

// Query executes a statement that returns rows.
// The caller MUST close the returned *Rows.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	ctx, cancel := d.withDefaultTimeout(ctx)
	query = Rebind(d.cfg.Bind, query)
	start := time.Now()
	d.hooks.Before(ctx, query, args)
	rows, err := d.sqldb.QueryContext(ctx, query, args...)
	err = d.mapErr(err)
	d.hooks.After(ctx, query, args, time.Since(start), err)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Rows{Rows: rows, cancel: cancel}, nil
}

// QueryRow executes a statement expected to return at most one row.
// ErrNotFound is returned from Scan when no row matches. Hooks run when
// Scan completes, since driver errors may only surface there.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	ctx, cancel := d.withDefaultTimeout(ctx)
	query = Rebind(d.cfg.Bind, query)
	start := time.Now()
	d.hooks.Before(ctx, query, args)
	return &Row{
		raw:    d.sqldb.QueryRowContext(ctx, query, args...),
		errMap: d.errMap,
		hooks:  d.hooks,
		ctx:    ctx,
		query:  query,
		args:   args,
		start:  start,
		cancel: cancel,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

// withDefaultTimeout bounds ctx by DefaultTimeout unless it already carries
// a deadline. The returned cancel func is never nil.
func (d *DB) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.DefaultTimeout == 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.DefaultTimeout)
}

func (d *DB) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return d.errMap.Map(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Row: wraps *sql.Row to translate errors uniformly
// ─────────────────────────────────────────────────────────────────────────────

// Row wraps *sql.Row and maps errors through the unified error mapper.
type Row struct {
	raw    *sql.Row
	errMap ErrorMapper

	hooks  hookChain
	ctx    context.Context
	query  string
	args   []any
	start  time.Time
	cancel context.CancelFunc
	done   bool
}

// Scan copies columns from the matched row into dest.
// ErrNotFound is returned when no row was found; hooks see that case as a
// successful statement.
func (r *Row) Scan(dest ...any) error {
	err := r.raw.Scan(dest...)
	if err != nil {
		err = r.errMap.Map(err)
	}
	if r.done {
		return err
	}
	r.done = true
	if r.cancel != nil {
		r.cancel()
	}

	hookErr := err
	if errors.Is(err, ErrNotFound) {
		hookErr = nil
	}
	r.hooks.After(r.ctx, r.query, r.args, time.Since(r.start), hookErr)
	return err
}

// Rows wraps *sql.Rows; Close also releases the statement's default timeout.
type Rows struct {
	*sql.Rows
	cancel context.CancelFunc
}

// Close closes the result set.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}
