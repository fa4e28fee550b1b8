package db

// Pluggable driver adapters. Each adapter knows its database/sql driver
// name, how to build a DSN from structured options, and which placeholder
// style it speaks. The database/sql drivers themselves self-register when
// the binary blank-imports them.

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver interface
// ─────────────────────────────────────────────────────────────────────────────

// Driver encapsulates database-specific behaviour.
type Driver interface {
	// Name returns the name passed to sql.Register, e.g. "sqlite3", "pgx".
	Name() string

	// DSN converts structured options into a driver DSN string.
	DSN(opts DriverOptions) (string, error)

	// Bind returns the placeholder style the driver expects.
	Bind() BindStyle
}

// DriverOptions carries connection parameters in a driver-agnostic form.
type DriverOptions struct {
	// URL is used verbatim when set (e.g. pgAdmin's CONFIG_DATABASE_URI).
	URL string

	Host     string
	Port     int
	User     string
	Password string
	// Database is the database name, or the file path for SQLite.
	Database string
	SSLMode  string

	// Extra holds driver-specific key/value parameters.
	Extra map[string]string
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver adds a Driver to the registry, replacing any driver
// registered under the same name.
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name or an error.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("pgadmin-seed/db: driver %q not registered", name)
	}
	return d, nil
}

// DriverNames lists the registered drivers in sorted order.
func DriverNames() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenWithDriver opens a DB using a registered Driver and structured options.
//
//	database, err := db.OpenWithDriver("sqlite3", db.DriverOptions{
//	    Database: "/var/lib/pgadmin/pgadmin4.db",
//	}, db.Config{MaxOpenConns: 1})
func OpenWithDriver(driverName string, driverOpts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}

	dsn, err := drv.DSN(driverOpts)
	if err != nil {
		return nil, fmt.Errorf("pgadmin-seed/db: DSN construction failed: %w", err)
	}

	cfg.DriverName = drv.Name()
	cfg.DSN = dsn
	cfg.Bind = drv.Bind()
	return Open(cfg)
}

// ─────────────────────────────────────────────────────────────────────────────
// SQLite adapters
// ─────────────────────────────────────────────────────────────────────────────

// SQLiteDriver is the mattn/go-sqlite3 adapter (cgo).
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string    { return "sqlite3" }
func (SQLiteDriver) Bind() BindStyle { return BindQuestion }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.URL != "" {
		return o.URL, nil
	}
	if o.Database == "" {
		return "", fmt.Errorf("sqlite3 driver: Database (file path) is required")
	}
	params := map[string]string{"_busy_timeout": "5000"}
	for k, v := range o.Extra {
		params[k] = v
	}
	return o.Database + "?" + encodeParams(params), nil
}

// ModerncSQLiteDriver is the modernc.org/sqlite adapter (pure Go).
type ModerncSQLiteDriver struct{}

func (ModerncSQLiteDriver) Name() string    { return "sqlite" }
func (ModerncSQLiteDriver) Bind() BindStyle { return BindQuestion }

func (ModerncSQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.URL != "" {
		return o.URL, nil
	}
	if o.Database == "" {
		return "", fmt.Errorf("sqlite driver: Database (file path) is required")
	}
	dsn := "file:" + o.Database + "?_pragma=busy_timeout(5000)"
	if len(o.Extra) > 0 {
		dsn += "&" + encodeParams(o.Extra)
	}
	return dsn, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL adapters
// ─────────────────────────────────────────────────────────────────────────────

// PostgresDriver is the lib/pq adapter.
type PostgresDriver struct{}

func (PostgresDriver) Name() string                        { return "postgres" }
func (PostgresDriver) Bind() BindStyle                     { return BindDollar }
func (PostgresDriver) DSN(o DriverOptions) (string, error) { return postgresDSN(o) }

// PgxDriver is the jackc/pgx/v5/stdlib adapter.
type PgxDriver struct{}

func (PgxDriver) Name() string                        { return "pgx" }
func (PgxDriver) Bind() BindStyle                     { return BindDollar }
func (PgxDriver) DSN(o DriverOptions) (string, error) { return postgresDSN(o) }

// postgresDSN builds a key/value connection string understood by both lib/pq
// and pgx.
func postgresDSN(o DriverOptions) (string, error) {
	if o.URL != "" {
		return o.URL, nil
	}
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("postgres driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		"host=" + quoteKV(o.Host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteKV(o.Database),
		"sslmode=" + quoteKV(sslMode),
	}
	if o.User != "" {
		parts = append(parts, "user="+quoteKV(o.User))
	}
	if o.Password != "" {
		parts = append(parts, "password="+quoteKV(o.Password))
	}
	keys := make([]string, 0, len(o.Extra))
	for k := range o.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteKV(o.Extra[k]))
	}
	return strings.Join(parts, " "), nil
}

// quoteKV quotes a libpq keyword value when it is empty or contains spaces,
// quotes or backslashes.
func quoteKV(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func encodeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}

// IsSQLite reports whether driverName is one of the SQLite adapters.
func IsSQLite(driverName string) bool {
	return driverName == SQLiteDriver{}.Name() || driverName == ModerncSQLiteDriver{}.Name()
}

func init() {
	RegisterDriver(SQLiteDriver{})
	RegisterDriver(ModerncSQLiteDriver{})
	RegisterDriver(PostgresDriver{})
	RegisterDriver(PgxDriver{})
}
