// Package config resolves the seed profile: which pgAdmin configuration
// database to open, which user to look up, and the server connection the
// seeder registers for that user.
//
// Sources are applied lowest to highest: built-in template defaults, an
// optional YAML file, an optional .env file, the process environment, and
// finally command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Skryldev/pgadmin-seed/models"
)

// Template defaults. They mirror the placeholder values operators are
// expected to replace before the first real run.
const (
	DefaultDriver        = "sqlite3"
	DefaultDatabase      = "/var/lib/pgadmin/pgadmin4.db"
	DefaultEmail         = "your-email@example.com"
	DefaultServerGroupID = models.DefaultServerGroupID
	DefaultServerName    = "Your Server Name"
	DefaultHost          = "your-postgres-host"
	DefaultPort          = 5432
	DefaultMaintenanceDB = "your-database-name"
	DefaultUsername      = "your-username"
	DefaultPassword      = "your-password"
	DefaultEnvFile       = ".env"

	// MaxPort matches the CHECK constraint on pgAdmin's server.port column.
	MaxPort = 65534
)

// Environment variable names.
const (
	EnvConfigFile    = "PGADMIN_SEED_CONFIG"
	EnvDriver        = "PGADMIN_SEED_DRIVER"
	EnvDatabase      = "PGADMIN_SEED_DB"
	EnvConfigDBURI   = "CONFIG_DATABASE_URI" // pgAdmin's own external config DB setting
	EnvEmail         = "PGADMIN_SEED_EMAIL"
	EnvServerGroup   = "PGADMIN_SEED_GROUP"
	EnvServerName    = "PGADMIN_SEED_NAME"
	EnvHost          = "PGADMIN_SEED_HOST"
	EnvPort          = "PGADMIN_SEED_PORT"
	EnvMaintenanceDB = "PGADMIN_SEED_MAINTENANCE_DB"
	EnvUsername      = "PGADMIN_SEED_USERNAME"
	EnvPassword      = "PGADMIN_SEED_PASSWORD"
	EnvLogLevel      = "PGADMIN_SEED_LOG_LEVEL"
	EnvMetricsFile   = "PGADMIN_SEED_METRICS_FILE"
)

// ErrUsage marks command-line errors, as opposed to bad configuration
// values.
var ErrUsage = errors.New("config: usage")

// Profile is everything the seeder writes, plus the email used to find the
// owning user.
type Profile struct {
	Email         string `yaml:"email"`
	ServerGroupID int64  `yaml:"servergroup_id"`
	Name          string `yaml:"name"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaintenanceDB string `yaml:"maintenance_db"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
}

// Config is the resolved configuration for one run.
type Config struct {
	// Driver is a registered db driver name: sqlite3, sqlite, postgres, pgx.
	Driver string `yaml:"driver"`
	// Database is a file path for SQLite drivers, a DSN or URL otherwise.
	Database    string     `yaml:"database"`
	LogLevel    slog.Level `yaml:"-"`
	MetricsFile string     `yaml:"metrics_file"`
	Profile     Profile    `yaml:"server"`
}

// fileConfig is the YAML document shape; log_level is text there.
type fileConfig struct {
	Config   `yaml:",inline"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the template configuration.
func Default() Config {
	return Config{
		Driver:   DefaultDriver,
		Database: DefaultDatabase,
		LogLevel: slog.LevelInfo,
		Profile: Profile{
			Email:         DefaultEmail,
			ServerGroupID: DefaultServerGroupID,
			Name:          DefaultServerName,
			Host:          DefaultHost,
			Port:          DefaultPort,
			MaintenanceDB: DefaultMaintenanceDB,
			Username:      DefaultUsername,
			Password:      DefaultPassword,
		},
	}
}

// LookupFunc reads an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// flagValues holds raw flag input so only explicitly set flags override
// lower-precedence sources.
type flagValues struct {
	configFile, envFile               string
	driver, database                  string
	email, name, host                 string
	maintenanceDB, username, password string
	logLevel, metricsFile             string
	group                             int64
	port                              int
}

// Load parses args and merges every configuration source. Flag usage and
// errors are written to output. flag.ErrHelp is returned unchanged for -h;
// other command-line mistakes wrap ErrUsage.
func Load(args []string, lookup LookupFunc, output io.Writer) (*Config, error) {
	flags := flag.NewFlagSet("pgadmin-seed", flag.ContinueOnError)
	flags.SetOutput(output)

	var fv flagValues
	flags.StringVar(&fv.configFile, "config", "", "YAML profile file (env "+EnvConfigFile+")")
	flags.StringVar(&fv.envFile, "env-file", DefaultEnvFile, "dotenv file read if present")
	flags.StringVar(&fv.driver, "driver", "", "store driver: sqlite3, sqlite, postgres, pgx")
	flags.StringVar(&fv.database, "db", "", "SQLite file path or PostgreSQL DSN")
	flags.StringVar(&fv.email, "email", "", "email of the pgAdmin user owning the server")
	flags.Int64Var(&fv.group, "group", 0, "server group id")
	flags.StringVar(&fv.name, "name", "", "server display name")
	flags.StringVar(&fv.host, "host", "", "PostgreSQL host")
	flags.IntVar(&fv.port, "port", 0, "PostgreSQL port")
	flags.StringVar(&fv.maintenanceDB, "maintenance-db", "", "maintenance database name")
	flags.StringVar(&fv.username, "username", "", "PostgreSQL username")
	flags.StringVar(&fv.password, "password", "", "PostgreSQL password")
	flags.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&fv.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(flags.Args(), " "))
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := Default()

	configFile := fv.configFile
	if !set["config"] {
		if v, ok := lookup(EnvConfigFile); ok {
			configFile = v
		}
	}
	if configFile != "" {
		if err := cfg.mergeYAML(configFile); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotenv(fv.envFile, set["env-file"])
	if err != nil {
		return nil, err
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.mergeEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.mergeFlags(fv, set); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	*c = fc.Config
	if fc.LogLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(fc.LogLevel)); err != nil {
			return fmt.Errorf("config: %s: log_level: %w", path, err)
		}
	}
	return nil
}

// readDotenv loads the dotenv file. A missing default file is fine; a
// missing file the user asked for is not.
func readDotenv(path string, explicit bool) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("config: env file %s: %w", path, err)
	}
	return vars, nil
}

func (c *Config) mergeEnv(env LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}

	// CONFIG_DATABASE_URI is pgAdmin's own SQLAlchemy URI for its config DB.
	if uri, ok := env(EnvConfigDBURI); ok && uri != "" {
		driver, database, err := parseDatabaseURI(uri)
		if err != nil {
			return err
		}
		c.Driver, c.Database = driver, database
	}
	str(EnvDriver, &c.Driver)
	str(EnvDatabase, &c.Database)
	str(EnvEmail, &c.Profile.Email)
	str(EnvServerName, &c.Profile.Name)
	str(EnvHost, &c.Profile.Host)
	str(EnvMaintenanceDB, &c.Profile.MaintenanceDB)
	str(EnvUsername, &c.Profile.Username)
	str(EnvPassword, &c.Profile.Password)
	str(EnvMetricsFile, &c.MetricsFile)

	if v, ok := env(EnvServerGroup); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvServerGroup, err)
		}
		c.Profile.ServerGroupID = n
	}
	if v, ok := env(EnvPort); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvPort, err)
		}
		c.Profile.Port = n
	}
	if v, ok := env(EnvLogLevel); ok && v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: %s: %w", EnvLogLevel, err)
		}
	}
	return nil
}

// parseDatabaseURI maps a SQLAlchemy URI to a driver name and a location.
// A dialect driver suffix such as "+psycopg" is dropped from PostgreSQL
// schemes since libpq-style parsers reject it. sqlite:////abs/path yields
// the absolute path /abs/path.
func parseDatabaseURI(uri string) (driver, database string, err error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "", "", fmt.Errorf("config: %s: %q is not a URI", EnvConfigDBURI, uri)
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	switch base {
	case "postgres", "postgresql":
		return "postgres", base + "://" + rest, nil
	case "sqlite":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return "", "", fmt.Errorf("config: %s: sqlite URI has no file path", EnvConfigDBURI)
		}
		return DefaultDriver, path, nil
	}
	return "", "", fmt.Errorf("config: %s: unsupported scheme %q (want postgresql:// or sqlite://)", EnvConfigDBURI, scheme)
}

func (c *Config) mergeFlags(fv flagValues, set map[string]bool) error {
	if set["driver"] {
		c.Driver = fv.driver
	}
	if set["db"] {
		c.Database = fv.database
	}
	if set["email"] {
		c.Profile.Email = fv.email
	}
	if set["group"] {
		c.Profile.ServerGroupID = fv.group
	}
	if set["name"] {
		c.Profile.Name = fv.name
	}
	if set["host"] {
		c.Profile.Host = fv.host
	}
	if set["port"] {
		c.Profile.Port = fv.port
	}
	if set["maintenance-db"] {
		c.Profile.MaintenanceDB = fv.maintenanceDB
	}
	if set["username"] {
		c.Profile.Username = fv.username
	}
	if set["password"] {
		c.Profile.Password = fv.password
	}
	if set["metrics-file"] {
		c.MetricsFile = fv.metricsFile
	}
	if set["log-level"] {
		if err := c.LogLevel.UnmarshalText([]byte(fv.logLevel)); err != nil {
			return fmt.Errorf("config: -log-level: %w", err)
		}
	}
	return nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Driver == "" {
		errs = append(errs, errors.New("driver must not be empty"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database location must not be empty"))
	}
	if strings.TrimSpace(c.Profile.Email) == "" {
		errs = append(errs, errors.New("user email must not be empty"))
	}
	if strings.TrimSpace(c.Profile.Name) == "" {
		errs = append(errs, errors.New("server name must not be empty"))
	}
	if strings.TrimSpace(c.Profile.Host) == "" {
		errs = append(errs, errors.New("server host must not be empty"))
	}
	if c.Profile.Port < 1 || c.Profile.Port > MaxPort {
		errs = append(errs, fmt.Errorf("server port %d out of range 1-%d", c.Profile.Port, MaxPort))
	}
	if c.Profile.ServerGroupID <= 0 {
		errs = append(errs, fmt.Errorf("server group id %d must be positive", c.Profile.ServerGroupID))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
