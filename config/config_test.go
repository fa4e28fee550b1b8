package config_test

import (
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/pgadmin-seed/config"
)

func envMap(m map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func noEnv() config.LookupFunc { return envMap(nil) }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load([]string{"-env-file", ""}, noEnv(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, config.Default(), *cfg)
	assert.Equal(t, "/var/lib/pgadmin/pgadmin4.db", cfg.Database)
	assert.Equal(t, "sqlite3", cfg.Driver)
	assert.Equal(t, int64(1), cfg.Profile.ServerGroupID)
	assert.Equal(t, 5432, cfg.Profile.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Precedence(t *testing.T) {
	yamlPath := writeFile(t, "seed.yaml", `
driver: sqlite
database: /from/yaml.db
log_level: warn
server:
  email: yaml@example.com
  name: From YAML
  host: yaml-host
  port: 6432
`)
	dotenvPath := writeFile(t, ".env", "PGADMIN_SEED_NAME=From Dotenv\nPGADMIN_SEED_HOST=dotenv-host\n")

	env := envMap(map[string]string{
		config.EnvHost:     "env-host",
		config.EnvPassword: "env-secret",
	})
	args := []string{
		"-config", yamlPath,
		"-env-file", dotenvPath,
		"-port", "7000",
	}

	cfg, err := config.Load(args, env, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Driver, "yaml overrides default")
	assert.Equal(t, "/from/yaml.db", cfg.Database)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "yaml@example.com", cfg.Profile.Email)
	assert.Equal(t, "From Dotenv", cfg.Profile.Name, "dotenv overrides yaml")
	assert.Equal(t, "env-host", cfg.Profile.Host, "environment overrides dotenv")
	assert.Equal(t, "env-secret", cfg.Profile.Password)
	assert.Equal(t, 7000, cfg.Profile.Port, "flag overrides yaml")
	assert.Equal(t, config.DefaultMaintenanceDB, cfg.Profile.MaintenanceDB, "unset fields keep defaults")
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	yamlPath := writeFile(t, "seed.yaml", "server:\n  name: Env Selected\n")
	cfg, err := config.Load([]string{"-env-file", ""}, envMap(map[string]string{
		config.EnvConfigFile: yamlPath,
	}), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "Env Selected", cfg.Profile.Name)
}

func TestLoad_ConfigDatabaseURI(t *testing.T) {
	uri := "postgresql://pgadmin:secret@db:5432/pgadmin"
	cfg, err := config.Load([]string{"-env-file", ""}, envMap(map[string]string{
		config.EnvConfigDBURI: uri,
	}), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, uri, cfg.Database)

	cfg, err = config.Load([]string{"-env-file", "", "-driver", "pgx"}, envMap(map[string]string{
		config.EnvConfigDBURI: uri,
	}), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Driver, "explicit driver wins over CONFIG_DATABASE_URI")
}

func TestLoad_ConfigDatabaseURIDialectSuffix(t *testing.T) {
	cfg, err := config.Load([]string{"-env-file", ""}, envMap(map[string]string{
		config.EnvConfigDBURI: "postgresql+psycopg://pgadmin:secret@db/pgadmin",
	}), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "postgresql://pgadmin:secret@db/pgadmin", cfg.Database)
}

func TestLoad_ConfigDatabaseURISchemes(t *testing.T) {
	cases := []struct {
		uri      string
		driver   string
		database string
	}{
		{"postgres://pgadmin@db/pgadmin", "postgres", "postgres://pgadmin@db/pgadmin"},
		{"sqlite:////var/lib/pgadmin/pgadmin4.db", "sqlite3", "/var/lib/pgadmin/pgadmin4.db"},
		{"sqlite:///pgadmin4.db", "sqlite3", "pgadmin4.db"},
	}
	for _, tc := range cases {
		t.Run(tc.uri, func(t *testing.T) {
			cfg, err := config.Load([]string{"-env-file", ""}, envMap(map[string]string{
				config.EnvConfigDBURI: tc.uri,
			}), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tc.driver, cfg.Driver)
			assert.Equal(t, tc.database, cfg.Database)
		})
	}

	for _, uri := range []string{"mysql://root@db/pgadmin", "sqlite://", "not a uri"} {
		_, err := config.Load([]string{"-env-file", ""}, envMap(map[string]string{
			config.EnvConfigDBURI: uri,
		}), io.Discard)
		assert.Error(t, err, uri)
	}
}

func TestLoad_FlagsOnly(t *testing.T) {
	args := []string{
		"-env-file", "",
		"-db", "/tmp/pgadmin4.db",
		"-email", "ops@example.com",
		"-group", "2",
		"-name", "Production",
		"-host", "pg.internal",
		"-port", "5433",
		"-maintenance-db", "postgres",
		"-username", "admin",
		"-password", "hunter2",
		"-log-level", "debug",
		"-metrics-file", "/tmp/seed.prom",
	}
	cfg, err := config.Load(args, noEnv(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, config.Profile{
		Email:         "ops@example.com",
		ServerGroupID: 2,
		Name:          "Production",
		Host:          "pg.internal",
		Port:          5433,
		MaintenanceDB: "postgres",
		Username:      "admin",
		Password:      "hunter2",
	}, cfg.Profile)
	assert.Equal(t, "/tmp/pgadmin4.db", cfg.Database)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/seed.prom", cfg.MetricsFile)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad port flag", []string{"-port", "70000"}, nil},
		{"port above pgAdmin limit", []string{"-port", "65535"}, nil},
		{"empty email", []string{"-email", ""}, nil},
		{"zero group", []string{"-group", "0"}, nil},
		{"bad port env", nil, map[string]string{config.EnvPort: "abc"}},
		{"bad log level", []string{"-log-level", "loud"}, nil},
		{"unknown flag", []string{"-nope"}, nil},
		{"positional args", []string{"extra"}, nil},
		{"missing explicit env file", []string{"-env-file", "/does/not/exist.env"}, nil},
		{"missing yaml", []string{"-config", "/does/not/exist.yaml"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := tc.args
			if len(args) == 0 || args[0] != "-env-file" {
				args = append([]string{"-env-file", ""}, args...)
			}
			_, err := config.Load(args, envMap(tc.env), io.Discard)
			require.Error(t, err)
		})
	}
}

func TestLoad_HighestPortAccepted(t *testing.T) {
	cfg, err := config.Load([]string{"-env-file", "", "-port", "65534"}, noEnv(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, config.MaxPort, cfg.Profile.Port)
}

func TestLoad_UsageErrors(t *testing.T) {
	for _, args := range [][]string{{"-nope"}, {"-port", "x"}, {"-env-file", "", "extra"}} {
		_, err := config.Load(args, noEnv(), io.Discard)
		assert.ErrorIs(t, err, config.ErrUsage, "args %v", args)
	}

	_, err := config.Load([]string{"-env-file", "", "-port", "0"}, noEnv(), io.Discard)
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrUsage)
}

func TestLoad_Help(t *testing.T) {
	_, err := config.Load([]string{"-h"}, noEnv(), io.Discard)
	require.True(t, errors.Is(err, flag.ErrHelp))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Default()
	cfg.Profile.Host = ""
	cfg.Profile.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host")
	assert.Contains(t, err.Error(), "port")
}
