package migrations_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/migrations"
)

func TestDir(t *testing.T) {
	cases := map[string]string{
		"sqlite3:///var/lib/pgadmin/pgadmin4.db": "sqlite",
		"postgres://pgadmin:secret@db/pgadmin":   "postgres",
		"postgresql://pgadmin:secret@db/pgadmin": "postgres",
	}
	for url, want := range cases {
		got, err := migrations.Dir(url)
		require.NoError(t, err, url)
		require.Equal(t, want, got, url)
	}

	_, err := migrations.Dir("mysql://root:hunter2@db/pgadmin")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "hunter2")
}

func TestUp_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgadmin4.db")
	url := migrations.SQLiteURL(path)

	require.NoError(t, migrations.Up(url))
	require.NoError(t, migrations.Up(url), "second run must be a no-op")

	d, err := db.OpenWithDriver("sqlite3", db.DriverOptions{Database: path}, db.Config{MaxOpenConns: 1})
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	for _, table := range []string{"user", "servergroup", "server"} {
		var name string
		err := d.QueryRow(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestDown_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgadmin4.db")
	url := migrations.SQLiteURL(path)
	require.NoError(t, migrations.Up(url))

	m, err := migrations.New(url)
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, version)

	require.NoError(t, m.Down())
	_, _, err = m.Version()
	require.True(t, errors.Is(err, migrate.ErrNilVersion), "got %v", err)
}
