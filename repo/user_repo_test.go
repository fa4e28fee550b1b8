package repo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/migrations"
	"github.com/Skryldev/pgadmin-seed/repo"
	_ "github.com/mattn/go-sqlite3"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test fixture
// ─────────────────────────────────────────────────────────────────────────────

// newTestDB opens a migrated copy of the pgAdmin configuration schema.
func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pgadmin4.db")
	if err := migrations.Up(migrations.SQLiteURL(path)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	database, err := db.OpenWithDriver("sqlite3", db.DriverOptions{Database: path}, db.Config{
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// addUser inserts a user plus a "Servers" group and returns the user id.
func addUser(t *testing.T, database *db.DB, email string) int64 {
	t.Helper()
	ctx := context.Background()

	res, err := database.Exec(ctx, `INSERT INTO "user" (email, username) VALUES (?, ?)`, email, email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	if _, err := database.Exec(ctx, `INSERT INTO servergroup (user_id, name) VALUES (?, 'Servers')`, id); err != nil {
		t.Fatalf("insert servergroup: %v", err)
	}
	return id
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByEmail
// ─────────────────────────────────────────────────────────────────────────────

func TestUserRepo_GetByEmail(t *testing.T) {
	database := newTestDB(t)
	id := addUser(t, database, "alice@repo.com")

	u, err := repo.NewUserRepo(database).GetByEmail(context.Background(), "alice@repo.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u.ID != id {
		t.Errorf("ID: want %d, got %d", id, u.ID)
	}
	if u.Email != "alice@repo.com" {
		t.Errorf("Email: want alice@repo.com, got %q", u.Email)
	}
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	database := newTestDB(t)
	addUser(t, database, "alice@repo.com")

	_, err := repo.NewUserRepo(database).GetByEmail(context.Background(), "ghost@repo.com")
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepo_GetByEmail_IsCaseSensitive(t *testing.T) {
	database := newTestDB(t)
	addUser(t, database, "alice@repo.com")

	_, err := repo.NewUserRepo(database).GetByEmail(context.Background(), "Alice@Repo.com")
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
}

func TestUserRepo_GetByEmail_DuplicatePicksLowestID(t *testing.T) {
	database := newTestDB(t)
	first := addUser(t, database, "dup@repo.com")
	addUser(t, database, "dup@repo.com")

	u, err := repo.NewUserRepo(database).GetByEmail(context.Background(), "dup@repo.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u.ID != first {
		t.Errorf("ID: want %d, got %d", first, u.ID)
	}
}

func TestUserRepo_InsideTransaction(t *testing.T) {
	database := newTestDB(t)
	id := addUser(t, database, "tx@repo.com")
	ctx := context.Background()

	err := database.ExecTx(ctx, func(tx *db.Tx) error {
		u, err := repo.NewUserRepo(tx).GetByEmail(ctx, "tx@repo.com")
		if err != nil {
			return err
		}
		if u.ID != id {
			t.Errorf("ID: want %d, got %d", id, u.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExecTx: %v", err)
	}
}
