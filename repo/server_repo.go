package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/models"
)

// ServerRepository persists pgAdmin server connection profiles.
type ServerRepository interface {
	GetByUserAndName(ctx context.Context, userID int64, name string) (*models.Server, error)
	Insert(ctx context.Context, params models.CreateServerParams) (*models.Server, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type serverRepo struct {
	q db.Querier
}

// NewServerRepo returns a ServerRepository backed by q.
func NewServerRepo(q db.Querier) ServerRepository {
	return &serverRepo{q: q}
}

const (
	serverColumns = `id, user_id, servergroup_id, name, host, port,
		maintenance_db, username, password, save_password`

	sqlGetServerByUserAndName = `
		SELECT ` + serverColumns + `
		FROM   server
		WHERE  user_id = ? AND name = ?
		ORDER  BY id
		LIMIT  1`

	sqlInsertServer = `
		INSERT INTO server (
			user_id, servergroup_id, name, host, port,
			maintenance_db, username, password, save_password
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	sqlCountServersByUser = `
		SELECT COUNT(*) FROM server WHERE user_id = ?`
)

// GetByUserAndName returns the server the user saved under name.
// Returns db.ErrNotFound when no record matches.
func (r *serverRepo) GetByUserAndName(ctx context.Context, userID int64, name string) (*models.Server, error) {
	return scanServer(r.q.QueryRow(ctx, sqlGetServerByUserAndName, userID, name))
}

// Insert creates a server row and returns it with its database-assigned id.
// Uniqueness of (user_id, name) is not checked here; callers look up first.
func (r *serverRepo) Insert(ctx context.Context, p models.CreateServerParams) (*models.Server, error) {
	var id int64
	err := r.q.QueryRow(ctx, sqlInsertServer,
		p.UserID, p.ServerGroupID, p.Name, p.Host, p.Port,
		p.MaintenanceDB, p.Username, p.Password, boolToInt(p.SavePassword),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("repo/server: insert: %w", err)
	}

	return &models.Server{
		ID:            id,
		UserID:        p.UserID,
		ServerGroupID: p.ServerGroupID,
		Name:          p.Name,
		Host:          p.Host,
		Port:          p.Port,
		MaintenanceDB: p.MaintenanceDB,
		Username:      p.Username,
		Password:      p.Password,
		SavePassword:  p.SavePassword,
	}, nil
}

// CountByUser returns how many servers the user owns.
func (r *serverRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sqlCountServersByUser, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo/server: count: %w", err)
	}
	return n, nil
}

// scanServer maps one server row. host, maintenance_db, username and password
// are nullable in pgAdmin's schema.
func scanServer(row *db.Row) (*models.Server, error) {
	var (
		s                                 models.Server
		host, maintDB, username, password sql.NullString
		savePassword                      sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.ServerGroupID, &s.Name, &host, &s.Port,
		&maintDB, &username, &password, &savePassword)
	if err != nil {
		return nil, fmt.Errorf("repo/server: %w", err)
	}
	s.Host = host.String
	s.MaintenanceDB = maintDB.String
	s.Username = username.String
	s.Password = password.String
	s.SavePassword = savePassword.Int64 != 0
	return &s, nil
}

// save_password is an INTEGER column in both SQLite and PostgreSQL pgAdmin
// schemas; lib/pq refuses a bool for it.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ServerRepository = (*serverRepo)(nil)
