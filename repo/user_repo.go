package repo

import (
	"context"
	"fmt"

	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/models"
)

// UserRepository reads pgAdmin users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// userRepo is the production implementation backed by a db.Querier.
type userRepo struct {
	q db.Querier
}

// NewUserRepo returns a UserRepository backed by q.
// q can be a *db.DB or *db.Tx.
func NewUserRepo(q db.Querier) UserRepository {
	return &userRepo{q: q}
}

// "user" is reserved in PostgreSQL, so the table name is always quoted.
const sqlGetUserByEmail = `
	SELECT id, email
	FROM   "user"
	WHERE  email = ?
	ORDER  BY id
	LIMIT  1`

// GetByEmail returns the first user with the given email.
// Returns db.ErrNotFound when no record matches.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := r.q.QueryRow(ctx, sqlGetUserByEmail, email).Scan(&u.ID, &u.Email)
	if err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*userRepo)(nil)
