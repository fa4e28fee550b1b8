// Package seeder registers a server connection profile for a pgAdmin user,
// at most once per (user, server name).
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Skryldev/pgadmin-seed/config"
	"github.com/Skryldev/pgadmin-seed/db"
	"github.com/Skryldev/pgadmin-seed/models"
	"github.com/Skryldev/pgadmin-seed/repo"
)

// Outcome is how a run ended when no error occurred.
type Outcome int

const (
	OutcomeAdded Outcome = iota + 1
	OutcomeExists
	OutcomeUserNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeExists:
		return "exists"
	case OutcomeUserNotFound:
		return "user_not_found"
	}
	return "unknown"
}

// Message is the line printed for the operator.
func (o Outcome) Message() string {
	switch o {
	case OutcomeAdded:
		return "Server added successfully!"
	case OutcomeExists:
		return "Server already exists"
	case OutcomeUserNotFound:
		return "User not found"
	}
	return ""
}

// Result describes a finished run. UserID is zero when the user was not
// found; ServerID is the new or pre-existing server row.
type Result struct {
	Outcome  Outcome
	UserID   int64
	ServerID int64
}

// Seeder performs the lookup, existence check and insert.
type Seeder struct {
	db      *db.DB
	profile config.Profile
	logger  *slog.Logger
}

// New returns a Seeder writing profile through database.
func New(database *db.DB, profile config.Profile, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{db: database, profile: profile, logger: logger}
}

// Run resolves the user, skips if the named server already exists, and
// otherwise inserts it. All three steps share one transaction, which commits
// only the insert. Data-access failures are returned as errors; the two
// recognised conditions are reported through Result.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	log := s.logger.With("email", s.profile.Email, "server", s.profile.Name)

	err := s.db.ExecTx(ctx, func(tx *db.Tx) error {
		res = Result{}

		user, err := repo.NewUserRepo(tx).GetByEmail(ctx, s.profile.Email)
		if db.IsNotFound(err) {
			res.Outcome = OutcomeUserNotFound
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}
		res.UserID = user.ID

		servers := repo.NewServerRepo(tx)
		existing, err := servers.GetByUserAndName(ctx, user.ID, s.profile.Name)
		switch {
		case err == nil:
			res.Outcome = OutcomeExists
			res.ServerID = existing.ID
			return nil
		case !db.IsNotFound(err):
			return fmt.Errorf("check existing server: %w", err)
		}

		created, err := servers.Insert(ctx, models.CreateServerParams{
			UserID:        user.ID,
			ServerGroupID: s.profile.ServerGroupID,
			Name:          s.profile.Name,
			Host:          s.profile.Host,
			Port:          s.profile.Port,
			MaintenanceDB: s.profile.MaintenanceDB,
			Username:      s.profile.Username,
			Password:      s.profile.Password,
			SavePassword:  true,
		})
		if err != nil {
			return fmt.Errorf("insert server: %w", err)
		}
		res.Outcome = OutcomeAdded
		res.ServerID = created.ID
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seeder: %w", err)
	}

	switch res.Outcome {
	case OutcomeAdded:
		log.Info("server registered", "user_id", res.UserID, "server_id", res.ServerID,
			"host", s.profile.Host, "port", s.profile.Port)
	case OutcomeExists:
		log.Info("server already registered", "user_id", res.UserID, "server_id", res.ServerID)
	case OutcomeUserNotFound:
		log.Warn("no pgAdmin user with this email")
	}
	return res, nil
}
