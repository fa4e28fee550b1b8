package models

// DefaultServerGroupID is the "Servers" group pgAdmin creates for the first user.
const DefaultServerGroupID int64 = 1

// Server represents a row in pgAdmin's "server" table: one saved connection
// profile owned by a user. Only the columns the seeder writes are mapped.
type Server struct {
	ID            int64
	UserID        int64
	ServerGroupID int64
	Name          string
	Host          string
	Port          int
	MaintenanceDB string
	Username      string
	Password      string
	SavePassword  bool
}

// CreateServerParams holds the fields required to register a new server.
type CreateServerParams struct {
	UserID        int64
	ServerGroupID int64
	Name          string
	Host          string
	Port          int
	MaintenanceDB string
	Username      string
	Password      string
	SavePassword  bool
}
