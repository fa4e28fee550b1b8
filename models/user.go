package models

// User is the subset of a pgAdmin "user" row the seeder reads.
// Users are owned by pgAdmin and never written here.
type User struct {
	ID    int64
	Email string
}
