package auth

import (
	"database/sql"
	"time"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is one row of the users table. Guardian contact is only present
// for accounts registered as minors.
type User struct {
	UserID        string
	Name          string
	Email         string
	PasswordHash  string
	BirthDate     time.Time
	Role          string
	GuardianName  sql.NullString
	GuardianPhone sql.NullString
	CreatedAt     time.Time
}
