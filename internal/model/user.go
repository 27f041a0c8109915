package model

import "time"

// Roles a user may hold. The role column is the only source of privilege.
const (
	RoleCitizen = "citizen"
	RoleAdmin   = "admin"
)

// User is the public projection of a credential record. It is what session
// resolution returns and what the API serializes; it never carries the
// password hash.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	AvatarKey *string   `json:"avatar_key" db:"avatar_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserColumns is the column list selected for a User. It excludes
// password_hash so a resolved identity can never leak it.
var UserColumns = []string{"id", "username", "email", "role", "avatar_key", "created_at"}

// Credential is a full row of the users table, including the stored
// "hex(salt):hex(key)" password hash. Only the login path reads it.
type Credential struct {
	User
	PasswordHash string `json:"-" db:"password_hash"`
}

// CredentialColumns is UserColumns plus password_hash.
var CredentialColumns = append(append([]string{}, UserColumns...), "password_hash")

// UserStats summarizes a user's reporting activity for the profile view.
type UserStats struct {
	ReportsTotal    int64 `json:"reports_total"`
	ReportsVerified int64 `json:"reports_verified"`
}
