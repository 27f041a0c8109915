package model

import "time"

// Session is a row of user_sessions. The raw bearer token is never stored;
// TokenHash is its hex SHA-256 digest.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is no longer valid at now. A session
// is valid only while now is strictly before ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RateLimitCounter is a row of rate_limits: the number of requests one
// fingerprint has made to one route inside one fixed window.
type RateLimitCounter struct {
	Key         string    `db:"key"`
	Fingerprint string    `db:"fingerprint"`
	Route       string    `db:"route"`
	WindowStart time.Time `db:"window_start"`
	Count       int       `db:"count"`
}
