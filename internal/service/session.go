package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

const (
	// SessionCookieName is the cookie carrying the opaque session token.
	SessionCookieName = "bachejoa_session"
	// SessionTTL is how long an issued session stays valid.
	SessionTTL = 30 * 24 * time.Hour

	tokenBytes = 32
)

// IssuedSession is returned once, at login or registration. Token is the
// only copy of the bearer secret; the store keeps its SHA-256.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	MaxAge    int
}

// SessionManager issues, resolves and revokes server-side sessions.
type SessionManager struct {
	store  datastore.Store
	logger *slog.Logger
	secure bool
	now    func() time.Time
	rand   io.Reader
}

// NewSessionManager creates a SessionManager. secure controls the Secure
// attribute of the cookies it writes and should be true in production.
func NewSessionManager(store datastore.Store, logger *slog.Logger, secure bool) *SessionManager {
	return &SessionManager{
		store:  store,
		logger: logger,
		secure: secure,
		now:    now,
		rand:   rand.Reader,
	}
}

// Issue creates a session for userID and returns its token.
func (m *SessionManager) Issue(ctx context.Context, userID string) (*IssuedSession, error) {
	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.rand, raw); err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	created := m.now()
	expires := created.Add(SessionTTL)
	err := m.store.Insert(ctx, datastore.TableSessions, datastore.Row{
		"id":         uuid.NewString(),
		"user_id":    userID,
		"token_hash": sha256Hex(token),
		"expires_at": expires,
		"created_at": created,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &IssuedSession{
		Token:     token,
		ExpiresAt: expires,
		MaxAge:    int(SessionTTL / time.Second),
	}, nil
}

// Resolve returns the user behind the request's session cookie, or nil
// when the caller is anonymous. It never fails: storage errors resolve to
// anonymous.
func (m *SessionManager) Resolve(r *http.Request) *model.User {
	token := ReadSessionToken(r)
	if token == "" {
		return nil
	}
	return m.ResolveToken(r.Context(), token)
}

// ResolveToken is Resolve for a raw token. Expired sessions are deleted
// as a side effect.
func (m *SessionManager) ResolveToken(ctx context.Context, token string) *model.User {
	if token == "" {
		return nil
	}

	var sess model.Session
	err := m.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableSessions,
		Columns: []string{"id", "user_id", "expires_at"},
		Filters: []query.Filter{query.Eq("token_hash", sha256Hex(token))},
	}, &sess)
	if err != nil {
		if !errors.Is(err, datastore.ErrNotFound) {
			m.logger.Warn("session lookup failed", "error", err)
		}
		return nil
	}

	if sess.Expired(m.now()) {
		if _, err := m.store.Delete(ctx, datastore.TableSessions, []query.Filter{query.Eq("id", sess.ID)}); err != nil {
			m.logger.Warn("expired session cleanup failed", "session_id", sess.ID, "error", err)
		}
		return nil
	}

	var user model.User
	err = m.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableUsers,
		Columns: model.UserColumns,
		Filters: []query.Filter{query.Eq("id", sess.UserID)},
	}, &user)
	if err != nil {
		if !errors.Is(err, datastore.ErrNotFound) {
			m.logger.Warn("session user lookup failed", "session_id", sess.ID, "error", err)
		}
		return nil
	}
	return &user
}

// Revoke deletes the session for token. Revoking an unknown token is not
// an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := m.store.Delete(ctx, datastore.TableSessions, []query.Filter{query.Eq("token_hash", sha256Hex(token))}); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Cookie builds the Set-Cookie value for an issued session.
func (m *SessionManager) Cookie(s *IssuedSession) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   s.MaxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds the cookie that makes the browser drop the session.
func (m *SessionManager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ReadSessionToken returns the session token carried by r, or "".
func ReadSessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// now is the clock for stored timestamps: UTC at microsecond precision,
// which every supported database round-trips exactly.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
