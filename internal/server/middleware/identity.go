package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/service"
)

type contextKeyCaller string

// CallerKey is the context key for the request's Caller.
const CallerKey contextKeyCaller = "caller"

// Caller is the identity behind a request: always a fingerprint, and a
// user when a valid session cookie is present. The session is only looked
// up the first time User is called, so requests rejected earlier in the
// chain never touch the session table.
type Caller struct {
	Fingerprint service.Fingerprint

	once    sync.Once
	user    *model.User
	resolve func() *model.User
}

// User returns the signed-in user, or nil for an anonymous caller.
func (c *Caller) User() *model.User {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		if c.resolve != nil {
			c.user = c.resolve()
		}
	})
	return c.user
}

// NewCaller builds a Caller with a fixed user. Handlers under test use it
// to bypass session lookup.
func NewCaller(fp service.Fingerprint, user *model.User) *Caller {
	c := &Caller{Fingerprint: fp, user: user}
	c.once.Do(func() {})
	return c
}

// Identify attaches a Caller to every request. The fingerprint is derived
// eagerly; the session is resolved lazily through sessions.
func Identify(sessions *service.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := &Caller{Fingerprint: service.DeriveFingerprint(r)}
			if token := service.ReadSessionToken(r); token != "" {
				ctx := r.Context()
				c.resolve = func() *model.User { return sessions.ResolveToken(ctx, token) }
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
		})
	}
}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, CallerKey, c)
}

// GetCaller extracts the Caller from ctx. Outside Identify it returns an
// anonymous caller with an empty fingerprint.
func GetCaller(ctx context.Context) *Caller {
	if c, ok := ctx.Value(CallerKey).(*Caller); ok {
		return c
	}
	return NewCaller(service.Fingerprint{}, nil)
}

// RequireUser rejects anonymous callers with status and message. Routes
// disagree on both, so they are parameters.
func RequireUser(status int, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetCaller(r.Context()).User() == nil {
				writeError(w, status, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects every caller that is not an admin with 403 and
// message.
func RequireAdmin(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !service.IsAdmin(GetCaller(r.Context()).User()) {
				writeError(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
