package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

func createTestUser(t *testing.T, store datastore.Store, username, role string) *model.User {
	t.Helper()
	users := NewUserService(store, NewPasswordHasher(), discardLogger())
	u, err := users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "hunter2pass",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	if role == model.RoleAdmin {
		if u, err = users.SetRole(context.Background(), u.Email, role); err != nil {
			t.Fatalf("SetRole: %v", err)
		}
	}
	return u
}

func TestSessionIssueResolveRevoke(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "ana", model.RoleCitizen)
	sessions := NewSessionManager(store, discardLogger(), false)

	issued, err := sessions.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(issued.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(issued.Token))
	}
	if issued.MaxAge != 2592000 {
		t.Errorf("MaxAge = %d, want 2592000", issued.MaxAge)
	}

	// Only the digest is stored.
	var sess model.Session
	if err := store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableSessions,
		Filters: []query.Filter{query.Eq("user_id", user.ID)},
	}, &sess); err != nil {
		t.Fatalf("load session row: %v", err)
	}
	if sess.TokenHash != sha256Hex(issued.Token) {
		t.Error("stored token_hash is not sha256(token)")
	}

	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.AddCookie(sessions.Cookie(issued))
	got := sessions.Resolve(r)
	if got == nil {
		t.Fatal("Resolve returned nil for a fresh session")
	}
	if got.ID != user.ID || got.Username != "ana" {
		t.Errorf("resolved %+v, want user ana", got)
	}

	if err := sessions.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if sessions.Resolve(r) != nil {
		t.Error("Resolve after Revoke should be anonymous")
	}
	if err := sessions.Revoke(ctx, issued.Token); err != nil {
		t.Errorf("second Revoke: %v", err)
	}
}

func TestSessionExpiredIsPurged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store, "beto", model.RoleCitizen)

	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions := NewSessionManager(store, discardLogger(), false)
	sessions.now = clock.now

	issued, err := sessions.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.advance(SessionTTL - time.Second)
	if sessions.ResolveToken(ctx, issued.Token) == nil {
		t.Fatal("session should still be valid one second before expiry")
	}

	clock.advance(2 * time.Second)
	if sessions.ResolveToken(ctx, issued.Token) != nil {
		t.Fatal("expired session resolved")
	}
	n, err := store.Count(ctx, datastore.TableSessions, nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("expired session row not deleted, %d rows remain", n)
	}
}

func TestSessionResolveAnonymous(t *testing.T) {
	store := newTestStore(t)
	sessions := NewSessionManager(store, discardLogger(), false)

	r := httptest.NewRequest("GET", "/", nil)
	if sessions.Resolve(r) != nil {
		t.Error("no cookie should resolve to anonymous")
	}
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: strings.Repeat("ab", 32)})
	if sessions.Resolve(r) != nil {
		t.Error("unknown token should resolve to anonymous")
	}
}

func TestSessionFailsOpenToAnonymous(t *testing.T) {
	sessions := NewSessionManager(failingStore{}, discardLogger(), false)
	if sessions.ResolveToken(context.Background(), "deadbeef") != nil {
		t.Error("storage failure must resolve to anonymous")
	}
	if _, err := sessions.Issue(context.Background(), "u-1"); err == nil {
		t.Error("Issue should fail when the store is down")
	}
}

func TestSessionCookies(t *testing.T) {
	sessions := NewSessionManager(nil, discardLogger(), true)
	c := sessions.Cookie(&IssuedSession{Token: "tok", MaxAge: 2592000})
	if c.Name != "bachejoa_session" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if !strings.Contains(c.String(), "Max-Age=2592000") {
		t.Errorf("cookie %q missing Max-Age", c.String())
	}

	cleared := sessions.ClearCookie()
	if cleared.Value != "" || !strings.Contains(cleared.String(), "Max-Age=0") {
		t.Errorf("clear cookie = %q", cleared.String())
	}
}
