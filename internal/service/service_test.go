package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/query"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *datastore.SQLStore {
	t.Helper()
	store, err := datastore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.Migrate(context.Background(), discardLogger()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

// fixedClock returns a settable clock for injecting into services.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errStoreDown = errors.New("store unavailable")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Insert(context.Context, string, datastore.Row) error { return errStoreDown }
func (failingStore) SelectOne(context.Context, datastore.Query, interface{}) error {
	return errStoreDown
}
func (failingStore) Select(context.Context, datastore.Query, interface{}) error { return errStoreDown }
func (failingStore) Update(context.Context, string, []query.Filter, datastore.Row) (int64, error) {
	return 0, errStoreDown
}
func (failingStore) Delete(context.Context, string, []query.Filter) (int64, error) {
	return 0, errStoreDown
}
func (failingStore) Count(context.Context, string, []query.Filter) (int64, error) {
	return 0, errStoreDown
}
func (failingStore) Ping(context.Context) error { return errStoreDown }

func TestDeriveFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantIP  string
		wantUA  string
	}{
		{
			name:    "first forwarded entry",
			headers: map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1", "User-Agent": "curl/8"},
			wantIP:  "203.0.113.7",
			wantUA:  "curl/8",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			wantIP:  "198.51.100.2",
			wantUA:  "unknown",
		},
		{
			name:    "empty forwarded entry",
			headers: map[string]string{"X-Forwarded-For": " ,10.0.0.1", "X-Real-IP": "198.51.100.2"},
			wantIP:  "unknown",
			wantUA:  "unknown",
		},
		{
			name:   "no headers",
			wantIP: "unknown",
			wantUA: "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Del("User-Agent")
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			fp := DeriveFingerprint(r)
			if fp.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", fp.IP, tt.wantIP)
			}
			if fp.UserAgent != tt.wantUA {
				t.Errorf("UserAgent = %q, want %q", fp.UserAgent, tt.wantUA)
			}
			if want := sha256Hex(tt.wantIP + "|" + tt.wantUA); fp.Fingerprint != want {
				t.Errorf("Fingerprint = %q, want %q", fp.Fingerprint, want)
			}
		})
	}
}

func TestDeriveFingerprintDeterministic(t *testing.T) {
	a := httptest.NewRequest("GET", "/", nil)
	a.Header.Set("X-Forwarded-For", "203.0.113.7")
	a.Header.Set("User-Agent", "Mozilla/5.0")
	b := httptest.NewRequest("POST", "/api/reports", nil)
	b.Header.Set("X-Forwarded-For", "203.0.113.7")
	b.Header.Set("User-Agent", "Mozilla/5.0")

	if DeriveFingerprint(a).Fingerprint != DeriveFingerprint(b).Fingerprint {
		t.Error("same ip and user agent produced different fingerprints")
	}
	b.Header.Set("User-Agent", "Mozilla/6.0")
	if DeriveFingerprint(a).Fingerprint == DeriveFingerprint(b).Fingerprint {
		t.Error("different user agents produced the same fingerprint")
	}
}
