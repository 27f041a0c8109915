package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCredentialPasswordHashNotInJSON(t *testing.T) {
	cred := Credential{
		User: User{
			ID:        "0b8c1d6e-7a8f-4f5e-9d2a-3c4b5a6d7e8f",
			Username:  "ana",
			Email:     "ana@example.com",
			Role:      RoleCitizen,
			CreatedAt: time.Now(),
		},
		PasswordHash: "00ff:abcd",
	}

	b, err := json.Marshal(cred)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if _, ok := m["password_hash"]; ok {
		t.Error("password_hash should NOT appear in JSON output")
	}
	if m["username"] != "ana" {
		t.Errorf("username = %v, want ana", m["username"])
	}
	// avatar_key is always present, null until chosen.
	if v, ok := m["avatar_key"]; !ok || v != nil {
		t.Errorf("avatar_key = %v (present=%v), want explicit null", v, ok)
	}
}

func TestUserColumnsExcludePasswordHash(t *testing.T) {
	for _, c := range UserColumns {
		if c == "password_hash" {
			t.Fatal("UserColumns must not select password_hash")
		}
	}
	if got := CredentialColumns[len(CredentialColumns)-1]; got != "password_hash" {
		t.Errorf("CredentialColumns last = %q, want password_hash", got)
	}
	if len(CredentialColumns) != len(UserColumns)+1 {
		t.Errorf("CredentialColumns has %d entries, want %d", len(CredentialColumns), len(UserColumns)+1)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future", now.Add(time.Hour), false},
		{"past", now.Add(-time.Second), true},
		{"exactly now", now, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{ExpiresAt: tt.expiresAt}
			if got := s.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportOwnershipNotInJSON(t *testing.T) {
	uid := "u-1"
	fp := "deadbeef"
	r := Report{ID: "r-1", Status: "Visible", UserID: &uid, ReporterFingerprint: &fp}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	for _, k := range []string{"user_id", "reporter_fingerprint"} {
		if _, ok := m[k]; ok {
			t.Errorf("%s should not appear in JSON output", k)
		}
	}
}

func TestErrorResponseJSON(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Error: "Too many requests."})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `{"error":"Too many requests."}` {
		t.Errorf("got %s", b)
	}

	b, _ = json.Marshal(ErrorResponse{Error: "Para seguir participando, crea una cuenta", Code: "ANON_LIMIT_REACHED"})
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if m["code"] != "ANON_LIMIT_REACHED" {
		t.Errorf("code = %v", m["code"])
	}
}
