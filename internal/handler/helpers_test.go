package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/642studio/bachejoa/internal/service"
)

// ---------------------------------------------------------------------------
// queryInt tests
// ---------------------------------------------------------------------------

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		defaultVal int
		want       int
	}{
		{"returns default for missing param", "/test", "limit", 200, 200},
		{"parses integer param", "/test?limit=100", "limit", 200, 100},
		{"returns default for non-integer", "/test?limit=abc", "limit", 200, 200},
		{"parses zero", "/test?limit=0", "limit", 200, 0},
		{"parses negative", "/test?limit=-5", "limit", 200, -5},
		{"returns default for empty value", "/test?limit=", "limit", 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryInt(r, tt.key, tt.defaultVal)
			if got != tt.want {
				t.Errorf("queryInt(%q, %d) = %d, want %d", tt.key, tt.defaultVal, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// readPayload tests
// ---------------------------------------------------------------------------

func TestReadPayload(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name string
		body string
		want string
	}{
		{"decodes object", `{"name":"ana"}`, "ana"},
		{"empty body yields zero value", ``, ""},
		{"malformed body yields zero value", `{"name":`, ""},
		{"wrong type yields zero value", `{"name":42}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			got := readPayload[payload](r)
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// writeError / writeJSON tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"error":"Invalid input"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"hello":"world"`) {
		t.Errorf("expected JSON body, got: %s", body)
	}
}

// ---------------------------------------------------------------------------
// writeServiceError tests
// ---------------------------------------------------------------------------

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation message passes through",
			err:        &service.ValidationError{Message: "Username inválido."},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Username inválido."}`,
		},
		{
			name:       "invalid credentials",
			err:        service.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Credenciales inválidas."}`,
		},
		{
			name:       "duplicate user",
			err:        service.ErrUserExists,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"Ese usuario o correo ya existe."}`,
		},
		{
			name:       "anonymous quota carries a code",
			err:        fmt.Errorf("create report: %w", service.ErrAnonLimit),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"Para seguir participando, crea una cuenta","code":"ANON_LIMIT_REACHED"}`,
		},
		{
			name:       "missing report",
			err:        service.ErrReportNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Report not found"}`,
		},
		{
			name:       "already rated",
			err:        service.ErrAlreadyRated,
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"Already rated."}`,
		},
		{
			name:       "unknown error uses fallback",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"No se pudo crear el reporte."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, discardLogger(), tt.err, "No se pudo crear el reporte.")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.wantBody {
				t.Errorf("body = %s, want %s", body, tt.wantBody)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bache.jpg", "bache.jpg"},
		{"mi foto (1).png", "mi_foto__1_.png"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"ñandú.webp", "_and_.webp"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
