package connector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/642studio/bachejoa/internal/model"
)

// mockConnector implements Connector for testing without a real database.
type mockConnector struct {
	connected bool
	cfg       ConnectionConfig
}

func (m *mockConnector) Connect(cfg ConnectionConfig) error {
	if cfg.DSN == "fail" {
		return fmt.Errorf("mock connect failure")
	}
	m.connected = true
	m.cfg = cfg
	return nil
}
func (m *mockConnector) Disconnect() error                                  { m.connected = false; return nil }
func (m *mockConnector) Ping(_ context.Context) error                       { return nil }
func (m *mockConnector) DB() *sqlx.DB                                       { return nil }
func (m *mockConnector) GetTableNames(_ context.Context) ([]string, error)  { return nil, nil }
func (m *mockConnector) CreateTable(_ context.Context, _ model.TableSchema) error { return nil }
func (m *mockConnector) BuildSelect(_ context.Context, _ SelectRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (m *mockConnector) BuildInsert(_ context.Context, _ InsertRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (m *mockConnector) BuildUpdate(_ context.Context, _ UpdateRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (m *mockConnector) BuildDelete(_ context.Context, _ DeleteRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (m *mockConnector) BuildCount(_ context.Context, _ CountRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (m *mockConnector) DriverName() string                 { return "mock" }
func (m *mockConnector) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (m *mockConnector) ParameterPlaceholder(_ int) string  { return "?" }

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if len(r.Drivers()) != 0 {
		t.Error("new registry should have no drivers")
	}
}

func TestOpen(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("mock", func() Connector { return &mockConnector{} })

	conn, err := r.Open(ConnectionConfig{Driver: "mock", DSN: "test-dsn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mc := conn.(*mockConnector)
	if !mc.connected {
		t.Error("connector should be connected")
	}
	if mc.cfg.DSN != "test-dsn" {
		t.Errorf("expected DSN test-dsn, got %s", mc.cfg.DSN)
	}
}

func TestOpenReturnsFreshConnector(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("mock", func() Connector { return &mockConnector{} })

	a, _ := r.Open(ConnectionConfig{Driver: "mock", DSN: "a"})
	b, _ := r.Open(ConnectionConfig{Driver: "mock", DSN: "b"})
	if a == b {
		t.Error("each Open should build a new connector")
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("mock", func() Connector { return &mockConnector{} })

	_, err := r.Open(ConnectionConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "mock") {
		t.Errorf("error should list available drivers, got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	r := NewRegistry()
	r.RegisterDriver("mock", func() Connector { return &mockConnector{} })

	if _, err := r.Open(ConnectionConfig{Driver: "mock", DSN: "fail"}); err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestDriversSorted(t *testing.T) {
	r := NewRegistry()
	for _, d := range []string{"sqlite", "mssql", "postgres", "mysql"} {
		r.RegisterDriver(d, func() Connector { return &mockConnector{} })
	}

	got := strings.Join(r.Drivers(), ",")
	if got != "mssql,mysql,postgres,sqlite" {
		t.Errorf("Drivers() = %s", got)
	}
}

func TestSanitizeDSN(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
		want   string
	}{
		{
			name:   "postgres password with reserved characters",
			driver: "postgres",
			dsn:    "postgres://bache:p@ss#1@db.local:5432/bachejoa?sslmode=disable",
			want:   "postgres://bache:p@ss%231@db.local:5432/bachejoa?sslmode=disable",
		},
		{
			name:   "postgres without credentials",
			driver: "postgres",
			dsn:    "postgres://db.local/bachejoa",
			want:   "postgres://db.local/bachejoa",
		},
		{
			name:   "mysql bare host gets tcp wrapper and parseTime",
			driver: "mysql",
			dsn:    "bache:secret@db.local:3306/bachejoa",
			want:   "bache:secret@tcp(db.local:3306)/bachejoa?parseTime=true",
		},
		{
			name:   "mysql already wrapped still forces parseTime",
			driver: "mysql",
			dsn:    "bache:secret@tcp(db.local:3306)/bachejoa",
			want:   "bache:secret@tcp(db.local:3306)/bachejoa?parseTime=true",
		},
		{
			name:   "sqlite path untouched",
			driver: "sqlite",
			dsn:    "file:bachejoa.db?_pragma=foreign_keys(1)",
			want:   "file:bachejoa.db?_pragma=foreign_keys(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDSN(tt.driver, tt.dsn); got != tt.want {
				t.Errorf("SanitizeDSN() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}
