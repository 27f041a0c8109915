package sqlite

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// newTestConnector returns an unconnected connector. Statement builders
// need no database.
func newTestConnector() *connector.SQLConnector {
	return connector.NewSQLConnector(Dialect())
}

// ---------------------------------------------------------------------------
// BuildSelect tests
// ---------------------------------------------------------------------------

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		req      connector.SelectRequest
		wantSQL  string
		wantArgs []interface{}
		wantErr  bool
	}{
		{
			name:    "empty table returns error",
			req:     connector.SelectRequest{},
			wantErr: true,
		},
		{
			name:    "unsafe table returns error",
			req:     connector.SelectRequest{Table: "users; --"},
			wantErr: true,
		},
		{
			name:    "simple select all",
			req:     connector.SelectRequest{Table: "reports"},
			wantSQL: `SELECT * FROM "reports"`,
		},
		{
			name: "session lookup by token hash",
			req: connector.SelectRequest{
				Table:   "user_sessions",
				Fields:  []string{"id", "user_id", "expires_at"},
				Filters: []query.Filter{query.Eq("token_hash", "f00d")},
				Limit:   1,
			},
			wantSQL:  `SELECT "id", "user_id", "expires_at" FROM "user_sessions" WHERE "token_hash" = ? LIMIT ?`,
			wantArgs: []interface{}{"f00d", 1},
		},
		{
			name: "keyset page newest first",
			req: connector.SelectRequest{
				Table:  "reports",
				Fields: []string{"id"},
				Filters: []query.Filter{query.AnyOf(
					[]query.Filter{query.Lt("created_at", "c")},
					[]query.Filter{query.Eq("created_at", "c"), query.Lt("id", "r")},
				)},
				Order: []query.OrderClause{query.Desc("created_at"), query.Desc("id")},
				Limit: 200,
			},
			wantSQL:  `SELECT "id" FROM "reports" WHERE (("created_at" < ?) OR ("created_at" = ? AND "id" < ?)) ORDER BY "created_at" DESC, "id" DESC LIMIT ?`,
			wantArgs: []interface{}{"c", "c", "r", 200},
		},
		{
			name: "invalid order column",
			req: connector.SelectRequest{
				Table: "reports",
				Order: []query.OrderClause{query.Desc("1=1")},
			},
			wantErr: true,
		},
	}

	c := newTestConnector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := c.BuildSelect(context.Background(), tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch:\n  got:  %s\n  want: %s", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args mismatch:\n  got:  %v\n  want: %v", args, tt.wantArgs)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// BuildInsert tests
// ---------------------------------------------------------------------------

func TestBuildInsert(t *testing.T) {
	c := newTestConnector()

	sql, args, err := c.BuildInsert(context.Background(), connector.InsertRequest{
		Table: "rate_limits",
		Records: []map[string]interface{}{
			{"key": "k1", "route": "auth:login", "count": 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "rate_limits" ("count", "key", "route") VALUES (?, ?, ?)`
	if sql != want {
		t.Errorf("SQL mismatch:\n  got:  %s\n  want: %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{1, "k1", "auth:login"}) {
		t.Errorf("args mismatch: %v", args)
	}

	sql, args, err = c.BuildInsert(context.Background(), connector.InsertRequest{
		Table: "contact_requests",
		Records: []map[string]interface{}{
			{"id": "a", "name": "Ana"},
			{"id": "b", "name": "Beto"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `INSERT INTO "contact_requests" ("id", "name") VALUES (?, ?), (?, ?)`; sql != want {
		t.Errorf("multi-row SQL:\n  got:  %s\n  want: %s", sql, want)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d", len(args))
	}
}

func TestBuildInsertErrors(t *testing.T) {
	c := newTestConnector()
	tests := []struct {
		name string
		req  connector.InsertRequest
	}{
		{"no table", connector.InsertRequest{Records: []map[string]interface{}{{"id": 1}}}},
		{"no records", connector.InsertRequest{Table: "users"}},
		{"bad column", connector.InsertRequest{Table: "users", Records: []map[string]interface{}{{"id) --": 1}}}},
		{"ragged rows", connector.InsertRequest{Table: "users", Records: []map[string]interface{}{{"id": 1}, {"id": 2, "email": "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := c.BuildInsert(context.Background(), tt.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// BuildUpdate / BuildDelete / BuildCount tests
// ---------------------------------------------------------------------------

func TestBuildUpdate(t *testing.T) {
	c := newTestConnector()

	sql, args, err := c.BuildUpdate(context.Background(), connector.UpdateRequest{
		Table:   "rate_limits",
		Filters: []query.Filter{query.Eq("key", "k1")},
		Record:  map[string]interface{}{"count": 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `UPDATE "rate_limits" SET "count" = ? WHERE "key" = ?`; sql != want {
		t.Errorf("SQL mismatch:\n  got:  %s\n  want: %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{2, "k1"}) {
		t.Errorf("args mismatch: %v", args)
	}

	if _, _, err := c.BuildUpdate(context.Background(), connector.UpdateRequest{
		Table:  "users",
		Record: map[string]interface{}{"role": "admin"},
	}); err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Errorf("expected refusal without filters, got %v", err)
	}
}

func TestBuildDelete(t *testing.T) {
	c := newTestConnector()

	sql, args, err := c.BuildDelete(context.Background(), connector.DeleteRequest{
		Table:   "user_sessions",
		Filters: []query.Filter{query.Eq("token_hash", "h")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `DELETE FROM "user_sessions" WHERE "token_hash" = ?`; sql != want {
		t.Errorf("SQL mismatch:\n  got:  %s\n  want: %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"h"}) {
		t.Errorf("args mismatch: %v", args)
	}

	if _, _, err := c.BuildDelete(context.Background(), connector.DeleteRequest{Table: "user_sessions"}); err == nil {
		t.Error("expected refusal to delete all rows")
	}
}

func TestBuildCount(t *testing.T) {
	c := newTestConnector()

	sql, args, err := c.BuildCount(context.Background(), connector.CountRequest{
		Table:   "reports",
		Filters: []query.Filter{query.Eq("reporter_fingerprint", "fp")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `SELECT COUNT(*) FROM "reports" WHERE "reporter_fingerprint" = ?`; sql != want {
		t.Errorf("SQL mismatch:\n  got:  %s\n  want: %s", sql, want)
	}
	if !reflect.DeepEqual(args, []interface{}{"fp"}) {
		t.Errorf("args mismatch: %v", args)
	}
}

// ---------------------------------------------------------------------------
// CreateTable tests
// ---------------------------------------------------------------------------

func TestCreateTableSQL(t *testing.T) {
	c := newTestConnector()

	sql, err := c.CreateTableSQL(model.TableSchema{
		Name: "report_repair_ratings",
		Columns: []model.Column{
			{Name: "id", GoType: "string"},
			{Name: "report_id", GoType: "string"},
			{Name: "fingerprint", GoType: "string"},
			{Name: "rating", GoType: "int64"},
			{Name: "created_at", GoType: "time.Time"},
		},
		PrimaryKey: []string{"id"},
		Indexes: []model.Index{
			{Name: "uq_rating_vote", Columns: []string{"report_id", "fingerprint"}, IsUnique: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`CREATE TABLE "report_repair_ratings"`,
		`"rating" INTEGER NOT NULL`,
		`"created_at" DATETIME NOT NULL`,
		`PRIMARY KEY ("id")`,
		`CONSTRAINT "uq_rating_vote" UNIQUE ("report_id", "fingerprint")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected %q in:\n%s", want, sql)
		}
	}
}

func TestCreateTableAgainstDatabase(t *testing.T) {
	conn := New()
	if err := conn.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Disconnect()

	ctx := context.Background()
	def := model.TableSchema{
		Name: "users",
		Columns: []model.Column{
			{Name: "id", GoType: "string"},
			{Name: "email", GoType: "string", IsUnique: true},
		},
		PrimaryKey: []string{"id"},
	}
	if err := conn.CreateTable(ctx, def); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	names, err := conn.GetTableNames(ctx)
	if err != nil {
		t.Fatalf("GetTableNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"users"}) {
		t.Errorf("tables = %v, want [users]", names)
	}

	db := conn.DB()
	db.MustExec(`INSERT INTO "users" ("id", "email") VALUES ('1', 'ana@example.com')`)
	if _, err := db.Exec(`INSERT INTO "users" ("id", "email") VALUES ('2', 'ana@example.com')`); err == nil {
		t.Error("expected unique violation on email")
	}
}
