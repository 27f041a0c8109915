package datastore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/642studio/bachejoa/internal/model"
)

// Table names.
const (
	TableUsers          = "users"
	TableSessions       = "user_sessions"
	TableRateLimits     = "rate_limits"
	TableReports        = "reports"
	TableRepairRatings  = "report_repair_ratings"
	TableContactRequest = "contact_requests"
)

func length(n int64) *int64 { return &n }

func literal(s string) *string { return &s }

// id columns hold uuid text; hashes are 64 hex characters.
var (
	idLen   = length(36)
	hashLen = length(64)
)

// Tables returns the application schema in creation order.
func Tables() []model.TableSchema {
	return []model.TableSchema{
		{
			Name: TableUsers,
			Columns: []model.Column{
				{Name: "id", GoType: "string", MaxLength: idLen},
				{Name: "username", GoType: "string", MaxLength: length(30), IsUnique: true},
				{Name: "email", GoType: "string", MaxLength: length(320), IsUnique: true},
				{Name: "role", GoType: "string", MaxLength: length(16), Default: literal("'citizen'")},
				{Name: "password_hash", GoType: "string", MaxLength: length(256)},
				{Name: "avatar_key", GoType: "string", MaxLength: length(64), Nullable: true},
				{Name: "created_at", GoType: "time.Time"},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: TableSessions,
			Columns: []model.Column{
				{Name: "id", GoType: "string", MaxLength: idLen},
				{Name: "user_id", GoType: "string", MaxLength: idLen},
				{Name: "token_hash", GoType: "string", MaxLength: hashLen, IsUnique: true},
				{Name: "expires_at", GoType: "time.Time"},
				{Name: "created_at", GoType: "time.Time"},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: TableRateLimits,
			Columns: []model.Column{
				{Name: "key", GoType: "string", MaxLength: hashLen},
				{Name: "fingerprint", GoType: "string", MaxLength: hashLen},
				{Name: "route", GoType: "string", MaxLength: length(64)},
				{Name: "window_start", GoType: "time.Time"},
				{Name: "count", GoType: "int64", Default: literal("0")},
			},
			PrimaryKey: []string{"key"},
		},
		{
			Name: TableReports,
			Columns: []model.Column{
				{Name: "id", GoType: "string", MaxLength: idLen},
				{Name: "lat", GoType: "float64"},
				{Name: "lng", GoType: "float64"},
				{Name: "type", GoType: "string", MaxLength: length(64)},
				{Name: "category", GoType: "string", MaxLength: length(64)},
				{Name: "subcategory", GoType: "string", MaxLength: length(64)},
				{Name: "status", GoType: "string", MaxLength: length(32)},
				{Name: "photo_url", GoType: "string", Nullable: true},
				{Name: "created_at", GoType: "time.Time"},
				{Name: "angry_count", GoType: "int64", Default: literal("0")},
				{Name: "repaired", GoType: "bool"},
				{Name: "repaired_at", GoType: "time.Time", Nullable: true},
				{Name: "repair_rating_avg", GoType: "float64", Default: literal("0")},
				{Name: "repair_rating_count", GoType: "int64", Default: literal("0")},
				{Name: "user_id", GoType: "string", MaxLength: idLen, Nullable: true},
				{Name: "reporter_fingerprint", GoType: "string", MaxLength: hashLen, Nullable: true},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: TableRepairRatings,
			Columns: []model.Column{
				{Name: "id", GoType: "string", MaxLength: idLen},
				{Name: "report_id", GoType: "string", MaxLength: idLen},
				{Name: "fingerprint", GoType: "string", MaxLength: hashLen},
				{Name: "rating", GoType: "int64"},
				{Name: "created_at", GoType: "time.Time"},
			},
			PrimaryKey: []string{"id"},
			Indexes: []model.Index{
				{Name: "uq_report_repair_ratings_vote", Columns: []string{"report_id", "fingerprint"}, IsUnique: true},
			},
		},
		{
			Name: TableContactRequest,
			Columns: []model.Column{
				{Name: "id", GoType: "string", MaxLength: idLen},
				{Name: "name", GoType: "string", MaxLength: length(200)},
				{Name: "contact", GoType: "string", MaxLength: length(200)},
				{Name: "topic", GoType: "string", MaxLength: length(200)},
				{Name: "message", GoType: "string"},
				{Name: "created_at", GoType: "time.Time"},
			},
			PrimaryKey: []string{"id"},
		},
	}
}

// Migrate creates every application table that does not exist yet and
// returns the names of the tables it created. Existing tables are left
// untouched.
func (s *SQLStore) Migrate(ctx context.Context, logger *slog.Logger) ([]string, error) {
	existing, err := s.conn.GetTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	var created []string
	for _, def := range Tables() {
		if have[def.Name] {
			continue
		}
		if err := s.conn.CreateTable(ctx, def); err != nil {
			return created, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("created table", "table", def.Name, "driver", s.conn.DriverName())
		created = append(created, def.Name)
	}
	return created, nil
}
