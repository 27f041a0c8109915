// Package sqlite is the SQLite dialect, backed by the pure-Go
// modernc.org/sqlite driver. It is the development default and the store
// used by tests.
package sqlite

import (
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Dialect returns the SQLite dialect. The DSN is a file path or ":memory:";
// query parameters like ?_pragma=journal_mode(WAL) pass through.
func Dialect() connector.Dialect {
	return connector.Dialect{
		Name:        "sqlite",
		SQLDriver:   "sqlite",
		Quote:       query.PostgresQuote,
		Placeholder: query.QuestionPlaceholder,
		Limit: func(ph string, _ bool) string {
			return " LIMIT " + ph
		},
		ColumnType: columnType,
		TablesQuery: `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`,
		Tune: func(db *sqlx.DB, cfg connector.ConnectionConfig) {
			// Every connection to :memory: is a separate database.
			if strings.Contains(cfg.DSN, ":memory:") {
				db.SetMaxOpenConns(1)
			}
		},
	}
}

// New creates an unconnected SQLite connector.
func New() connector.Connector {
	return connector.NewSQLConnector(Dialect())
}

// columnType maps a model.Column to a SQLite type affinity. SQLite ignores
// lengths, so MaxLength is dropped.
func columnType(col model.Column) string {
	if col.Type != "" {
		return col.Type
	}

	switch col.GoType {
	case "int32", "int64":
		return "INTEGER"
	case "float32", "float64":
		return "REAL"
	case "bool":
		return "BOOLEAN"
	case "time.Time":
		return "DATETIME"
	case "[]byte":
		return "BLOB"
	default:
		return "TEXT"
	}
}
