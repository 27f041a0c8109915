// Package postgres is the PostgreSQL dialect, backed by pgx through its
// database/sql adapter.
package postgres

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Dialect returns the PostgreSQL dialect. Tables live in the "public"
// schema unless the connection config names another.
func Dialect() connector.Dialect {
	return connector.Dialect{
		Name:        "postgres",
		SQLDriver:   "pgx",
		Quote:       query.PostgresQuote,
		Placeholder: query.DollarPlaceholder,
		Limit: func(ph string, _ bool) string {
			return " LIMIT " + ph
		},
		ColumnType:    columnType,
		Schemas:       true,
		DefaultSchema: "public",
		TablesQuery: `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	}
}

// New creates an unconnected PostgreSQL connector.
func New() connector.Connector {
	return connector.NewSQLConnector(Dialect())
}

// columnType maps a model.Column to a PostgreSQL column type.
func columnType(col model.Column) string {
	if col.Type != "" {
		return connector.SizedType(col.Type, col.MaxLength, "varchar", "character varying", "char")
	}

	switch col.GoType {
	case "int32":
		return "INTEGER"
	case "int64":
		return "BIGINT"
	case "float32":
		return "REAL"
	case "float64":
		return "DOUBLE PRECISION"
	case "string":
		if col.MaxLength != nil {
			return fmt.Sprintf("VARCHAR(%d)", *col.MaxLength)
		}
		return "TEXT"
	case "bool":
		return "BOOLEAN"
	case "time.Time":
		return "TIMESTAMPTZ"
	case "[]byte":
		return "BYTEA"
	default:
		return "TEXT"
	}
}
