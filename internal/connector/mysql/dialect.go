// Package mysql is the MySQL dialect. DSNs are normalized by the connector
// registry so parseTime is always on.
package mysql

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Dialect returns the MySQL dialect. With no configured schema, tables are
// unqualified and resolve against the connection's current database.
func Dialect() connector.Dialect {
	return connector.Dialect{
		Name:        "mysql",
		SQLDriver:   "mysql",
		Quote:       query.MySQLQuote,
		Placeholder: query.QuestionPlaceholder,
		Limit: func(ph string, _ bool) string {
			return " LIMIT " + ph
		},
		ColumnType:   columnType,
		TableOptions: " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		Schemas:      true,
		TablesQuery: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`,
	}
}

// New creates an unconnected MySQL connector.
func New() connector.Connector {
	return connector.NewSQLConnector(Dialect())
}

// columnType maps a model.Column to a MySQL column type. Keyed or unique
// strings need a MaxLength, since MySQL cannot index TEXT without a prefix
// length.
func columnType(col model.Column) string {
	if col.Type != "" {
		return connector.SizedType(col.Type, col.MaxLength, "varchar", "char")
	}

	switch col.GoType {
	case "int32":
		return "INT"
	case "int64":
		return "BIGINT"
	case "float32":
		return "FLOAT"
	case "float64":
		return "DOUBLE"
	case "string":
		if col.MaxLength != nil {
			return fmt.Sprintf("VARCHAR(%d)", *col.MaxLength)
		}
		return "TEXT"
	case "bool":
		return "TINYINT(1)"
	case "time.Time":
		return "DATETIME(6)"
	case "[]byte":
		return "BLOB"
	default:
		return "TEXT"
	}
}
