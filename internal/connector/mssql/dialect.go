// Package mssql is the SQL Server dialect.
package mssql

import (
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Dialect returns the SQL Server dialect. Row caps use OFFSET/FETCH, which
// needs an ORDER BY; unordered selects get ORDER BY (SELECT NULL).
func Dialect() connector.Dialect {
	return connector.Dialect{
		Name:        "mssql",
		SQLDriver:   "sqlserver",
		Quote:       query.SQLServerQuote,
		Placeholder: query.AtPPlaceholder,
		Limit: func(ph string, ordered bool) string {
			s := " OFFSET 0 ROWS FETCH NEXT " + ph + " ROWS ONLY"
			if !ordered {
				s = " ORDER BY (SELECT NULL)" + s
			}
			return s
		},
		ColumnType:    columnType,
		Schemas:       true,
		DefaultSchema: "dbo",
		TablesQuery: `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`,
	}
}

// New creates an unconnected SQL Server connector.
func New() connector.Connector {
	return connector.NewSQLConnector(Dialect())
}

// columnType maps a model.Column to a SQL Server column type. Unique and
// key strings need a MaxLength; NVARCHAR(MAX) cannot be indexed.
func columnType(col model.Column) string {
	if col.Type != "" {
		return connector.SizedType(col.Type, col.MaxLength,
			"varchar", "nvarchar", "char", "nchar", "varbinary", "binary")
	}

	switch col.GoType {
	case "int32":
		return "INT"
	case "int64":
		return "BIGINT"
	case "float32":
		return "REAL"
	case "float64":
		return "FLOAT"
	case "string":
		if col.MaxLength != nil {
			return fmt.Sprintf("NVARCHAR(%d)", *col.MaxLength)
		}
		return "NVARCHAR(MAX)"
	case "bool":
		return "BIT"
	case "time.Time":
		return "DATETIME2"
	case "[]byte":
		return "VARBINARY(MAX)"
	default:
		return "NVARCHAR(MAX)"
	}
}
