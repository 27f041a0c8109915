package query

import (
	"fmt"
	"strings"
)

// OrderClause represents a single column ordering directive.
type OrderClause struct {
	Column    string // Validated column name.
	Direction string // "ASC" or "DESC".
}

// Asc orders by column ascending.
func Asc(column string) OrderClause { return OrderClause{Column: column, Direction: "ASC"} }

// Desc orders by column descending.
func Desc(column string) OrderClause { return OrderClause{Column: column, Direction: "DESC"} }

// BuildOrderSQL renders order clauses into an ORDER BY body (without the
// ORDER BY keyword), applying quote to each column name.
func BuildOrderSQL(clauses []OrderClause, quote func(string) string) (string, error) {
	if len(clauses) == 0 {
		return "", nil
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		if err := ValidateIdentifier(c.Column); err != nil {
			return "", fmt.Errorf("invalid order column: %w", err)
		}
		dir := strings.ToUpper(c.Direction)
		switch dir {
		case "":
			dir = "ASC"
		case "ASC", "DESC":
		default:
			return "", fmt.Errorf("invalid order direction %q: must be ASC or DESC", c.Direction)
		}
		parts[i] = quote(c.Column) + " " + dir
	}
	return strings.Join(parts, ", "), nil
}

// QuoteIdentifiers validates, quotes, and joins column names into a
// comma-separated SQL fragment. An empty list selects every column.
func QuoteIdentifiers(names []string, quote func(string) string) (string, error) {
	if len(names) == 0 {
		return "*", nil
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return "", err
		}
		quoted[i] = quote(name)
	}
	return strings.Join(quoted, ", "), nil
}

// PostgresQuote returns a PostgreSQL-style double-quoted identifier.
func PostgresQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// MySQLQuote returns a MySQL-style backtick-quoted identifier.
func MySQLQuote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// SQLServerQuote returns a SQL Server-style bracket-quoted identifier.
func SQLServerQuote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
