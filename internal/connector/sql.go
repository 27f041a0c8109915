package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
)

// Dialect holds everything that differs between the supported databases.
// The statements themselves are assembled once, by SQLConnector.
type Dialect struct {
	// Name is the registry name, e.g. "postgres".
	Name string
	// SQLDriver is the database/sql driver name passed to sqlx.Connect.
	SQLDriver string

	Quote       func(name string) string
	Placeholder query.PlaceholderFunc

	// Limit renders a row cap bound to placeholder ph. ordered reports
	// whether an ORDER BY was already written.
	Limit func(ph string, ordered bool) string

	// ColumnType maps a column definition to a native column type.
	ColumnType func(col model.Column) string
	// TableOptions is appended after the closing parenthesis of CREATE TABLE.
	TableOptions string

	// Schemas reports whether tables live in a named schema. When set,
	// table names are qualified and TablesQuery takes the schema as its
	// only argument.
	Schemas       bool
	DefaultSchema string
	TablesQuery   string

	// Tune adjusts the pool after the generic settings are applied.
	Tune func(db *sqlx.DB, cfg ConnectionConfig)
}

// SQLConnector implements Connector for any Dialect.
type SQLConnector struct {
	d      Dialect
	db     *sqlx.DB
	schema string
}

// NewSQLConnector returns an unconnected SQLConnector for d. Statement
// builders work before Connect is called.
func NewSQLConnector(d Dialect) *SQLConnector {
	return &SQLConnector{d: d, schema: d.DefaultSchema}
}

// Connect opens the pool and applies the pool settings and schema of cfg.
func (c *SQLConnector) Connect(cfg ConnectionConfig) error {
	db, err := sqlx.Connect(c.d.SQLDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("%s connect: %w", c.d.Name, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if c.d.Tune != nil {
		c.d.Tune(db, cfg)
	}

	if c.d.Schemas && cfg.SchemaName != "" {
		c.schema = cfg.SchemaName
	}

	c.db = db
	return nil
}

// Disconnect closes the connection pool.
func (c *SQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *SQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying pool.
func (c *SQLConnector) DB() *sqlx.DB { return c.db }

// DriverName returns the registry name of the dialect.
func (c *SQLConnector) DriverName() string { return c.d.Name }

// QuoteIdentifier quotes name in the dialect's style.
func (c *SQLConnector) QuoteIdentifier(name string) string { return c.d.Quote(name) }

// ParameterPlaceholder returns the bind marker for the 1-based index.
func (c *SQLConnector) ParameterPlaceholder(index int) string { return c.d.Placeholder(index) }

// Schema returns the schema tables are qualified with, if any.
func (c *SQLConnector) Schema() string { return c.schema }

// table returns the quoted table name, qualified by schema when one is set.
func (c *SQLConnector) table(name string) string {
	if !c.d.Schemas || c.schema == "" {
		return c.d.Quote(name)
	}
	return c.d.Quote(c.schema) + "." + c.d.Quote(name)
}

// BuildSelect constructs a SELECT with optional WHERE, ORDER BY and row cap.
// The cap is bound after the filter arguments.
func (c *SQLConnector) BuildSelect(_ context.Context, req SelectRequest) (string, []interface{}, error) {
	if err := ValidateTable(req.Table); err != nil {
		return "", nil, err
	}
	fields, err := query.QuoteIdentifiers(req.Fields, c.d.Quote)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(fields)
	b.WriteString(" FROM ")
	b.WriteString(c.table(req.Table))

	args, next, err := AppendWhere(&b, req.Filters, c.d.Quote, c.d.Placeholder, 1)
	if err != nil {
		return "", nil, err
	}

	order, err := query.BuildOrderSQL(req.Order, c.d.Quote)
	if err != nil {
		return "", nil, err
	}
	if order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}

	if req.Limit > 0 {
		b.WriteString(c.d.Limit(c.d.Placeholder(next), order != ""))
		args = append(args, req.Limit)
	}

	return b.String(), args, nil
}

// BuildInsert constructs a multi-row INSERT. Every record must carry the
// column set of the first.
func (c *SQLConnector) BuildInsert(_ context.Context, req InsertRequest) (string, []interface{}, error) {
	if err := ValidateTable(req.Table); err != nil {
		return "", nil, err
	}
	if len(req.Records) == 0 {
		return "", nil, fmt.Errorf("at least one record is required")
	}

	columns, err := RecordColumns(req.Records[0])
	if err != nil {
		return "", nil, err
	}
	quoted, err := query.QuoteIdentifiers(columns, c.d.Quote)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(columns)*len(req.Records))

	b.WriteString("INSERT INTO ")
	b.WriteString(c.table(req.Table))
	b.WriteString(" (")
	b.WriteString(quoted)
	b.WriteString(") VALUES ")

	for rowIdx, record := range req.Records {
		if len(record) != len(columns) {
			return "", nil, fmt.Errorf("record %d has %d columns, want %d", rowIdx, len(record), len(columns))
		}
		if rowIdx > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for colIdx, col := range columns {
			v, ok := record[col]
			if !ok {
				return "", nil, fmt.Errorf("record %d is missing column %q", rowIdx, col)
			}
			if colIdx > 0 {
				b.WriteString(", ")
			}
			args = append(args, v)
			b.WriteString(c.d.Placeholder(len(args)))
		}
		b.WriteString(")")
	}

	return b.String(), args, nil
}

// BuildUpdate constructs an UPDATE. SET values bind first and the WHERE
// placeholders continue the numbering. An empty filter list is refused.
func (c *SQLConnector) BuildUpdate(_ context.Context, req UpdateRequest) (string, []interface{}, error) {
	if err := ValidateTable(req.Table); err != nil {
		return "", nil, err
	}
	if len(req.Record) == 0 {
		return "", nil, fmt.Errorf("at least one field to update is required")
	}
	if len(req.Filters) == 0 {
		return "", nil, fmt.Errorf("filter required for update (refusing to update all rows)")
	}

	columns, err := RecordColumns(req.Record)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(columns))

	b.WriteString("UPDATE ")
	b.WriteString(c.table(req.Table))
	b.WriteString(" SET ")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, req.Record[col])
		b.WriteString(c.d.Quote(col))
		b.WriteString(" = ")
		b.WriteString(c.d.Placeholder(len(args)))
	}

	whereArgs, _, err := AppendWhere(&b, req.Filters, c.d.Quote, c.d.Placeholder, len(args)+1)
	if err != nil {
		return "", nil, err
	}

	return b.String(), append(args, whereArgs...), nil
}

// BuildDelete constructs a DELETE. An empty filter list is refused.
func (c *SQLConnector) BuildDelete(_ context.Context, req DeleteRequest) (string, []interface{}, error) {
	if err := ValidateTable(req.Table); err != nil {
		return "", nil, err
	}
	if len(req.Filters) == 0 {
		return "", nil, fmt.Errorf("filter required for delete (refusing to delete all rows)")
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(c.table(req.Table))

	args, _, err := AppendWhere(&b, req.Filters, c.d.Quote, c.d.Placeholder, 1)
	if err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

// BuildCount constructs a SELECT COUNT(*) with optional filtering.
func (c *SQLConnector) BuildCount(_ context.Context, req CountRequest) (string, []interface{}, error) {
	if err := ValidateTable(req.Table); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(c.table(req.Table))

	args, _, err := AppendWhere(&b, req.Filters, c.d.Quote, c.d.Placeholder, 1)
	if err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

// GetTableNames lists the base tables visible to the connection.
func (c *SQLConnector) GetTableNames(ctx context.Context) ([]string, error) {
	var args []interface{}
	if c.d.Schemas {
		args = append(args, c.schema)
	}

	var names []string
	if err := c.db.SelectContext(ctx, &names, c.d.TablesQuery, args...); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// CreateTable creates def. It fails if the table already exists.
func (c *SQLConnector) CreateTable(ctx context.Context, def model.TableSchema) error {
	stmt, err := c.CreateTableSQL(def)
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %q: %w", def.Name, err)
	}
	return nil
}

// CreateTableSQL renders the CREATE TABLE statement for def, including its
// primary key and unique constraints.
func (c *SQLConnector) CreateTableSQL(def model.TableSchema) (string, error) {
	if err := ValidateTable(def.Name); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(c.table(def.Name))
	b.WriteString(" (\n")

	for i, col := range def.Columns {
		if err := query.ValidateIdentifier(col.Name); err != nil {
			return "", fmt.Errorf("table %q: %w", def.Name, err)
		}
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(c.d.Quote(col.Name))
		b.WriteString(" ")
		b.WriteString(c.d.ColumnType(col))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.IsUnique {
			b.WriteString(" UNIQUE")
		}
		if col.Default != nil {
			b.WriteString(" DEFAULT ")
			b.WriteString(*col.Default)
		}
	}

	if len(def.PrimaryKey) > 0 {
		pk, err := query.QuoteIdentifiers(def.PrimaryKey, c.d.Quote)
		if err != nil {
			return "", err
		}
		b.WriteString(",\n  PRIMARY KEY (")
		b.WriteString(pk)
		b.WriteString(")")
	}

	for _, idx := range def.Indexes {
		if !idx.IsUnique {
			continue
		}
		if err := query.ValidateIdentifier(idx.Name); err != nil {
			return "", fmt.Errorf("table %q: %w", def.Name, err)
		}
		cols, err := query.QuoteIdentifiers(idx.Columns, c.d.Quote)
		if err != nil {
			return "", err
		}
		b.WriteString(",\n  CONSTRAINT ")
		b.WriteString(c.d.Quote(idx.Name))
		b.WriteString(" UNIQUE (")
		b.WriteString(cols)
		b.WriteString(")")
	}

	b.WriteString("\n)")
	b.WriteString(c.d.TableOptions)
	return b.String(), nil
}

// SizedType appends "(n)" to typeName when maxLength is set and the type is
// one of sized, compared case-insensitively.
func SizedType(typeName string, maxLength *int64, sized ...string) string {
	if maxLength == nil {
		return typeName
	}
	lower := strings.ToLower(typeName)
	for _, s := range sized {
		if lower == s {
			return fmt.Sprintf("%s(%d)", typeName, *maxLength)
		}
	}
	return typeName
}
