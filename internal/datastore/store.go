// Package datastore is the row-oriented persistence layer the identity and
// reporting services talk to: insert, select, update, delete and count by
// filter, over any SQL connector.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/connector/mssql"
	"github.com/642studio/bachejoa/internal/connector/mysql"
	"github.com/642studio/bachejoa/internal/connector/postgres"
	"github.com/642studio/bachejoa/internal/connector/sqlite"
	"github.com/642studio/bachejoa/internal/query"
)

// Row is a set of column values for an insert or update.
type Row map[string]interface{}

// Query selects rows from one table.
type Query struct {
	Table   string
	Columns []string
	Filters []query.Filter
	Order   []query.OrderClause
	Limit   int
}

// Store is the data-store contract. Implementations must be safe for
// concurrent use.
type Store interface {
	Insert(ctx context.Context, table string, row Row) error
	// SelectOne scans the first matching row into dest and returns
	// ErrNotFound when there is none.
	SelectOne(ctx context.Context, q Query, dest interface{}) error
	// Select scans all matching rows into dest, a pointer to a slice.
	Select(ctx context.Context, q Query, dest interface{}) error
	Update(ctx context.Context, table string, filters []query.Filter, row Row) (int64, error)
	Delete(ctx context.Context, table string, filters []query.Filter) (int64, error)
	Count(ctx context.Context, table string, filters []query.Filter) (int64, error)
	Ping(ctx context.Context) error
}

// SQLStore implements Store over a connector.Connector.
type SQLStore struct {
	conn connector.Connector
}

// New wraps an already connected connector.
func New(conn connector.Connector) *SQLStore {
	return &SQLStore{conn: conn}
}

// DefaultRegistry returns a registry with every supported driver
// registered.
func DefaultRegistry() *connector.Registry {
	r := connector.NewRegistry()
	r.RegisterDriver("sqlite", sqlite.New)
	r.RegisterDriver("postgres", postgres.New)
	r.RegisterDriver("mysql", mysql.New)
	r.RegisterDriver("mssql", mssql.New)
	return r
}

// Open connects to the database described by cfg.
func Open(cfg connector.ConnectionConfig) (*SQLStore, error) {
	conn, err := DefaultRegistry().Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// OpenSQLite opens a SQLite store. ":memory:" gives a private in-memory
// database, which is what tests use.
func OpenSQLite(dsn string) (*SQLStore, error) {
	return Open(connector.ConnectionConfig{Driver: "sqlite", DSN: dsn})
}

// Driver returns the underlying driver name.
func (s *SQLStore) Driver() string { return s.conn.DriverName() }

// Close releases the connection pool.
func (s *SQLStore) Close() error { return s.conn.Disconnect() }

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Insert writes one row.
func (s *SQLStore) Insert(ctx context.Context, table string, row Row) error {
	stmt, args, err := s.conn.BuildInsert(ctx, connector.InsertRequest{
		Table:   table,
		Records: []map[string]interface{}{row},
	})
	if err != nil {
		return fmt.Errorf("build insert into %s: %w", table, err)
	}
	if _, err := s.conn.DB().ExecContext(ctx, stmt, args...); err != nil {
		return classify(fmt.Errorf("insert into %s: %w", table, err))
	}
	return nil
}

// SelectOne scans the first row matching q into dest.
func (s *SQLStore) SelectOne(ctx context.Context, q Query, dest interface{}) error {
	q.Limit = 1
	stmt, args, err := s.buildSelect(ctx, q)
	if err != nil {
		return err
	}
	if err := s.conn.DB().GetContext(ctx, dest, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select from %s: %w", q.Table, err)
	}
	return nil
}

// Select scans every row matching q into dest.
func (s *SQLStore) Select(ctx context.Context, q Query, dest interface{}) error {
	stmt, args, err := s.buildSelect(ctx, q)
	if err != nil {
		return err
	}
	if err := s.conn.DB().SelectContext(ctx, dest, stmt, args...); err != nil {
		return fmt.Errorf("select from %s: %w", q.Table, err)
	}
	return nil
}

// Update sets row on every row matching filters and returns the number of
// rows changed.
func (s *SQLStore) Update(ctx context.Context, table string, filters []query.Filter, row Row) (int64, error) {
	stmt, args, err := s.conn.BuildUpdate(ctx, connector.UpdateRequest{
		Table:   table,
		Filters: filters,
		Record:  row,
	})
	if err != nil {
		return 0, fmt.Errorf("build update %s: %w", table, err)
	}
	return s.exec(ctx, "update "+table, stmt, args)
}

// Delete removes every row matching filters.
func (s *SQLStore) Delete(ctx context.Context, table string, filters []query.Filter) (int64, error) {
	stmt, args, err := s.conn.BuildDelete(ctx, connector.DeleteRequest{
		Table:   table,
		Filters: filters,
	})
	if err != nil {
		return 0, fmt.Errorf("build delete from %s: %w", table, err)
	}
	return s.exec(ctx, "delete from "+table, stmt, args)
}

// Count returns the number of rows matching filters.
func (s *SQLStore) Count(ctx context.Context, table string, filters []query.Filter) (int64, error) {
	stmt, args, err := s.conn.BuildCount(ctx, connector.CountRequest{
		Table:   table,
		Filters: filters,
	})
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", table, err)
	}
	var n int64
	if err := s.conn.DB().GetContext(ctx, &n, stmt, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLStore) buildSelect(ctx context.Context, q Query) (string, []interface{}, error) {
	stmt, args, err := s.conn.BuildSelect(ctx, connector.SelectRequest{
		Table:   q.Table,
		Fields:  q.Columns,
		Filters: q.Filters,
		Order:   q.Order,
		Limit:   q.Limit,
	})
	if err != nil {
		return "", nil, fmt.Errorf("build select from %s: %w", q.Table, err)
	}
	return stmt, args, nil
}

func (s *SQLStore) exec(ctx context.Context, op, stmt string, args []interface{}) (int64, error) {
	res, err := s.conn.DB().ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, classify(fmt.Errorf("%s: %w", op, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
