package connector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/642studio/bachejoa/internal/query"
)

// RecordColumns returns the validated column names of record in sorted
// order, so generated SQL is deterministic.
func RecordColumns(record map[string]interface{}) ([]string, error) {
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	if err := query.ValidateIdentifiers(columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// AppendWhere renders filters as a WHERE clause onto b. It returns the bind
// values and the next free placeholder index. Nothing is written when
// filters is empty.
func AppendWhere(b *strings.Builder, filters []query.Filter, quote func(string) string, ph query.PlaceholderFunc, start int) ([]interface{}, int, error) {
	where, err := query.BuildWhere(filters, quote, ph, start)
	if err != nil {
		return nil, start, err
	}
	if where == nil {
		return nil, start, nil
	}
	b.WriteString(" WHERE ")
	b.WriteString(where.SQL)
	return where.Params, where.Next, nil
}

// ValidateTable rejects an empty or unsafe table name.
func ValidateTable(name string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	return query.ValidateIdentifier(name)
}
