package query

import (
	"fmt"
	"strings"
)

// PlaceholderFunc returns the SQL placeholder for a given 1-based parameter index.
type PlaceholderFunc func(index int) string

// DollarPlaceholder returns $1, $2, etc. (PostgreSQL).
func DollarPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// QuestionPlaceholder returns ? for all params (MySQL, SQLite).
func QuestionPlaceholder(_ int) string {
	return "?"
}

// AtPPlaceholder returns @p1, @p2, etc. (SQL Server).
func AtPPlaceholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// Op is a comparison operator understood by BuildWhere.
type Op string

const (
	OpEq     Op = "="
	OpNe     Op = "<>"
	OpLt     Op = "<"
	OpGt     Op = ">"
	OpEqFold Op = "eqfold" // case-insensitive equality on text columns
	OpIsNull Op = "isnull"
)

// Filter is one condition of a WHERE clause. Filters in a slice are joined
// with AND. A filter built with AnyOf is a disjunction of AND-groups and
// ignores Column, Op and Value.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
	Any    [][]Filter
}

// Eq matches rows where column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// EqFold matches rows where column equals value ignoring case.
func EqFold(column, value string) Filter {
	return Filter{Column: column, Op: OpEqFold, Value: value}
}

// Lt matches rows where column is strictly less than value.
func Lt(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpLt, Value: value}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// AnyOf matches rows satisfying at least one of the AND-groups.
func AnyOf(groups ...[]Filter) Filter {
	return Filter{Any: groups}
}

// ParsedFilter holds a parameterized SQL WHERE fragment and its bind values.
// Next is the placeholder index the caller should use for the next parameter.
type ParsedFilter struct {
	SQL    string
	Params []interface{}
	Next   int
}

// BuildWhere renders filters into a parameterized WHERE fragment (without the
// WHERE keyword). quote is the dialect's identifier quoting, ph its
// placeholder style, and startIndex the 1-based index of the first
// placeholder. It returns nil for an empty filter list.
func BuildWhere(filters []Filter, quote func(string) string, ph PlaceholderFunc, startIndex int) (*ParsedFilter, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	if ph == nil {
		ph = QuestionPlaceholder
	}
	if startIndex < 1 {
		startIndex = 1
	}

	b := &whereBuilder{quote: quote, ph: ph, next: startIndex}
	sql, err := b.conjunction(filters)
	if err != nil {
		return nil, err
	}
	return &ParsedFilter{SQL: sql, Params: b.params, Next: b.next}, nil
}

type whereBuilder struct {
	quote  func(string) string
	ph     PlaceholderFunc
	next   int
	params []interface{}
}

func (b *whereBuilder) bind(v interface{}) string {
	p := b.ph(b.next)
	b.next++
	b.params = append(b.params, v)
	return p
}

func (b *whereBuilder) conjunction(filters []Filter) (string, error) {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		s, err := b.condition(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

func (b *whereBuilder) condition(f Filter) (string, error) {
	if len(f.Any) > 0 {
		groups := make([]string, 0, len(f.Any))
		for _, g := range f.Any {
			if len(g) == 0 {
				return "", fmt.Errorf("empty filter group")
			}
			s, err := b.conjunction(g)
			if err != nil {
				return "", err
			}
			groups = append(groups, "("+s+")")
		}
		return "(" + strings.Join(groups, " OR ") + ")", nil
	}

	if err := ValidateIdentifier(f.Column); err != nil {
		return "", fmt.Errorf("invalid filter column: %w", err)
	}
	col := b.quote(f.Column)

	switch f.Op {
	case OpEq, OpNe, OpLt, OpGt:
		if f.Value == nil {
			return "", fmt.Errorf("filter on %q: nil value (use IsNull)", f.Column)
		}
		return col + " " + string(f.Op) + " " + b.bind(f.Value), nil
	case OpEqFold:
		return "LOWER(" + col + ") = LOWER(" + b.bind(f.Value) + ")", nil
	case OpIsNull:
		return col + " IS NULL", nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q", f.Op)
	}
}
