package openapi

import "strings"

// TypeMapping maps a column's Go type to an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int64, double, date-time, uuid
}

var goTypeToOpenAPI = map[string]TypeMapping{
	"string":    {"string", ""},
	"int":       {"integer", "int32"},
	"int32":     {"integer", "int32"},
	"int64":     {"integer", "int64"},
	"float32":   {"number", "float"},
	"float64":   {"number", "double"},
	"bool":      {"boolean", ""},
	"time.time": {"string", "date-time"},
	"[]byte":    {"string", "byte"},
}

// MapGoType converts a schema column's GoType to an OpenAPI type mapping.
// Pointer markers are ignored; unknown types fall back to {"string", ""}.
func MapGoType(goType string) TypeMapping {
	normalized := strings.ToLower(strings.TrimSpace(goType))
	normalized = strings.TrimPrefix(normalized, "*")
	if m, ok := goTypeToOpenAPI[normalized]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}
