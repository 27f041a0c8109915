package model

// TableSchema describes a table the application creates on migrate.
type TableSchema struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key"`
	Indexes    []Index  `json:"indexes"`
}

// Column describes a single column within a table. GoType drives the
// dialect-specific SQL type; Type, when set, is used verbatim.
type Column struct {
	Name      string  `json:"name"`
	Type      string  `json:"db_type,omitempty"`
	GoType    string  `json:"go_type"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default,omitempty"`
	MaxLength *int64  `json:"max_length,omitempty"`
	IsUnique  bool    `json:"is_unique"`
}

// Index describes an index on one or more columns. Unique indexes are
// emitted as table constraints.
type Index struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
}
