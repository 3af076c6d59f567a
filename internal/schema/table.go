package schema

import "slices"

// TableSpec represents a compiled table definition.
type TableSpec struct {
	Name     string            `json:"name"`
	Columns  map[string]string `json:"columns"`            // column name -> type name
	Required []string          `json:"required,omitempty"` // columns declared NOT NULL
}

// Column type names accepted by the compiler.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeBool   = "bool"
)

// IDColumn is the implicit primary key column every table carries.
// It is reserved: declaring it in CUE is a validation error.
const IDColumn = "id"

// SortedColumns returns column names in lexical order for
// deterministic DDL and snapshot output.
func (t TableSpec) SortedColumns() []string {
	cols := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		cols = append(cols, name)
	}
	slices.Sort(cols)
	return cols
}

// HasColumn reports whether the table declares the column, including
// the implicit ID column.
func (t TableSpec) HasColumn(name string) bool {
	if name == IDColumn {
		return true
	}
	_, ok := t.Columns[name]
	return ok
}

// IsRequired reports whether a column was declared NOT NULL.
func (t TableSpec) IsRequired(name string) bool {
	return slices.Contains(t.Required, name)
}
