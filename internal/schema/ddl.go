package schema

import (
	"fmt"
	"strings"
)

// sqlType maps column type names to SQLite storage types.
// Bools are stored as INTEGER 0/1.
var sqlType = map[string]string{
	TypeString: "TEXT",
	TypeInt:    "INTEGER",
	TypeBool:   "INTEGER",
}

// DDL renders a table spec to a CREATE TABLE IF NOT EXISTS statement.
//
// Columns are emitted in lexical order after the implicit primary key,
// so the generated DDL is deterministic and safe to diff.
func DDL(spec TableSpec) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", spec.Name)
	fmt.Fprintf(&b, "    %s TEXT PRIMARY KEY", IDColumn)

	for _, col := range spec.SortedColumns() {
		storage, ok := sqlType[spec.Columns[col]]
		if !ok {
			return "", fmt.Errorf("table %s: column %s: unknown type %q",
				spec.Name, col, spec.Columns[col])
		}
		fmt.Fprintf(&b, ",\n    %s %s", col, storage)
		if spec.IsRequired(col) {
			b.WriteString(" NOT NULL")
		}
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// AllDDL renders DDL for every spec, joined with statement separators,
// suitable for a single Exec call.
func AllDDL(specs []TableSpec) (string, error) {
	stmts := make([]string, 0, len(specs))
	for _, spec := range specs {
		stmt, err := DDL(spec)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, stmt+";")
	}
	return strings.Join(stmts, "\n\n"), nil
}
