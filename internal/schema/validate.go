package schema

import (
	"fmt"
	"regexp"
)

// Validation error codes (E200-E299)
const (
	ErrBadTableName    = "E200" // table name violates identifier grammar
	ErrBadColumnName   = "E201" // column name violates identifier grammar
	ErrReservedColumn  = "E202" // column name collides with the implicit id column
	ErrDuplicateTable  = "E203" // duplicate table name
	ErrNoColumns       = "E204" // table declares no columns
	ErrUnknownRequired = "E205" // required references an undeclared column
)

// identifierRE is the grammar for table and column names. Interpolated
// into SQL, so it must stay strict.
var identifierRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled table specs against naming and structural
// rules. Returns all errors found (does not fail-fast).
func Validate(specs []TableSpec) []*ValidationError {
	var errs []*ValidationError

	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if !identifierRE.MatchString(spec.Name) {
			errs = append(errs, &ValidationError{
				Field:   "table",
				Message: fmt.Sprintf("invalid table name %q", spec.Name),
				Code:    ErrBadTableName,
			})
		}
		if seen[spec.Name] {
			errs = append(errs, &ValidationError{
				Field:   "table",
				Message: fmt.Sprintf("duplicate table %q", spec.Name),
				Code:    ErrDuplicateTable,
			})
		}
		seen[spec.Name] = true

		if len(spec.Columns) == 0 {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("table.%s.columns", spec.Name),
				Message: "table declares no columns",
				Code:    ErrNoColumns,
			})
		}

		for col := range spec.Columns {
			if col == IDColumn {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("table.%s.columns.%s", spec.Name, col),
					Message: "id is implicit and may not be declared",
					Code:    ErrReservedColumn,
				})
				continue
			}
			if !identifierRE.MatchString(col) {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("table.%s.columns.%s", spec.Name, col),
					Message: fmt.Sprintf("invalid column name %q", col),
					Code:    ErrBadColumnName,
				})
			}
		}

		for _, req := range spec.Required {
			if _, ok := spec.Columns[req]; !ok {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("table.%s.required", spec.Name),
					Message: fmt.Sprintf("required column %q is not declared", req),
					Code:    ErrUnknownRequired,
				})
			}
		}
	}

	return errs
}
