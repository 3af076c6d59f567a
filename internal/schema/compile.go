package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a problem in a CUE table definition, with
// source position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileTables parses a CUE value into table specs.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should contain a top-level `table` struct:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: events: { columns: { title: string } }`)
//	specs, err := schema.CompileTables(v)
//
// Tables are returned in declaration order.
func CompileTables(v cue.Value) ([]TableSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tableVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []TableSpec
	for iter.Next() {
		spec, err := compileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     tableVal.Pos(),
		}
	}

	if errs := Validate(specs); len(errs) > 0 {
		return nil, errs[0]
	}

	return specs, nil
}

// compileTable parses one table struct.
func compileTable(name string, v cue.Value) (TableSpec, error) {
	spec := TableSpec{
		Name:    name,
		Columns: make(map[string]string),
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return spec, &CompileError{
			Field:   fmt.Sprintf("table.%s.columns", name),
			Message: "columns is required",
			Pos:     v.Pos(),
		}
	}

	colIter, err := colsVal.Fields()
	if err != nil {
		return spec, formatCUEError(err)
	}
	for colIter.Next() {
		colName := colIter.Label()
		colType, err := extractTypeName(colIter.Value())
		if err != nil {
			return spec, err
		}
		spec.Columns[colName] = colType
	}

	// required is optional
	reqVal := v.LookupPath(cue.ParsePath("required"))
	if reqVal.Exists() {
		reqIter, err := reqVal.List()
		if err != nil {
			return spec, formatCUEError(err)
		}
		for reqIter.Next() {
			reqStr, err := reqIter.Value().String()
			if err != nil {
				return spec, formatCUEError(err)
			}
			spec.Required = append(spec.Required, reqStr)
		}
	}

	return spec, nil
}

// extractTypeName maps a CUE field constraint to a column type name.
// Floats are forbidden - they break the deterministic value set.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return TypeString, nil
	case cue.IntKind:
		return TypeInt, nil
	case cue.BoolKind:
		return TypeBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float column types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported column type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position information from CUE SDK errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
