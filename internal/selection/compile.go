package selection

import (
	"fmt"
	"strings"

	"github.com/roach88/syncstore/internal/resource"
)

// Compile converts a Predicate to a parameterized SQL WHERE fragment.
// Returns (sql, params, error).
//
// CRITICAL: values are NEVER interpolated - always ? placeholders.
// Field names are interpolated and therefore validated against a
// strict identifier grammar first.
//
// A nil predicate compiles to "1 = 1" (match everything).
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Eq:
		return compileEq(pred)
	case *Eq:
		return compileEq(*pred)
	case In:
		return compileIn(pred)
	case *In:
		return compileIn(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	case Prior, *Prior:
		return "", nil, fmt.Errorf("unresolved prior-result reference: bind the predicate against batch results first")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// Bind resolves every Prior predicate against the row ID returned by
// resolve, producing a compilable predicate tree. The input tree is not
// modified.
//
// resolve receives the back-referenced result index and returns the
// value to compare against (typically the prior insert's row ID).
func Bind(p Predicate, resolve func(index int) (resource.Value, error)) (Predicate, error) {
	if p == nil {
		return nil, nil
	}

	switch pred := p.(type) {
	case Prior:
		val, err := resolve(pred.Index)
		if err != nil {
			return nil, fmt.Errorf("resolve back-reference to result %d: %w", pred.Index, err)
		}
		return Eq{Field: pred.Field, Value: val}, nil
	case *Prior:
		return Bind(*pred, resolve)
	case And:
		bound := And{Predicates: make([]Predicate, len(pred.Predicates))}
		for i, sub := range pred.Predicates {
			b, err := Bind(sub, resolve)
			if err != nil {
				return nil, err
			}
			bound.Predicates[i] = b
		}
		return bound, nil
	case *And:
		return Bind(*pred, resolve)
	default:
		return p, nil
	}
}

func compileEq(eq Eq) (string, []any, error) {
	if err := validateField(eq.Field); err != nil {
		return "", nil, err
	}
	if _, isNull := eq.Value.(resource.Null); isNull || eq.Value == nil {
		return fmt.Sprintf("%s IS NULL", eq.Field), nil, nil
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{resource.SQL(eq.Value)}, nil
}

func compileIn(in In) (string, []any, error) {
	if err := validateField(in.Field); err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil // Empty set matches nothing
	}

	placeholders := make([]string, len(in.Values))
	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		if _, isNull := v.(resource.Null); isNull || v == nil {
			return "", nil, fmt.Errorf("NULL is not allowed in an IN set (field %q)", in.Field)
		}
		placeholders[i] = "?"
		params[i] = resource.SQL(v)
	}

	sql := fmt.Sprintf("%s IN (%s)", in.Field, strings.Join(placeholders, ", "))
	return sql, params, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Vacuous truth
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := Compile(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// validateField enforces the identifier grammar for interpolated field
// names: leading letter or underscore, then letters, digits, and
// underscores.
func validateField(field string) error {
	if field == "" {
		return fmt.Errorf("empty field name")
	}
	for i, r := range field {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("invalid field name %q: leading digit", field)
			}
		default:
			return fmt.Errorf("invalid field name %q: character %q", field, r)
		}
	}
	return nil
}
