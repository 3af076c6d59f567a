package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/syncstore/internal/provider"
	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

// operations converts scenario steps into provider operations.
func operations(steps []Step) ([]provider.Operation, error) {
	ops := make([]provider.Operation, 0, len(steps))
	for i, s := range steps {
		op, err := s.operation()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s Step) operation() (provider.Operation, error) {
	op := provider.Operation{
		Target:        resource.URI(s.Target),
		ValueBackRefs: s.BackRefs,
		YieldAllowed:  s.Yield,
	}

	switch s.Op {
	case "insert":
		op.Kind = provider.KindInsert
	case "update":
		op.Kind = provider.KindUpdate
	case "delete":
		op.Kind = provider.KindDelete
	default:
		return op, fmt.Errorf("unknown op %q", s.Op)
	}

	if len(s.Values) > 0 {
		values, err := resource.ValuesFromGo(s.Values)
		if err != nil {
			return op, fmt.Errorf("values: %w", err)
		}
		op.Values = values
	}

	pred, err := wherePredicate(s.Where)
	if err != nil {
		return op, err
	}
	op.Selection = pred
	return op, nil
}

// wherePredicate builds a conjunction of field matches. Fields are
// sorted so the compiled SQL is stable across runs.
func wherePredicate(where map[string]any) (selection.Predicate, error) {
	if len(where) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(where))
	for f := range where {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	preds := make([]selection.Predicate, 0, len(fields))
	for _, f := range fields {
		p, err := fieldPredicate(f, where[f])
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", f, err)
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return selection.And{Predicates: preds}, nil
}

func fieldPredicate(field string, raw any) (selection.Predicate, error) {
	if m, ok := raw.(map[string]any); ok {
		idx, ok := m["prior"]
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("composite value must be {prior: N}")
		}
		i, ok := idx.(int)
		if !ok {
			return nil, fmt.Errorf("prior index must be an integer, got %T", idx)
		}
		return selection.Prior{Field: field, Index: i}, nil
	}

	lit, err := resource.FromGo(raw)
	if err != nil {
		return nil, err
	}
	return selection.Eq{Field: field, Value: lit}, nil
}
