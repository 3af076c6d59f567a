package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syncstore/internal/provider"
	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

func TestStepOperation_Insert(t *testing.T) {
	s := Step{
		Op:       "insert",
		Target:   "events",
		Values:   map[string]any{"title": "x", "priority": 2, "done": true},
		BackRefs: map[string]int{"parent": 0},
		Yield:    true,
	}
	op, err := s.operation()
	require.NoError(t, err)

	assert.Equal(t, provider.KindInsert, op.Kind)
	assert.Equal(t, resource.URI("events"), op.Target)
	assert.Equal(t, resource.String("x"), op.Values["title"])
	assert.Equal(t, resource.Int(2), op.Values["priority"])
	assert.Equal(t, resource.Bool(true), op.Values["done"])
	assert.Equal(t, map[string]int{"parent": 0}, op.ValueBackRefs)
	assert.True(t, op.YieldAllowed)
}

func TestStepOperation_RejectsFloatValues(t *testing.T) {
	s := Step{Op: "insert", Target: "events", Values: map[string]any{"price": 1.5}}
	_, err := s.operation()
	require.Error(t, err)
}

func TestWherePredicate_SortedConjunction(t *testing.T) {
	pred, err := wherePredicate(map[string]any{
		"done":  true,
		"batch": "b1",
	})
	require.NoError(t, err)

	// Fields are sorted so repeated runs compile identical SQL.
	want := selection.And{Predicates: []selection.Predicate{
		selection.Eq{Field: "batch", Value: resource.String("b1")},
		selection.Eq{Field: "done", Value: resource.Bool(true)},
	}}
	assert.Equal(t, want, pred)
}

func TestWherePredicate_SingleFieldIsBareEq(t *testing.T) {
	pred, err := wherePredicate(map[string]any{"id": "e1"})
	require.NoError(t, err)
	assert.Equal(t, selection.Eq{Field: "id", Value: resource.String("e1")}, pred)
}

func TestWherePredicate_Prior(t *testing.T) {
	pred, err := wherePredicate(map[string]any{"event_id": map[string]any{"prior": 2}})
	require.NoError(t, err)
	assert.Equal(t, selection.Prior{Field: "event_id", Index: 2}, pred)
}

func TestWherePredicate_BadPrior(t *testing.T) {
	cases := map[string]any{
		"extra keys":    map[string]any{"prior": 1, "also": 2},
		"missing prior": map[string]any{"index": 1},
		"non-int prior": map[string]any{"prior": "zero"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := wherePredicate(map[string]any{"f": raw})
			require.Error(t, err)
		})
	}
}

func TestWherePredicate_Empty(t *testing.T) {
	pred, err := wherePredicate(nil)
	require.NoError(t, err)
	assert.Nil(t, pred)
}
