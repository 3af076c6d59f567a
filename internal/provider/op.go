package provider

import (
	"fmt"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

// Kind identifies a mutation operation.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Operation is one element of a batch.
//
// Operations execute strictly in sequence order. An operation may
// reference the row ID of any prior operation's result in the same
// batch, either in its payload (ValueBackRefs) or in its selection
// (selection.Prior).
type Operation struct {
	Kind   Kind
	Target resource.URI

	// Values is the payload for insert and update.
	Values resource.Values

	// Selection filters update and delete. A nil selection matches
	// every row of the target table (or just the target row when the
	// URI addresses one).
	Selection selection.Predicate

	// ValueBackRefs substitutes prior insert results into the payload:
	// column name -> index of the earlier result whose row ID to use.
	ValueBackRefs map[string]int

	// YieldAllowed permits a contention yield before this operation.
	// The first operation of a batch never yields.
	YieldAllowed bool
}

// Validate checks the operation shape without touching the store.
func (op Operation) Validate() error {
	switch op.Kind {
	case KindInsert:
		if len(op.Values) == 0 && len(op.ValueBackRefs) == 0 {
			return fmt.Errorf("insert requires a payload")
		}
		if op.Selection != nil {
			return fmt.Errorf("insert does not take a selection")
		}
	case KindUpdate:
		if len(op.Values) == 0 && len(op.ValueBackRefs) == 0 {
			return fmt.Errorf("update requires a payload")
		}
	case KindDelete:
		if len(op.Values) != 0 || len(op.ValueBackRefs) != 0 {
			return fmt.Errorf("delete does not take a payload")
		}
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	return op.Target.Validate()
}

// Result is the outcome of one operation. Inserts carry the new row's
// URI; updates and deletes carry the affected-row count.
type Result struct {
	URI   resource.URI `json:"uri,omitempty"`
	Count int64        `json:"count,omitempty"`
}

// rowID returns the row ID a back-reference to this result resolves
// to. Only insert results are addressable.
func (r Result) rowID() (string, error) {
	if r.URI == "" {
		return "", fmt.Errorf("result has no row URI (only inserts are back-referenceable)")
	}
	id := r.URI.RowID()
	if id == "" {
		return "", fmt.Errorf("result URI %q has no row component", string(r.URI))
	}
	return id, nil
}
