package provider

import (
	"context"
	"fmt"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

// ApplyBatch executes the operations in order inside one transaction.
// Results are positional: results[i] belongs to ops[i]. On error the
// returned slice is nil; operation failures carry the failing index
// while engine failures (begin, yield, end) pass through unchanged.
//
// Before every yield-permitted operation after the first, the engine
// may commit the work so far and let a waiting writer through. Rows
// committed by such a yield stay durable even if a later operation
// fails, so callers that need all-or-nothing semantics must not mark
// operations yield-permitted.
//
// Operations may reference results of earlier inserts in the same
// batch, by index, through Operation.ValueBackRefs and
// selection.Prior nodes.
func (p *Provider) ApplyBatch(ctx context.Context, ops []Operation) (results []Result, err error) {
	if len(ops) == 0 {
		return []Result{}, nil
	}
	if _, ok := batchContextFrom(ctx); ok {
		return nil, ErrNestedBatch
	}
	for i := range ops {
		if verr := ops[i].Validate(); verr != nil {
			return nil, &OperationError{Index: i, Kind: ops[i].Kind, Err: verr}
		}
	}

	tc := newTxContext()

	if err = p.engine.Begin(ctx, p.listener()); err != nil {
		return nil, err
	}
	restore := p.identity.Elevate()
	defer func() {
		tc.close()
		if endErr := p.engine.End(); endErr != nil && err == nil {
			err = endErr
		}
		p.notifyEnd(tc)
		restore()
		if err != nil {
			results = nil
		}
	}()

	batchCtx := withBatchContext(ctx, tc)
	results = make([]Result, 0, len(ops))
	for i := range ops {
		op := &ops[i]
		if i > 0 && op.YieldAllowed {
			if _, yerr := p.engine.YieldIfContended(ctx, p.yieldDelay); yerr != nil {
				// Engine failure, not an operation failure: no index wrap.
				err = yerr
				return
			}
		}
		res, aerr := p.applyOp(batchCtx, op, results)
		if aerr != nil {
			err = &OperationError{Index: i, Kind: op.Kind, Err: aerr}
			return
		}
		results = append(results, res)
	}
	p.engine.MarkSuccessful()
	return results, nil
}

// applyOp resolves back-references against prior results and
// dispatches one operation inside an open batch context.
func (p *Provider) applyOp(ctx context.Context, op *Operation, prior []Result) (Result, error) {
	values, err := resolveValueBackRefs(op, prior)
	if err != nil {
		return Result{}, err
	}
	pred, err := resolveSelectionBackRefs(op.Selection, prior)
	if err != nil {
		return Result{}, err
	}

	switch op.Kind {
	case KindInsert:
		return p.Insert(ctx, op.Target, values)
	case KindUpdate:
		return p.Update(ctx, op.Target, values, pred)
	case KindDelete:
		return p.Delete(ctx, op.Target, pred)
	default:
		return Result{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// resolveValueBackRefs copies the operation payload, overwriting the
// named columns with row IDs produced by earlier inserts.
func resolveValueBackRefs(op *Operation, prior []Result) (resource.Values, error) {
	if len(op.ValueBackRefs) == 0 {
		return op.Values, nil
	}
	values := make(resource.Values, len(op.Values)+len(op.ValueBackRefs))
	for k, v := range op.Values {
		values[k] = v
	}
	for column, index := range op.ValueBackRefs {
		id, err := priorRowID(prior, index)
		if err != nil {
			return nil, fmt.Errorf("back-reference for %q: %w", column, err)
		}
		values[column] = id
	}
	return values, nil
}

// resolveSelectionBackRefs rewrites Prior nodes into literal
// equalities against earlier insert results.
func resolveSelectionBackRefs(pred selection.Predicate, prior []Result) (selection.Predicate, error) {
	if pred == nil {
		return nil, nil
	}
	return selection.Bind(pred, func(index int) (resource.Value, error) {
		return priorRowID(prior, index)
	})
}

func priorRowID(prior []Result, index int) (resource.Value, error) {
	if index < 0 || index >= len(prior) {
		return nil, fmt.Errorf("index %d out of range (have %d results)", index, len(prior))
	}
	id, err := prior[index].rowID()
	if err != nil {
		return nil, err
	}
	return resource.String(id), nil
}
