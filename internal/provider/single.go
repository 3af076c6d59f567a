package provider

import (
	"context"
	"fmt"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
)

// Insert writes one row. Outside a batch it opens its own transaction;
// inside a batch it executes directly against the enclosing
// transaction and records dirtiness there.
func (p *Provider) Insert(ctx context.Context, target resource.URI, values resource.Values) (Result, error) {
	if err := target.Validate(); err != nil {
		return Result{}, err
	}
	sync := target.SyncAdapter()

	if tc, ok := batchContextFrom(ctx); ok {
		tc.captureOrigin(sync)
		uri, changed, err := p.handler.ApplyInsert(ctx, target, values, sync)
		if err != nil {
			return Result{}, err
		}
		if changed {
			tc.markDirty()
		}
		return Result{URI: uri}, nil
	}

	tc := newTxContext()
	var res Result
	err := p.runInTransaction(ctx, tc, func(ctx context.Context) error {
		tc.captureOrigin(sync)
		uri, changed, err := p.handler.ApplyInsert(ctx, target, values, sync)
		if err != nil {
			return err
		}
		if changed {
			tc.markDirty()
		}
		res = Result{URI: uri}
		return nil
	})
	return res, err
}

// Update modifies rows matching the selection. The target URI may
// address a single row, which narrows the selection to that row.
// Transaction behavior matches Insert.
func (p *Provider) Update(ctx context.Context, target resource.URI, values resource.Values, pred selection.Predicate) (Result, error) {
	if err := target.Validate(); err != nil {
		return Result{}, err
	}
	sync := target.SyncAdapter()
	pred = narrowToRow(target, pred)

	if tc, ok := batchContextFrom(ctx); ok {
		tc.captureOrigin(sync)
		count, changed, err := p.handler.ApplyUpdate(ctx, target, values, pred, sync)
		if err != nil {
			return Result{}, err
		}
		if changed {
			tc.markDirty()
		}
		return Result{Count: count}, nil
	}

	tc := newTxContext()
	var res Result
	err := p.runInTransaction(ctx, tc, func(ctx context.Context) error {
		tc.captureOrigin(sync)
		count, changed, err := p.handler.ApplyUpdate(ctx, target, values, pred, sync)
		if err != nil {
			return err
		}
		if changed {
			tc.markDirty()
		}
		res = Result{Count: count}
		return nil
	})
	return res, err
}

// Delete removes rows matching the selection. Transaction behavior
// matches Insert.
func (p *Provider) Delete(ctx context.Context, target resource.URI, pred selection.Predicate) (Result, error) {
	if err := target.Validate(); err != nil {
		return Result{}, err
	}
	sync := target.SyncAdapter()
	pred = narrowToRow(target, pred)

	if tc, ok := batchContextFrom(ctx); ok {
		tc.captureOrigin(sync)
		count, changed, err := p.handler.ApplyDelete(ctx, target, pred, sync)
		if err != nil {
			return Result{}, err
		}
		if changed {
			tc.markDirty()
		}
		return Result{Count: count}, nil
	}

	tc := newTxContext()
	var res Result
	err := p.runInTransaction(ctx, tc, func(ctx context.Context) error {
		tc.captureOrigin(sync)
		count, changed, err := p.handler.ApplyDelete(ctx, target, pred, sync)
		if err != nil {
			return err
		}
		if changed {
			tc.markDirty()
		}
		res = Result{Count: count}
		return nil
	})
	return res, err
}

// BulkInsert writes many rows to one target inside a single top-level
// transaction, attempting a contention yield after every element. One
// logical call, so it notifies at most once; but the same lock-
// yielding discipline as a batch applies, including per-segment
// durability if a later element fails after a yield.
//
// BulkInsert never nests: calling it inside a batch is an error.
func (p *Provider) BulkInsert(ctx context.Context, target resource.URI, payloads []resource.Values) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	if _, ok := batchContextFrom(ctx); ok {
		return 0, ErrNestedBulkInsert
	}
	sync := target.SyncAdapter()

	tc := newTxContext()
	err := p.runInTransaction(ctx, tc, func(ctx context.Context) error {
		tc.captureOrigin(sync)
		for i, values := range payloads {
			_, changed, err := p.handler.ApplyInsert(ctx, target, values, sync)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			if changed {
				tc.markDirty()
			}
			if _, err := p.engine.YieldIfContended(ctx, 0); err != nil {
				return fmt.Errorf("element %d: yield: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(payloads)), nil
}

// narrowToRow adds an id constraint when the URI addresses a single
// row. A nil predicate on a row URI becomes just the id match.
func narrowToRow(target resource.URI, pred selection.Predicate) selection.Predicate {
	id := target.RowID()
	if id == "" {
		return pred
	}
	idPred := selection.Eq{Field: "id", Value: resource.String(id)}
	if pred == nil {
		return idPred
	}
	return selection.And{Predicates: []selection.Predicate{idPred, pred}}
}
