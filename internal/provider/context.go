package provider

import "context"

// batchCtxKey carries the reentrancy marker: the presence of an open
// *txContext on a context.Context means a batch transaction is active
// on this execution context.
//
// The marker is context-scoped, never process-global, so concurrent
// requests cannot leak "inside a batch" state into each other.
type batchCtxKey struct{}

// withBatchContext attaches the batch transaction context.
func withBatchContext(ctx context.Context, tc *txContext) context.Context {
	return context.WithValue(ctx, batchCtxKey{}, tc)
}

// batchContextFrom returns the enclosing batch transaction context, if
// one is active. A context left over from an already-ended batch does
// not count.
func batchContextFrom(ctx context.Context) (*txContext, bool) {
	tc, ok := ctx.Value(batchCtxKey{}).(*txContext)
	if !ok || tc.closed {
		return nil, false
	}
	return tc, true
}
