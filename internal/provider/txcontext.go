package provider

// originState is the tri-state sync-origin tracker. It starts unknown,
// is captured at most once per top-level transaction, and is read by
// the notification decision when the transaction ends. Each top-level
// transaction gets a fresh context, so the tracker starts unknown at
// every transaction start; the reopen after a yield is not a new
// top-level transaction and keeps the captured value.
type originState int

const (
	originUnknown originState = iota
	originLocal
	originSync
)

// txContext is the per-transaction state: the dirty flag and the
// captured sync origin. It is owned exclusively by the execution
// context running the top-level transaction and must never be shared
// across concurrent callers - hence no locking.
type txContext struct {
	dirty  bool
	origin originState

	// closed marks the batch transaction as finished. A nested
	// operation arriving through a stale context after the batch
	// ended is a caller bug and is rejected.
	closed bool
}

func newTxContext() *txContext {
	return &txContext{}
}

// markDirty records that some operation in this transaction changed
// persisted state. Idempotent; never cleared mid-transaction.
func (tc *txContext) markDirty() {
	tc.dirty = true
}

// consumeDirty returns the dirty flag and clears it, so the
// post-transaction notification fires at most once.
func (tc *txContext) consumeDirty() bool {
	d := tc.dirty
	tc.dirty = false
	return d
}

// captureOrigin records the sync origin if it has not been captured
// yet. Later calls in the same transaction are ignored: the first
// operation's declared origin wins, and a captured true is never
// downgraded by a later false.
func (tc *txContext) captureOrigin(sync bool) {
	if tc.origin != originUnknown {
		return
	}
	if sync {
		tc.origin = originSync
	} else {
		tc.origin = originLocal
	}
}

// syncOrigin reports whether the captured origin is a sync agent. An
// uncaptured origin counts as local.
func (tc *txContext) syncOrigin() bool {
	return tc.origin == originSync
}

func (tc *txContext) close() {
	tc.closed = true
}
