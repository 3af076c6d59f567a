// Package provider implements the transaction-coordination core of
// syncstore.
//
// Every externally visible mutation executes inside exactly one store
// transaction. Single operations open their own transaction unless a
// batch transaction is already active on the calling context, in which
// case they run against the enclosing transaction. Batches open one
// transaction for the whole sequence and cooperatively yield the
// writer lock between operations that permit it.
//
// Change notification fires at most once per top-level transaction,
// after the transaction has ended. Whether the notification asks for
// remote propagation is decided by the sync origin captured when the
// transaction opened: a mutation that itself came from a
// synchronization agent is not echoed back outward, which prevents
// notification feedback loops.
//
// CRITICAL: atomicity for a batch that triggers yields is per-segment,
// not whole-batch. A yield commits the work done so far; a later
// failure rolls back only the still-open segment. Callers opted into
// that trade-off by flagging operations yield-allowed.
package provider
