package provider

import (
	"errors"
	"fmt"
)

// ErrNestedBatch is returned when ApplyBatch is called while a batch
// transaction is already open on the calling context. Batches never
// nest; nested mutations go through the single-operation calls, which
// reuse the enclosing transaction.
var ErrNestedBatch = errors.New("batch already in progress on this context")

// ErrNestedBulkInsert is returned when BulkInsert is called inside a
// batch. Bulk insert always owns its transaction and therefore cannot
// run nested.
var ErrNestedBulkInsert = errors.New("bulk insert cannot run inside a batch")

// OperationError wraps a failure of one operation in a batch with its
// position, so callers know where the sequence aborted. Everything
// after the most recent yield point has been rolled back; segments
// committed by earlier yields remain durable.
type OperationError struct {
	Index int
	Kind  Kind
	Err   error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Kind, e.Err)
}

// Unwrap returns the underlying mutation error.
func (e *OperationError) Unwrap() error {
	return e.Err
}
