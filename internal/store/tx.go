package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Listener receives transaction lifecycle callbacks. An explicit
// struct of closures rather than an interface: callers override only
// the hooks they need, and nil hooks are skipped.
//
//   - OnBegin fires after a transaction opens, including the reopen
//     that follows a yield.
//   - OnPreCommit fires just before a commit, including the segment
//     commit performed by a yield.
//   - OnRollback fires just before a rollback.
type Listener struct {
	OnBegin     func()
	OnPreCommit func()
	OnRollback  func()
}

// activeTx is the currently open transaction together with its
// listener and outcome flag.
type activeTx struct {
	tx         *sql.Tx
	listener   Listener
	successful bool
}

// ErrNoTransaction is returned by operations that require an open
// transaction when none is open.
var ErrNoTransaction = fmt.Errorf("no open transaction")

// Begin opens a transaction and registers the listener for its
// lifecycle. Blocks until the writer lock is available or ctx is
// cancelled. At most one transaction is open per store.
func (s *Store) Begin(ctx context.Context, listener Listener) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	if err := s.begin(ctx, listener); err != nil {
		s.release()
		return err
	}
	return nil
}

// MarkSuccessful marks the current transaction as successful: End will
// commit instead of rolling back. Panics if no transaction is open -
// that is a caller bug, not a runtime condition.
func (s *Store) MarkSuccessful() {
	if s.active == nil {
		panic("store: MarkSuccessful called outside a transaction")
	}
	s.active.successful = true
}

// End closes the current transaction: commit if it was marked
// successful (firing OnPreCommit first), rollback otherwise (firing
// OnRollback first). The writer lock is released on every path.
//
// End with no open transaction is a no-op. That keeps deferred cleanup
// safe when a failed yield already tore the transaction down.
func (s *Store) End() error {
	a := s.active
	if a == nil {
		return nil
	}
	s.active = nil
	defer s.release()

	if a.successful {
		if a.listener.OnPreCommit != nil {
			a.listener.OnPreCommit()
		}
		if err := a.tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}

	if a.listener.OnRollback != nil {
		a.listener.OnRollback()
	}
	if err := a.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (s *Store) InTransaction() bool {
	return s.active != nil
}

// YieldIfContended lets a blocked writer proceed. If no writer is
// waiting it reports false and the transaction stays open. Otherwise
// it commits the open segment (firing OnPreCommit), releases the
// writer lock, sleeps up to delay, reacquires the lock, reopens a
// transaction with the same listener (firing OnBegin), and reports
// true.
//
// CRITICAL: a yield commits work done so far regardless of whether the
// transaction was marked successful. Atomicity across a yield point is
// deliberately per-segment - callers accepted that trade-off by
// permitting the yield.
//
// On error the transaction is gone: the caller's End becomes a no-op.
func (s *Store) YieldIfContended(ctx context.Context, delay time.Duration) (bool, error) {
	a := s.active
	if a == nil {
		return false, ErrNoTransaction
	}
	if s.waiters.Load() == 0 {
		return false, nil
	}

	// Commit the segment and hand the lock over.
	s.active = nil
	if a.listener.OnPreCommit != nil {
		a.listener.OnPreCommit()
	}
	if err := a.tx.Commit(); err != nil {
		s.release()
		return false, fmt.Errorf("yield commit: %w", err)
	}
	s.release()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	if err := s.begin(ctx, a.listener); err != nil {
		s.release()
		return false, fmt.Errorf("yield reopen: %w", err)
	}
	return true, nil
}

// acquire takes the writer lock, counting this goroutine as a waiter
// while blocked so an open transaction can observe contention.
func (s *Store) acquire(ctx context.Context) error {
	s.waiters.Add(1)
	defer s.waiters.Add(-1)

	select {
	case s.writeLock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writeLock
}

// begin opens the sql.Tx and fires OnBegin. Caller must hold the
// writer lock.
func (s *Store) begin(ctx context.Context, listener Listener) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.active = &activeTx{tx: tx, listener: listener}
	if listener.OnBegin != nil {
		listener.OnBegin()
	}
	return nil
}

// requireTx returns the open transaction or ErrNoTransaction.
func (s *Store) requireTx() (*activeTx, error) {
	if s.active == nil {
		return nil, ErrNoTransaction
	}
	return s.active, nil
}
