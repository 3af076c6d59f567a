// Package store implements the single-writer SQLite storage engine for
// syncstore.
//
// It supplies the transaction primitives consumed by the provider
// layer - Begin with a lifecycle listener, MarkSuccessful, End, and
// YieldIfContended - plus the concrete table mutations (Insert, Update,
// Delete) that execute against the currently open transaction.
//
// CRITICAL: the store is single-writer. A process-wide writer lock
// serializes transactions; contention is observed through a waiter
// count maintained around lock acquisition, and YieldIfContended uses
// that count to decide whether to briefly commit and reopen the
// current transaction so a blocked writer can proceed.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: lock contention backstop
//   - foreign_keys=ON
package store
