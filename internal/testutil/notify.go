// Package testutil provides deterministic helpers shared by tests and
// the scenario harness.
package testutil

import "sync"

// RecordingNotifier captures change notifications in arrival order.
//
// Thread-safety: all methods are safe for concurrent use. Providers
// fire notifications from the calling goroutine, but scenario runners
// and contention tests may observe from another.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []bool
}

// Notify records one notification and its propagate flag.
func (n *RecordingNotifier) Notify(propagateRemote bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, propagateRemote)
}

// Calls returns a copy of the recorded propagate flags in order.
func (n *RecordingNotifier) Calls() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]bool, len(n.calls))
	copy(out, n.calls)
	return out
}

// Reset discards recorded notifications. Scenario runners call this
// after setup so expectations only cover the flow under test.
func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = nil
}
