package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/syncstore/internal/resource"
	"github.com/roach88/syncstore/internal/selection"
	"github.com/roach88/syncstore/internal/store"
)

// testEngine records transaction lifecycle events in order and mimics
// the store's listener firing: OnBegin on every begin (including the
// reopen after a yield), OnPreCommit before every commit, OnRollback
// before a rollback.
type testEngine struct {
	events     []string
	listener   store.Listener
	open       bool
	successful bool

	// contended makes every YieldIfContended report a waiting writer.
	contended bool

	beginErr error
	endErr   error
	yieldErr error
}

func (e *testEngine) Begin(ctx context.Context, l store.Listener) error {
	if e.beginErr != nil {
		return e.beginErr
	}
	e.events = append(e.events, "begin")
	e.listener = l
	e.open = true
	e.successful = false
	if l.OnBegin != nil {
		l.OnBegin()
	}
	return nil
}

func (e *testEngine) MarkSuccessful() {
	e.successful = true
}

func (e *testEngine) End() error {
	if !e.open {
		return nil
	}
	e.open = false
	if e.successful {
		if e.listener.OnPreCommit != nil {
			e.listener.OnPreCommit()
		}
		e.events = append(e.events, "commit")
	} else {
		if e.listener.OnRollback != nil {
			e.listener.OnRollback()
		}
		e.events = append(e.events, "rollback")
	}
	return e.endErr
}

func (e *testEngine) YieldIfContended(ctx context.Context, delay time.Duration) (bool, error) {
	if e.yieldErr != nil {
		return false, e.yieldErr
	}
	if !e.contended {
		return false, nil
	}
	if e.listener.OnPreCommit != nil {
		e.listener.OnPreCommit()
	}
	e.events = append(e.events, "yield")
	e.successful = false
	if e.listener.OnBegin != nil {
		e.listener.OnBegin()
	}
	return true, nil
}

// count returns how many recorded events match name.
func (e *testEngine) count(name string) int {
	n := 0
	for _, ev := range e.events {
		if ev == name {
			n++
		}
	}
	return n
}

// fakeHandler returns canned results and records every call it sees.
type fakeHandler struct {
	inserts []fakeMutation
	updates []fakeMutation
	deletes []fakeMutation

	nextRow int

	// failAtInsert aborts the Nth insert (0-based, -1 disables).
	failAtInsert int
	// changed is returned from updates and deletes.
	changed bool
	// panicOnInsert makes the first insert panic.
	panicOnInsert bool
}

type fakeMutation struct {
	target resource.URI
	values resource.Values
	pred   selection.Predicate
	sync   bool
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{failAtInsert: -1, changed: true}
}

func (h *fakeHandler) ApplyInsert(ctx context.Context, target resource.URI, values resource.Values, syncOrigin bool) (resource.URI, bool, error) {
	if h.panicOnInsert {
		panic("handler blew up")
	}
	if h.failAtInsert == len(h.inserts) {
		return "", false, errors.New("constraint violation")
	}
	h.inserts = append(h.inserts, fakeMutation{target: target, values: values, sync: syncOrigin})
	h.nextRow++
	return resource.JoinRow(target.Table(), fmt.Sprintf("row-%d", h.nextRow)), true, nil
}

func (h *fakeHandler) ApplyUpdate(ctx context.Context, target resource.URI, values resource.Values, pred selection.Predicate, syncOrigin bool) (int64, bool, error) {
	h.updates = append(h.updates, fakeMutation{target: target, values: values, pred: pred, sync: syncOrigin})
	if !h.changed {
		return 0, false, nil
	}
	return 1, true, nil
}

func (h *fakeHandler) ApplyDelete(ctx context.Context, target resource.URI, pred selection.Predicate, syncOrigin bool) (int64, bool, error) {
	h.deletes = append(h.deletes, fakeMutation{target: target, pred: pred, sync: syncOrigin})
	if !h.changed {
		return 0, false, nil
	}
	return 1, true, nil
}

// recordingNotifier captures every notification.
type recordingNotifier struct {
	calls []bool
}

func (n *recordingNotifier) Notify(propagateRemote bool) {
	n.calls = append(n.calls, propagateRemote)
}

func note(values ...string) resource.Values {
	v := resource.Values{"title": resource.String("hello")}
	for i := 0; i+1 < len(values); i += 2 {
		v[values[i]] = resource.String(values[i+1])
	}
	return v
}

func TestInsert_OpensOneTransactionAndNotifies(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	res, err := p.Insert(context.Background(), "events", note())
	require.NoError(t, err)
	assert.Equal(t, resource.URI("events/row-1"), res.URI)

	assert.Equal(t, []string{"begin", "commit"}, eng.events)
	require.Len(t, n.calls, 1)
	assert.True(t, n.calls[0], "local mutation propagates outward")
}

func TestInsert_SyncOrigin_SuppressesPropagation(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	_, err := p.Insert(context.Background(), "events?caller_is_sync_adapter=true", note())
	require.NoError(t, err)

	require.Len(t, n.calls, 1)
	assert.False(t, n.calls[0], "sync-agent mutation must not echo back out")
	require.Len(t, h.inserts, 1)
	assert.True(t, h.inserts[0].sync)
}

func TestInsert_HandlerErrorRollsBackWithoutNotifying(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	h.failAtInsert = 0
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	_, err := p.Insert(context.Background(), "events", note())
	require.Error(t, err)

	assert.Equal(t, []string{"begin", "rollback"}, eng.events)
	assert.Empty(t, n.calls, "nothing changed, nothing to announce")
}

func TestUpdate_NoMatchingRows_CommitsWithoutNotifying(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	h.changed = false
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	res, err := p.Update(context.Background(), "events", note(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Count)

	assert.Equal(t, []string{"begin", "commit"}, eng.events)
	assert.Empty(t, n.calls)
}

func TestUpdate_RowURINarrowsSelection(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	p := New(eng, h)

	_, err := p.Update(context.Background(), "events/e1", note(), nil)
	require.NoError(t, err)

	require.Len(t, h.updates, 1)
	assert.Equal(t, selection.Eq{Field: "id", Value: resource.String("e1")}, h.updates[0].pred)
}

func TestDelete_RowURICombinesWithCallerSelection(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	p := New(eng, h)

	caller := selection.Eq{Field: "done", Value: resource.Bool(true)}
	_, err := p.Delete(context.Background(), "events/e1", caller)
	require.NoError(t, err)

	require.Len(t, h.deletes, 1)
	want := selection.And{Predicates: []selection.Predicate{
		selection.Eq{Field: "id", Value: resource.String("e1")},
		caller,
	}}
	assert.Equal(t, want, h.deletes[0].pred)
}

func TestApplyBatch_Empty(t *testing.T) {
	eng := &testEngine{}
	n := &recordingNotifier{}
	p := New(eng, newFakeHandler(), WithNotifier(n))

	results, err := p.ApplyBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []Result{}, results)
	assert.Empty(t, eng.events, "empty batch must not open a transaction")
	assert.Empty(t, n.calls)
}

func TestApplyBatch_OneTransactionManyOperations(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindUpdate, Target: "events", Values: note("title", "changed")},
		{Kind: KindDelete, Target: "reminders"},
	}
	results, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, resource.URI("events/row-1"), results[0].URI)
	assert.Equal(t, resource.URI("events/row-2"), results[1].URI)
	assert.Equal(t, int64(1), results[2].Count)
	assert.Equal(t, int64(1), results[3].Count)

	assert.Equal(t, 1, eng.count("begin"), "batch shares one transaction")
	assert.Equal(t, 1, eng.count("commit"))
	require.Len(t, n.calls, 1, "many changes, one notification")
}

func TestApplyBatch_FailureReportsIndexAndRollsBack(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	h.failAtInsert = 2
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note()},
	}
	results, err := p.ApplyBatch(context.Background(), ops)
	require.Error(t, err)
	assert.Nil(t, results)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 2, opErr.Index)
	assert.Equal(t, KindInsert, opErr.Kind)

	assert.Equal(t, 1, eng.count("rollback"))
	require.Len(t, n.calls, 1, "earlier operations changed state before the failure")
}

func TestApplyBatch_RejectsNesting(t *testing.T) {
	p := New(&testEngine{}, newFakeHandler())
	ctx := withBatchContext(context.Background(), newTxContext())

	_, err := p.ApplyBatch(ctx, []Operation{{Kind: KindInsert, Target: "events", Values: note()}})
	require.ErrorIs(t, err, ErrNestedBatch)
}

func TestApplyBatch_ClosedContextDoesNotCountAsNested(t *testing.T) {
	eng := &testEngine{}
	p := New(eng, newFakeHandler())

	tc := newTxContext()
	tc.close()
	ctx := withBatchContext(context.Background(), tc)

	_, err := p.ApplyBatch(ctx, []Operation{{Kind: KindInsert, Target: "events", Values: note()}})
	require.NoError(t, err)
	assert.Equal(t, 1, eng.count("begin"), "stale marker must not suppress the new transaction")
}

func TestSingleOp_InsideBatchReusesTransaction(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	p := New(eng, h)

	tc := newTxContext()
	ctx := withBatchContext(context.Background(), tc)

	res, err := p.Insert(ctx, "events", note())
	require.NoError(t, err)
	assert.Equal(t, resource.URI("events/row-1"), res.URI)

	assert.Empty(t, eng.events, "nested call must not touch the engine")
	assert.True(t, tc.dirty, "nested change lands on the enclosing transaction")
}

func TestApplyBatch_YieldsOnlyBeforePermittedOps(t *testing.T) {
	eng := &testEngine{contended: true}
	h := newFakeHandler()
	p := New(eng, h, WithYieldDelay(0))

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note(), YieldAllowed: true},
		{Kind: KindInsert, Target: "events", Values: note(), YieldAllowed: true},
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note(), YieldAllowed: true},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	assert.Equal(t, 2, eng.count("yield"), "first op never yields, non-permitted ops never yield")
}

func TestApplyBatch_YieldedSegmentSurvivesLaterFailure(t *testing.T) {
	eng := &testEngine{contended: true}
	h := newFakeHandler()
	h.failAtInsert = 2
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n), WithYieldDelay(0))

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note(), YieldAllowed: true},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.Error(t, err)

	// The yield before op 2 committed the first segment; only the
	// segment opened by the yield rolls back.
	assert.Equal(t, []string{"begin", "yield", "rollback"}, eng.events)
	require.Len(t, n.calls, 1, "the durable segment changed state, so notification fires")
}

func TestApplyBatch_ValueBackReference(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	p := New(eng, h)

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "reminders", Values: note(), ValueBackRefs: map[string]int{"event_id": 0}},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, h.inserts, 2)
	assert.Equal(t, resource.String("row-1"), h.inserts[1].values["event_id"])
}

func TestApplyBatch_SelectionBackReference(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	p := New(eng, h)

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindDelete, Target: "reminders", Selection: selection.Prior{Field: "event_id", Index: 0}},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, h.deletes, 1)
	assert.Equal(t, selection.Eq{Field: "event_id", Value: resource.String("row-1")}, h.deletes[0].pred)
}

func TestApplyBatch_BackReferenceToNonInsertFails(t *testing.T) {
	p := New(&testEngine{}, newFakeHandler())

	ops := []Operation{
		{Kind: KindUpdate, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "reminders", Values: note(), ValueBackRefs: map[string]int{"event_id": 0}},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.Index)
}

func TestApplyBatch_BackReferenceOutOfRangeFails(t *testing.T) {
	p := New(&testEngine{}, newFakeHandler())

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note(), ValueBackRefs: map[string]int{"event_id": 0}},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestApplyBatch_OriginCapturedFromFirstOperation(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	// First operation declares sync origin; a later local operation
	// must not flip the captured origin back.
	ops := []Operation{
		{Kind: KindInsert, Target: "events?caller_is_sync_adapter=true", Values: note()},
		{Kind: KindInsert, Target: "events?caller_is_sync_adapter=false", Values: note()},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, n.calls, 1)
	assert.False(t, n.calls[0])
}

func TestApplyBatch_OriginSurvivesYieldReopen(t *testing.T) {
	eng := &testEngine{contended: true}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n), WithYieldDelay(0))

	// The yield before the second op re-begins the transaction. The
	// notification decision was bound when the batch started and must
	// not revert to "local" across the reopen.
	ops := []Operation{
		{Kind: KindInsert, Target: "events?caller_is_sync_adapter=true", Values: note()},
		{Kind: KindInsert, Target: "events?caller_is_sync_adapter=true", Values: note(), YieldAllowed: true},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, n.calls, 1)
	assert.False(t, n.calls[0])
}

func TestTxContext_OriginCaptureFirstWins(t *testing.T) {
	tc := newTxContext()
	assert.False(t, tc.syncOrigin(), "uncaptured origin counts as local")

	tc.captureOrigin(true)
	assert.True(t, tc.syncOrigin())

	tc.captureOrigin(false)
	assert.True(t, tc.syncOrigin(), "a later local operation must not downgrade a captured sync origin")
}

func TestApplyBatch_YieldFailurePropagatesEngineError(t *testing.T) {
	yieldErr := errors.New("yield reopen: database is locked")
	eng := &testEngine{contended: true, yieldErr: yieldErr}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n), WithYieldDelay(0))

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindInsert, Target: "events", Values: note(), YieldAllowed: true},
	}
	results, err := p.ApplyBatch(context.Background(), ops)
	require.ErrorIs(t, err, yieldErr)
	assert.Nil(t, results)

	// Engine failures carry no operation index.
	var opErr *OperationError
	assert.False(t, errors.As(err, &opErr))
	require.Len(t, n.calls, 1, "the first operation changed state before the engine failed")
}

func TestBulkInsert_OneTransactionYieldPerElement(t *testing.T) {
	eng := &testEngine{contended: true}
	h := newFakeHandler()
	n := &recordingNotifier{}
	p := New(eng, h, WithNotifier(n))

	count, err := p.BulkInsert(context.Background(), "events", []resource.Values{note(), note(), note()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.Equal(t, 1, eng.count("begin"))
	assert.Equal(t, 3, eng.count("yield"), "yield attempt follows every element")
	require.Len(t, n.calls, 1)
}

func TestBulkInsert_RejectedInsideBatch(t *testing.T) {
	p := New(&testEngine{}, newFakeHandler())
	ctx := withBatchContext(context.Background(), newTxContext())

	_, err := p.BulkInsert(ctx, "events", []resource.Values{note()})
	require.ErrorIs(t, err, ErrNestedBulkInsert)
}

func TestInsert_PanicStillRollsBackAndRestores(t *testing.T) {
	eng := &testEngine{}
	h := newFakeHandler()
	h.panicOnInsert = true
	id := &recordingIdentity{}
	p := New(eng, h, WithIdentity(id))

	require.Panics(t, func() {
		_, _ = p.Insert(context.Background(), "events", note())
	})

	assert.Equal(t, 1, eng.count("rollback"), "unmarked transaction rolls back on panic")
	assert.Equal(t, 1, id.restores, "privilege restored on the panic path")
}

// recordingIdentity counts elevate/restore pairs and optionally logs
// into a shared trace.
type recordingIdentity struct {
	elevations int
	restores   int
	trace      *[]string
}

func (id *recordingIdentity) Elevate() func() {
	id.elevations++
	if id.trace != nil {
		*id.trace = append(*id.trace, "elevate")
	}
	return func() {
		id.restores++
		if id.trace != nil {
			*id.trace = append(*id.trace, "restore")
		}
	}
}

// tracingEngine layers event capture into a shared trace on top of
// testEngine, for cleanup ordering assertions.
type tracingEngine struct {
	testEngine
	trace *[]string
}

func (e *tracingEngine) End() error {
	err := e.testEngine.End()
	*e.trace = append(*e.trace, "end")
	return err
}

func TestSingleOp_CleanupOrder(t *testing.T) {
	trace := []string{}
	eng := &tracingEngine{trace: &trace}
	id := &recordingIdentity{trace: &trace}
	n := NotifyFunc(func(bool) { trace = append(trace, "notify") })
	p := New(eng, newFakeHandler(), WithIdentity(id), WithNotifier(n))

	_, err := p.Insert(context.Background(), "events", note())
	require.NoError(t, err)

	assert.Equal(t, []string{"elevate", "restore", "end", "notify"}, trace)
}

func TestApplyBatch_CleanupOrder(t *testing.T) {
	trace := []string{}
	eng := &tracingEngine{trace: &trace}
	id := &recordingIdentity{trace: &trace}
	n := NotifyFunc(func(bool) { trace = append(trace, "notify") })
	p := New(eng, newFakeHandler(), WithIdentity(id), WithNotifier(n))

	_, err := p.ApplyBatch(context.Background(), []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
	})
	require.NoError(t, err)

	// Batch cleanup ends the transaction and notifies before dropping
	// the elevated identity.
	assert.Equal(t, []string{"elevate", "end", "notify", "restore"}, trace)
}

func TestOperation_Validate(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		wantErr string
	}{
		{"insert needs payload", Operation{Kind: KindInsert, Target: "events"}, "requires a payload"},
		{"insert rejects selection", Operation{Kind: KindInsert, Target: "events", Values: note(), Selection: selection.Eq{Field: "id", Value: resource.String("x")}}, "does not take a selection"},
		{"update needs payload", Operation{Kind: KindUpdate, Target: "events"}, "requires a payload"},
		{"delete rejects payload", Operation{Kind: KindDelete, Target: "events", Values: note()}, "does not take a payload"},
		{"unknown kind", Operation{Kind: "upsert", Target: "events"}, "unknown operation kind"},
		{"bad target", Operation{Kind: KindDelete, Target: ""}, "empty table"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestApplyBatch_InvalidOperationRejectedBeforeTransaction(t *testing.T) {
	eng := &testEngine{}
	p := New(eng, newFakeHandler())

	ops := []Operation{
		{Kind: KindInsert, Target: "events", Values: note()},
		{Kind: KindDelete, Target: "events", Values: note()},
	}
	_, err := p.ApplyBatch(context.Background(), ops)
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.Index)
	assert.Empty(t, eng.events, "validation failures must not open a transaction")
}
