package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/syncstore/internal/provider"
	"github.com/roach88/syncstore/internal/schema"
	"github.com/roach88/syncstore/internal/store"
	"github.com/roach88/syncstore/internal/testutil"
)

// TraceEvent is one entry in a scenario execution trace.
//
// Type is "apply" for a completed operation, "notify" for a change
// notification, "error" for the batch error.
type TraceEvent struct {
	Seq    int64
	Type   string
	Kind   string
	Target string
	URI    string
	Count  int64

	Propagate bool
	Message   string
}

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Errors lists expectation failures. Empty when Pass is true.
	Errors []string

	// Trace records operations, the batch error if any, and
	// notifications, in execution order.
	Trace []TraceEvent

	// Err is the batch error text, empty on success.
	Err string

	// Notifications are the recorded propagate flags in order.
	Notifications []bool

	// State maps each schema table to its final row count.
	State map[string]int64
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness runs scenarios. The zero value is ready to use; set Logger
// to capture execution logs.
type Harness struct {
	Logger *slog.Logger
}

// Run executes a scenario against a fresh in-memory store.
//
// Row IDs come from a deterministic sequence and trace sequence
// numbers restart at 1 for the batch, so repeated runs of the same
// scenario produce identical traces.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	st, err := store.Open(":memory:",
		store.WithIDGenerator(store.NewSequenceGenerator("row")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	specs, err := schema.CompileTables(cuecontext.New().CompileString(sc.Schema))
	if err != nil {
		return nil, fmt.Errorf("scenario schema: %w", err)
	}
	if err := st.ApplySchema(specs); err != nil {
		return nil, err
	}

	notifier := &testutil.RecordingNotifier{}
	p := provider.New(st, &provider.StoreHandler{Store: st},
		provider.WithNotifier(notifier),
		provider.WithLogger(logger),
		provider.WithYieldDelay(0))

	if len(sc.Setup) > 0 {
		setupOps, err := operations(sc.Setup)
		if err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
		if _, err := p.ApplyBatch(ctx, setupOps); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	notifier.Reset()

	res := &Result{Pass: true, State: make(map[string]int64)}
	clock := &testutil.TraceClock{}

	ops, err := operations(sc.Batch)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	logger.Info("running batch", "scenario", sc.Name, "operations", len(ops))

	results, batchErr := p.ApplyBatch(ctx, ops)
	if batchErr != nil {
		res.Err = batchErr.Error()
		res.Trace = append(res.Trace, TraceEvent{
			Seq:     clock.Next(),
			Type:    "error",
			Message: batchErr.Error(),
		})
	} else {
		for i, r := range results {
			res.Trace = append(res.Trace, TraceEvent{
				Seq:    clock.Next(),
				Type:   "apply",
				Kind:   string(ops[i].Kind),
				Target: sc.Batch[i].Target,
				URI:    string(r.URI),
				Count:  r.Count,
			})
		}
	}

	res.Notifications = notifier.Calls()
	for _, propagate := range res.Notifications {
		res.Trace = append(res.Trace, TraceEvent{
			Seq:       clock.Next(),
			Type:      "notify",
			Propagate: propagate,
		})
	}

	for _, spec := range specs {
		count, err := st.CountRows(ctx, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", spec.Name, err)
		}
		res.State[spec.Name] = count
	}

	h.check(sc, res, results)
	return res, nil
}

// check evaluates the scenario's expectations against the outcome.
func (h *Harness) check(sc *Scenario, res *Result, results []provider.Result) {
	if sc.Expect == nil {
		return
	}
	e := sc.Expect

	if e.Error == "" {
		if res.Err != "" {
			res.addError("batch failed: %s", res.Err)
		}
	} else if !strings.Contains(res.Err, e.Error) {
		res.addError("batch error %q does not contain %q", res.Err, e.Error)
	}

	for i, want := range e.Results {
		if i >= len(results) {
			res.addError("expected result %d, batch produced %d", i, len(results))
			break
		}
		got := results[i]
		if want.URI != "" && string(got.URI) != want.URI {
			res.addError("result %d: uri %q, want %q", i, got.URI, want.URI)
		}
		if want.Count != nil && got.Count != *want.Count {
			res.addError("result %d: count %d, want %d", i, got.Count, *want.Count)
		}
	}

	if e.Notifications != nil && !boolsEqual(res.Notifications, e.Notifications) {
		res.addError("notifications %v, want %v", res.Notifications, e.Notifications)
	}

	for table, want := range e.State {
		got, ok := res.State[table]
		if !ok {
			res.addError("state check references unknown table %q", table)
			continue
		}
		if got != want {
			res.addError("table %s has %d rows, want %d", table, got, want)
		}
	}
}

func boolsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
