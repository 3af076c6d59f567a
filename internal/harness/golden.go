package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/syncstore/internal/resource"
)

// snapshotMap flattens a result trace for canonical serialization.
// Zero fields are omitted so events stay compact; notify events always
// carry their propagate flag.
func snapshotMap(name string, trace []TraceEvent) map[string]any {
	events := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{
			"seq":  ev.Seq,
			"type": ev.Type,
		}
		if ev.Kind != "" {
			m["kind"] = ev.Kind
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.URI != "" {
			m["uri"] = ev.URI
		}
		if ev.Count != 0 {
			m["count"] = ev.Count
		}
		if ev.Message != "" {
			m["message"] = ev.Message
		}
		if ev.Type == "notify" {
			m["propagate"] = ev.Propagate
		}
		events[i] = m
	}
	return map[string]any{
		"scenario": name,
		"trace":    events,
	}
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden. Regenerate golden
// files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) *Result {
	t.Helper()

	h := &Harness{}
	res, err := h.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	data, err := resource.MarshalCanonical(snapshotMap(sc.Name, res.Trace))
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return res
}
