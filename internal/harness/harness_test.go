package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := LoadScenario(path)
			require.NoError(t, err)

			res := RunWithGolden(t, sc)
			assert.True(t, res.Pass, "expectation failures: %v", res.Errors)
		})
	}
}

func TestRun_ReportsExpectationFailures(t *testing.T) {
	sc := &Scenario{
		Name:   "wrong_count",
		Schema: "table: events: {columns: {title: string}}",
		Batch: []Step{
			{Op: "insert", Target: "events", Values: map[string]any{"title": "x"}},
		},
		Expect: &Expect{
			Notifications: []bool{false},
			State:         map[string]int64{"events": 5},
		},
	}

	h := &Harness{}
	res, err := h.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.False(t, res.Pass)
	assert.Len(t, res.Errors, 2, "wrong notification flag and wrong row count")
}

func TestRun_SetupNotificationsDiscarded(t *testing.T) {
	sc := &Scenario{
		Name:   "setup_quiet",
		Schema: "table: events: {columns: {title: string}}",
		Setup: []Step{
			{Op: "insert", Target: "events", Values: map[string]any{"title": "pre"}},
		},
		Batch: []Step{
			{Op: "insert", Target: "events", Values: map[string]any{"title": "main"}},
		},
	}

	h := &Harness{}
	res, err := h.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, res.Notifications, "only the batch notification remains")
	assert.Equal(t, int64(2), res.State["events"])
}

func TestRun_BadSchemaFails(t *testing.T) {
	sc := &Scenario{
		Name:   "bad_schema",
		Schema: "table: events: {columns: {price: float}}",
		Batch:  []Step{{Op: "delete", Target: "events"}},
	}

	h := &Harness{}
	_, err := h.Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestRun_StateCountsEveryTable(t *testing.T) {
	sc := &Scenario{
		Name: "two_tables",
		Schema: `
table: events: {columns: {title: string}}
table: reminders: {columns: {title: string}}
`,
		Batch: []Step{
			{Op: "insert", Target: "events", Values: map[string]any{"title": "a"}},
		},
	}

	h := &Harness{}
	res, err := h.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.State["events"])
	assert.Equal(t, int64(0), res.State["reminders"])
}
