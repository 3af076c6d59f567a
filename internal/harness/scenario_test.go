package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: demo
schema: "table: events: {columns: {title: string}}"
batch:
  - op: insert
    target: events
    values: {title: hello, priority: 3, done: false}
`)
	sc, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", sc.Name)
	require.Len(t, sc.Batch, 1)
	assert.Equal(t, "insert", sc.Batch[0].Op)
	assert.Equal(t, 3, sc.Batch[0].Values["priority"])
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
schema: "table: events: {columns: {title: string}}"
bacth:
  - op: insert
    target: events
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bacth")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestScenarioValidate(t *testing.T) {
	cases := []struct {
		name    string
		sc      Scenario
		wantErr string
	}{
		{
			"missing name",
			Scenario{Schema: "x", Batch: []Step{{Op: "insert", Target: "t"}}},
			"name is required",
		},
		{
			"missing schema",
			Scenario{Name: "n", Batch: []Step{{Op: "insert", Target: "t"}}},
			"schema is required",
		},
		{
			"empty batch",
			Scenario{Name: "n", Schema: "x"},
			"at least one step",
		},
		{
			"unknown op",
			Scenario{Name: "n", Schema: "x", Batch: []Step{{Op: "upsert", Target: "t"}}},
			`unknown op "upsert"`,
		},
		{
			"missing target",
			Scenario{Name: "n", Schema: "x", Batch: []Step{{Op: "insert"}}},
			"target is required",
		},
		{
			"bad setup step",
			Scenario{Name: "n", Schema: "x",
				Setup: []Step{{Op: "nope", Target: "t"}},
				Batch: []Step{{Op: "insert", Target: "t"}}},
			"setup step 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
