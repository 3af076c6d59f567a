package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance test: a schema, optional setup rows, a
// batch to execute, and expectations on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are stored
	// under testdata/golden/{name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is inline CUE defining the tables, compiled and applied
	// to a fresh store before the scenario runs.
	Schema string `yaml:"schema"`

	// Setup steps establish initial state. They run as their own
	// batch and must succeed; their notifications are discarded.
	Setup []Step `yaml:"setup,omitempty"`

	// Batch is the operation sequence under test.
	Batch []Step `yaml:"batch"`

	// Expect declares the outcome checks. Optional: a scenario with
	// no expectations only exercises golden trace comparison.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one mutation in a setup or batch sequence.
type Step struct {
	// Op is the mutation kind: "insert", "update" or "delete".
	Op string `yaml:"op"`

	// Target is the resource URI the mutation addresses.
	Target string `yaml:"target"`

	// Values is the payload for insert and update. Strings, ints,
	// bools and nulls only.
	Values map[string]any `yaml:"values,omitempty"`

	// Where selects rows for update and delete: field name to literal,
	// all conjoined. A value of {prior: N} resolves to the row ID
	// produced by the batch's operation N.
	Where map[string]any `yaml:"where,omitempty"`

	// BackRefs substitutes prior insert row IDs into the payload:
	// column name to operation index.
	BackRefs map[string]int `yaml:"backrefs,omitempty"`

	// Yield permits a contention yield before this operation.
	Yield bool `yaml:"yield,omitempty"`
}

// Expect declares outcome checks for a scenario.
type Expect struct {
	// Error is a substring the batch error must contain. Empty means
	// the batch must succeed.
	Error string `yaml:"error,omitempty"`

	// Results are positional checks against the batch results. Only
	// the fields set on each entry are compared.
	Results []ExpectResult `yaml:"results,omitempty"`

	// Notifications is the exact expected notification sequence, one
	// propagate flag per notification. Omit to skip the check; an
	// empty list asserts that nothing was notified.
	Notifications []bool `yaml:"notifications,omitempty"`

	// State maps table names to expected final row counts.
	State map[string]int64 `yaml:"state,omitempty"`
}

// ExpectResult checks one positional batch result.
type ExpectResult struct {
	URI   string `yaml:"uri,omitempty"`
	Count *int64 `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping a
// check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks structural requirements before execution.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(sc.Batch) == 0 {
		return fmt.Errorf("batch must contain at least one step")
	}
	for i, s := range sc.Setup {
		if err := s.validate(); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
	}
	for i, s := range sc.Batch {
		if err := s.validate(); err != nil {
			return fmt.Errorf("batch step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if s.Target == "" {
		return fmt.Errorf("target is required")
	}
	return nil
}
