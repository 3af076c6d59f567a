// Package harness provides scenario-driven conformance testing for the
// transaction coordination layer.
//
// The harness loads a YAML scenario, opens a fresh in-memory store,
// applies the scenario's schema, runs the batch under test, and checks
// the declared expectations. Every run uses a deterministic row ID
// sequence and trace clock so execution traces compare byte-for-byte
// against golden files.
//
// # Scenario Format
//
//	name: reminder_chain
//	description: "What this scenario validates"
//	schema: |
//	  table: events: {
//	    columns: {title: string, done: bool}
//	    required: ["title"]
//	  }
//	setup:
//	  - op: insert
//	    target: events
//	    values: {title: existing}
//	batch:
//	  - op: insert
//	    target: events
//	    values: {title: launch}
//	  - op: insert
//	    target: reminders
//	    values: {title: t-1h}
//	    backrefs: {event_id: 0}
//	    yield: true
//	expect:
//	  notifications: [true]
//	  state:
//	    events: 2
//
// Setup steps establish initial rows and must succeed; notifications
// they trigger are discarded before the batch runs. The batch is the
// flow under test. Expectations cover the batch error (substring
// match, empty means success), the positional results, the exact
// notification sequence, and final per-table row counts.
//
// Where clauses select rows by field equality. A value of the form
// {prior: N} references the row ID produced by the batch's Nth insert:
//
//	- op: delete
//	  target: reminders
//	  where: {event_id: {prior: 0}}
package harness
