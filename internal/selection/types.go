package selection

import "github.com/roach88/syncstore/internal/resource"

// Predicate represents a filter condition applied to update and delete
// mutations.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and
// enables exhaustive type switches in the SQL compiler.
//
// Predicate types:
//   - Eq: field = literal value
//   - In: field IN (values...)
//   - And: all predicates must be true
//   - Prior: field = the row ID of an earlier result in the same batch
//
// A nil Predicate matches every row (unfiltered update/delete).
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Eq represents a field-equals-literal predicate.
//
// Example:
//
//	Eq{Field: "calendar_id", Value: resource.String("work")}
//
// compiles to:
//
//	calendar_id = ?    params: ["work"]
//
// Value must be a resource.Value (no floats). NULL never equals
// anything in SQL; Eq with resource.Null compiles to "field IS NULL".
type Eq struct {
	Field string
	Value resource.Value
}

func (Eq) predicateNode() {}

// In represents a field-in-set predicate.
//
// Example:
//
//	In{Field: "status", Values: []resource.Value{resource.String("tentative"), resource.String("cancelled")}}
//
// compiles to:
//
//	status IN (?, ?)
//
// An empty Values set matches no rows ("1 = 0").
type In struct {
	Field  string
	Values []resource.Value
}

func (In) predicateNode() {}

// And represents a conjunction of predicates.
// An empty conjunction is vacuously true ("1 = 1").
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Prior represents a back-reference to an earlier operation's result
// in the same batch: field = <row ID of result at Index>.
//
// Prior cannot be compiled directly - the batch executor must first
// resolve it against the accumulated results via Bind. Compiling an
// unresolved Prior is an error.
type Prior struct {
	Field string
	Index int // Position of the referenced result within the batch
}

func (Prior) predicateNode() {}
