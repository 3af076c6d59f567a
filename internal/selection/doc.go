// Package selection provides the predicate IR used to filter update
// and delete mutations.
//
// Callers never hand the store raw SQL; they build a small predicate
// tree (Eq, In, And, Prior) which the store compiles to a
// parameterized WHERE clause. Prior predicates reference earlier
// results in the same batch and must be resolved with Bind before
// compilation.
package selection
