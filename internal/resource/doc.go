// Package resource provides the foundational value and addressing types
// for syncstore.
//
// This package contains type definitions and pure functions only. All
// other internal packages import resource; resource imports nothing
// internal. This keeps it the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use Int (int64) for numbers; floats
//     break deterministic canonical serialization
//   - All JSON produced for snapshots goes through MarshalCanonical
//   - URIs are plain strings with accessor methods, never pre-parsed
//     structs, so they can travel through YAML and CLI flags unchanged
package resource
