// Package domain defines the core business entities for adreports.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Value: A decoded API response (scalars, lists, ordered objects)
//   - FlatRow: A single-level row produced by a flattener
//   - Table: A rectangular, back-filled result set
//   - BatchJob: An asynchronous mutate job and its poll state
//   - RunSummary: The outcome of a report run across customers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
