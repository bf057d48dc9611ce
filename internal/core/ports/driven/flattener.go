package driven

import "github.com/custodia-labs/adreports/internal/core/domain"

// Flattener turns one nested record into single-level rows.
// Output is appended to out. Unexpected shapes never fail; they degrade
// to stringified columns.
type Flattener interface {
	Flatten(record domain.Value, out *[]domain.FlatRow)
}

// FlattenerRegistry selects the flattener for a source type.
type FlattenerRegistry interface {
	// Get returns the flattener for a source type.
	// Returns ErrUnsupportedType if none is registered.
	Get(sourceType domain.SourceType) (Flattener, error)

	// Register adds or replaces the flattener for a source type.
	Register(sourceType domain.SourceType, flattener Flattener)
}
