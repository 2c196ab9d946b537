package highlight

import "errors"

// Errors returned by highlight operations. Mutations are atomic: when a
// call reports one of these, the store is exactly as it was before.
var (
	// ErrPointRange reports a range that collapses to a single token.
	// Create rejects these unless the caller passes AllowPoint.
	ErrPointRange = errors.New("highlight covers a single token")

	// ErrOverlap reports a range that would intersect an existing
	// highlight in the same store.
	ErrOverlap = errors.New("highlight overlaps an existing highlight")

	// ErrNotFound reports an id with no highlight behind it.
	ErrNotFound = errors.New("highlight not found")

	// ErrInvalidEdge reports a resize drag that does not hold exactly
	// one edge.
	ErrInvalidEdge = errors.New("resize must hold exactly one edge")
)
