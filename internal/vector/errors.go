package vector

import "fmt"

// ErrDimensionMismatch is a named error type for vector dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateID is a named error type for an id that is already present in the index.
// It indicates an internal invariant violation, not a normal operational outcome.
type ErrDuplicateID struct {
	ID string
}

// Error returns the error message for a duplicate id
func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %s already present in index", e.ID)
}
