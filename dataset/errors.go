package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on. All construction errors
// are fatal: there is no partially usable Dataset or sampler.
var (
	// ErrImbalance reports that the minority class is not strictly smaller
	// than the majority class.
	ErrImbalance = errors.New("minority class count must be smaller than majority class count")

	// ErrDegenerateBatch reports that the requested batch size yields no
	// complete batches.
	ErrDegenerateBatch = errors.New("batch partition yields zero batches")

	// ErrInternalInvariant reports a postcondition failure in the batch
	// partition. It indicates a logic bug, not a caller error.
	ErrInternalInvariant = errors.New("batch partition postcondition violated")

	// ErrIndexOutOfRange reports an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("index out of range")
)

// SchemaError reports a required column missing from the input table.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input table missing required column %q", e.Column)
}

// ShapeError reports a length or dimension disagreement between the aligned
// arrays of a Dataset.
type ShapeError struct {
	Field string
	Got   int
	Want  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s length %d does not match record count %d", e.Field, e.Got, e.Want)
}
