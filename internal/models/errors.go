package models

import (
	"errors"
	"fmt"
)

// ErrSamplesNotLoaded is returned by any predicate or scoring function
// invoked on an Item whose Samples have not been hydrated.
var ErrSamplesNotLoaded = errors.New("timeline: samples not loaded")

// ErrTopologyInvariant is returned by the merge executor when neither
// canonical link orientation holds for the candidate under a fresh read.
var ErrTopologyInvariant = errors.New("timeline: topology invariant violated")

// PersistenceError wraps a failure from a read/write scope. It is always
// caught and logged at the outermost processor/observer boundary, never
// propagated past it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("timeline: persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err with the operation name that failed.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
