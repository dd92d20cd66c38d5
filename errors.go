package mealprep

import "errors"

// ErrorClass groups failures by how callers should react to them.
type ErrorClass int

const (
	// ClassInternal covers anything not classified below.
	ClassInternal ErrorClass = iota
	// ClassStructural errors (cyclic recipes, depth overruns, cyclic schedules) are fatal
	// to the operation and never retried.
	ClassStructural
	// ClassState errors are expected user-facing conditions shown verbatim.
	ClassState
	// ClassConcurrency errors are transient optimistic-lock losses.
	ClassConcurrency
)

// String returns a human-readable class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassState:
		return "state"
	case ClassConcurrency:
		return "concurrency"
	default:
		return "internal"
	}
}

// Classified is implemented by errors that know their class.
type Classified interface {
	error
	ErrorClass() ErrorClass
}

// Classify returns the class of the first classified error in err's chain.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassInternal
	}
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	return ClassInternal
}

// StateError marks a sentinel as a user-facing state condition.
type StateError struct {
	Err error
}

// NewStateError declares a state-class sentinel, e.g.
//
//	var ErrNotActive = mealprep.NewStateError(errors.New("session is not active"))
func NewStateError(err error) *StateError { return &StateError{Err: err} }

func (e *StateError) Error() string          { return e.Err.Error() }
func (e *StateError) Unwrap() error          { return e.Err }
func (e *StateError) ErrorClass() ErrorClass { return ClassState }
