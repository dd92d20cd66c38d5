package session

import (
	"errors"
	"fmt"
	"strings"

	"mealprep"
)

// InvalidTransitionError rejects a status change outside the lifecycle table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move session from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassState }

// PrerequisiteNotMetError rejects completing a step before the steps it depends on.
type PrerequisiteNotMetError struct {
	StepID  string
	Missing []string
}

func (e *PrerequisiteNotMetError) Error() string {
	return fmt.Sprintf("step %s is waiting on %s", e.StepID, strings.Join(e.Missing, ", "))
}

func (e *PrerequisiteNotMetError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassState }

var (
	ErrSessionNotFound      = mealprep.NewStateError(errors.New("session not found"))
	ErrSessionNotActive     = mealprep.NewStateError(errors.New("session is not in progress"))
	ErrStepNotFound         = mealprep.NewStateError(errors.New("step not found in timeline"))
	ErrStepAlreadyCompleted = mealprep.NewStateError(errors.New("step already completed"))
	ErrStepNotStarted       = mealprep.NewStateError(errors.New("step has not started yet"))
	ErrInvalidDuration      = mealprep.NewStateError(errors.New("actual duration must not be negative"))
)
