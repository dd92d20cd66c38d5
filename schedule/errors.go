package schedule

import (
	"errors"
	"fmt"
	"strings"

	"mealprep"
)

// CyclicScheduleError means the step partial order is inconsistent. Upstream ordering
// should make this impossible, so it signals an internal invariant violation.
type CyclicScheduleError struct {
	StepIDs []string
	Detail  string
}

func (e *CyclicScheduleError) Error() string {
	msg := fmt.Sprintf("inconsistent step order involving %s", strings.Join(e.StepIDs, ", "))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CyclicScheduleError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassStructural }

var ErrNoMeals = mealprep.NewStateError(errors.New("no planned meals to schedule"))
