package recipe

import (
	"fmt"
	"strings"

	"mealprep"
)

// CyclicRecipeError reports a recipe that transitively uses itself as a component.
// Chain lists the path from the root to the repeated id.
type CyclicRecipeError struct {
	Chain []string
}

func (e *CyclicRecipeError) Error() string {
	return fmt.Sprintf("cyclic recipe graph: %s", strings.Join(e.Chain, " -> "))
}

func (e *CyclicRecipeError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassStructural }

// MaxDepthExceededError reports a component tree deeper than the configured limit.
type MaxDepthExceededError struct {
	Chain []string
	Limit int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("recipe graph deeper than %d levels: %s", e.Limit, strings.Join(e.Chain, " -> "))
}

func (e *MaxDepthExceededError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassStructural }
