package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mealprep"
	"mealprep/pantry"
	"mealprep/recipe"
	"mealprep/schedule"
	"mealprep/session"
)

// ToolProvider is what callers need to list and look up tools.
type ToolProvider interface {
	GetTools() []Tool
	GetTool(name string) (Tool, error)
}

// Sessions is the session lifecycle the tools drive; *session.Service implements it.
type Sessions interface {
	Create(ctx context.Context, userID string, meals []schedule.PlannedMeal) (*session.CookingSession, error)
	UpdateSessionStatus(ctx context.Context, userID, sessionID string, to session.Status) (*session.CookingSession, error)
	CompleteSession(ctx context.Context, userID, sessionID string, leftovers []pantry.AddToInventoryCommand) (*session.CookingSession, error)
	CompleteStep(ctx context.Context, userID, sessionID, stepID string) (*session.CookingSession, error)
	AddTimeAdjustment(ctx context.Context, userID, sessionID, stepID string, actualMinutes int) (*session.CookingSession, error)
	GetMealsForBatchCooking(ctx context.Context, userID string, meals []schedule.PlannedMeal, from, to time.Time) ([]schedule.PlannedMeal, error)
}

// Pantry is the ledger the tools drive; *pantry.Service implements it.
type Pantry interface {
	AddToInventory(ctx context.Context, userID string, cmd pantry.AddToInventoryCommand) (pantry.Item, error)
	ConsumeFromInventory(ctx context.Context, userID string, cmd pantry.ConsumeCommand) (pantry.Item, error)
	GetAvailableInventory(ctx context.Context, userID string) ([]pantry.Item, error)
}

// Resolver expands a recipe's component tree; *recipe.Resolver and *schedule.Builder
// implement it.
type Resolver interface {
	Resolve(recipeID string, multiplier float64) (*recipe.Resolution, error)
}

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates a registry with every planning, session and pantry tool.
func NewRegistry(sessions Sessions, ledger Pantry, resolver Resolver) *Registry {
	tools := []Tool{
		NewRecipeResolve(resolver),
		NewTimelineBuild(sessions),
		NewSessionStatusUpdate(sessions),
		NewStepComplete(sessions),
		NewTimeAdjust(sessions),
		NewMealsForBatch(sessions),
		NewPantryAdd(ledger),
		NewPantryConsume(ledger),
		NewPantryGet(ledger),
	}

	registry := make(Registry, len(tools))
	for _, t := range tools {
		registry[t.Name()] = t
	}
	return &registry
}

// GetTools returns all tools in the registry ordered by name
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// UnknownToolError is returned for a tool name the registry does not hold. It is a caller
// mistake, so it classifies as a state error.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q not found in registry", e.Name)
}

func (e *UnknownToolError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassState }

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, &UnknownToolError{Name: name}
	}
	return tool, nil
}

// Dispatch runs the named tool.
func (r Registry) Dispatch(ctx context.Context, call Call) (map[string]any, error) {
	tool, err := r.GetTool(call.Name)
	if err != nil {
		return nil, err
	}
	input := call.Input
	if input == nil {
		input = map[string]any{}
	}
	return tool.Run(ctx, input)
}

var _ ToolProvider = (*Registry)(nil)
