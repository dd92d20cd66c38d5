package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"mealprep/pantry"
	"mealprep/schedule"
	"mealprep/session"
)

type mealInput struct {
	ID         string  `json:"id" validate:"required"`
	RecipeID   string  `json:"recipe_id" validate:"required"`
	Multiplier float64 `json:"multiplier" validate:"gt=0"`
	Date       string  `json:"date" validate:"required"`
	Slot       string  `json:"slot"`
}

func plannedMeals(tool string, in []mealInput) ([]schedule.PlannedMeal, error) {
	meals := make([]schedule.PlannedMeal, 0, len(in))
	for _, m := range in {
		date, err := parseDate(m.Date)
		if err != nil {
			return nil, &InvalidInputError{Tool: tool, Err: fmt.Errorf("meal %s: %w", m.ID, err)}
		}
		meals = append(meals, schedule.PlannedMeal{
			ID:         m.ID,
			RecipeID:   m.RecipeID,
			Multiplier: m.Multiplier,
			Date:       date,
			Slot:       m.Slot,
		})
	}
	return meals, nil
}

func sessionOutput() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{"session": sessionSchema()}, "session")
}

func timelineOutput() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"session_id": str(),
		"status":     str(),
		"timeline":   timelineSchema(),
	}, "session_id", "timeline")
}

func encodeSession(cs *session.CookingSession) (map[string]any, error) {
	return toMap(struct {
		Session *session.CookingSession `json:"session"`
	}{cs})
}

func encodeTimeline(cs *session.CookingSession) (map[string]any, error) {
	return toMap(struct {
		SessionID string            `json:"session_id"`
		Status    session.Status    `json:"status"`
		Timeline  schedule.Timeline `json:"timeline"`
	}{cs.ID, cs.Status, cs.Timeline})
}

type TimelineBuild struct{ sessions Sessions }

func NewTimelineBuild(sessions Sessions) *TimelineBuild { return &TimelineBuild{sessions: sessions} }

func (t *TimelineBuild) Name() string  { return "timeline_build" }
func (t *TimelineBuild) Title() string { return "Build Cooking Timeline" }
func (t *TimelineBuild) Description() string {
	return "Plans a batch-cooking session for the given meals: resolves components, merges shared prep and schedules every step against kitchen equipment."
}

func (t *TimelineBuild) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id": str(),
		"meals":   {Type: "array", Items: mealSchema()},
	}, "user_id", "meals")
}

func (t *TimelineBuild) OutputSchema() *jsonschema.Schema { return sessionOutput() }

func (t *TimelineBuild) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID string      `json:"user_id" validate:"required"`
		Meals  []mealInput `json:"meals" validate:"required,min=1,dive"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	meals, err := plannedMeals(t.Name(), in.Meals)
	if err != nil {
		return nil, err
	}
	cs, err := t.sessions.Create(ctx, in.UserID, meals)
	if err != nil {
		return nil, err
	}
	return encodeSession(cs)
}

type SessionStatusUpdate struct{ sessions Sessions }

func NewSessionStatusUpdate(sessions Sessions) *SessionStatusUpdate {
	return &SessionStatusUpdate{sessions: sessions}
}

func (t *SessionStatusUpdate) Name() string  { return "session_status_update" }
func (t *SessionStatusUpdate) Title() string { return "Update Session Status" }
func (t *SessionStatusUpdate) Description() string {
	return "Moves a session along planned -> in_progress -> completed|abandoned. Leftovers given with a completion are added to the pantry."
}

func (t *SessionStatusUpdate) InputSchema() *jsonschema.Schema {
	status := str()
	status.Enum = []any{
		string(session.StatusInProgress),
		string(session.StatusCompleted),
		string(session.StatusAbandoned),
	}
	leftover := objectOf(map[string]*jsonschema.Schema{
		"ingredient_id": str(),
		"name":          str(),
		"category":      str(),
		"amount":        number(),
		"unit":          str(),
	}, "ingredient_id", "amount", "unit")
	return objectOf(map[string]*jsonschema.Schema{
		"user_id":    str(),
		"session_id": str(),
		"status":     status,
		"leftovers":  {Type: "array", Items: leftover},
	}, "user_id", "session_id", "status")
}

func (t *SessionStatusUpdate) OutputSchema() *jsonschema.Schema { return sessionOutput() }

func (t *SessionStatusUpdate) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID    string                         `json:"user_id" validate:"required"`
		SessionID string                         `json:"session_id" validate:"required"`
		Status    session.Status                 `json:"status" validate:"required,oneof=planned in_progress completed abandoned"`
		Leftovers []pantry.AddToInventoryCommand `json:"leftovers" validate:"dive"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}

	var (
		cs  *session.CookingSession
		err error
	)
	if in.Status == session.StatusCompleted {
		cs, err = t.sessions.CompleteSession(ctx, in.UserID, in.SessionID, in.Leftovers)
	} else {
		cs, err = t.sessions.UpdateSessionStatus(ctx, in.UserID, in.SessionID, in.Status)
	}
	if err != nil {
		return nil, err
	}
	return encodeSession(cs)
}

type StepComplete struct{ sessions Sessions }

func NewStepComplete(sessions Sessions) *StepComplete { return &StepComplete{sessions: sessions} }

func (t *StepComplete) Name() string  { return "step_complete" }
func (t *StepComplete) Title() string { return "Complete Step" }
func (t *StepComplete) Description() string {
	return "Marks a timeline step done. A recipe instruction merged into shared prep completes the shared step for every recipe."
}

func (t *StepComplete) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id":    str(),
		"session_id": str(),
		"step_id":    str(),
	}, "user_id", "session_id", "step_id")
}

func (t *StepComplete) OutputSchema() *jsonschema.Schema { return timelineOutput() }

func (t *StepComplete) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID    string `json:"user_id" validate:"required"`
		SessionID string `json:"session_id" validate:"required"`
		StepID    string `json:"step_id" validate:"required"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	cs, err := t.sessions.CompleteStep(ctx, in.UserID, in.SessionID, in.StepID)
	if err != nil {
		return nil, err
	}
	return encodeTimeline(cs)
}

type TimeAdjust struct{ sessions Sessions }

func NewTimeAdjust(sessions Sessions) *TimeAdjust { return &TimeAdjust{sessions: sessions} }

func (t *TimeAdjust) Name() string  { return "time_adjust" }
func (t *TimeAdjust) Title() string { return "Adjust Step Time" }
func (t *TimeAdjust) Description() string {
	return "Records how long a step actually took and reschedules the steps that have not finished yet."
}

func (t *TimeAdjust) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id":        str(),
		"session_id":     str(),
		"step_id":        str(),
		"actual_minutes": integer(),
	}, "user_id", "session_id", "step_id", "actual_minutes")
}

func (t *TimeAdjust) OutputSchema() *jsonschema.Schema { return timelineOutput() }

func (t *TimeAdjust) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID        string `json:"user_id" validate:"required"`
		SessionID     string `json:"session_id" validate:"required"`
		StepID        string `json:"step_id" validate:"required"`
		ActualMinutes *int   `json:"actual_minutes" validate:"required"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	cs, err := t.sessions.AddTimeAdjustment(ctx, in.UserID, in.SessionID, in.StepID, *in.ActualMinutes)
	if err != nil {
		return nil, err
	}
	return encodeTimeline(cs)
}

type MealsForBatch struct{ sessions Sessions }

func NewMealsForBatch(sessions Sessions) *MealsForBatch { return &MealsForBatch{sessions: sessions} }

func (t *MealsForBatch) Name() string  { return "meals_for_batch" }
func (t *MealsForBatch) Title() string { return "Meals For Batch Cooking" }
func (t *MealsForBatch) Description() string {
	return "Filters planned meals in [from, to] down to those no planned or running session already covers."
}

func (t *MealsForBatch) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id": str(),
		"from":    str(),
		"to":      str(),
		"meals":   {Type: "array", Items: mealSchema()},
	}, "user_id", "from", "to", "meals")
}

func (t *MealsForBatch) OutputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"meals": {Type: "array", Items: mealSchema()},
	}, "meals")
}

func (t *MealsForBatch) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID string      `json:"user_id" validate:"required"`
		From   string      `json:"from" validate:"required"`
		To     string      `json:"to" validate:"required"`
		Meals  []mealInput `json:"meals" validate:"dive"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	from, err := parseDate(in.From)
	if err != nil {
		return nil, &InvalidInputError{Tool: t.Name(), Err: fmt.Errorf("from: %w", err)}
	}
	to, err := parseRangeEnd(in.To)
	if err != nil {
		return nil, &InvalidInputError{Tool: t.Name(), Err: fmt.Errorf("to: %w", err)}
	}
	meals, err := plannedMeals(t.Name(), in.Meals)
	if err != nil {
		return nil, err
	}

	eligible, err := t.sessions.GetMealsForBatchCooking(ctx, in.UserID, meals, from, to)
	if err != nil {
		return nil, err
	}
	if eligible == nil {
		eligible = make([]schedule.PlannedMeal, 0)
	}
	return toMap(struct {
		Meals []schedule.PlannedMeal `json:"meals"`
	}{eligible})
}
