package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
	"mealprep/pantry"
	"mealprep/recipe"
	"mealprep/schedule"
	"mealprep/storage"
)

type fixture struct {
	svc    *Service
	store  *storage.MemoryStore
	pantry *pantry.Service
	events *mealprep.FileEventLogger
	clock  *time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog := recipe.NewMapCatalog(
		recipe.Recipe{
			ID: "soup",
			Ingredients: []recipe.Ingredient{
				{ID: "onion", Name: "Onion", Category: "vegetable", Amount: 1, Unit: "count"},
			},
			Instructions: []recipe.Instruction{
				{StepNumber: 1, Action: "chop", Category: "vegetable", DurationMinutes: 10},
				{StepNumber: 2, Action: "simmer", Category: "soup", DurationMinutes: 30, Equipment: []string{"stovetop_burner"}},
			},
		},
	)
	clock := start
	store := storage.NewMemoryStore()
	events := mealprep.NewFileEventLogger(nil)
	now := func() time.Time { return clock }
	ps := pantry.NewService(store, events, pantry.WithClock(now))
	svc := NewService(store, schedule.NewBuilder(catalog, schedule.DefaultProfile()), ps, events,
		WithClock(now),
		WithIDGenerator(func() string { return "s1" }),
	)
	return fixture{svc: svc, store: store, pantry: ps, events: events, clock: &clock}
}

func meals() []schedule.PlannedMeal {
	return []schedule.PlannedMeal{{ID: "m1", RecipeID: "soup", Multiplier: 1, Date: start, Slot: "dinner"}}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cs, err := f.svc.Create(ctx, "u1", meals())
	require.NoError(t, err)
	assert.Equal(t, "s1", cs.ID)
	assert.Equal(t, StatusPlanned, cs.Status)
	assert.Equal(t, 40, cs.Timeline.TotalMinutes)

	_, err = f.svc.CompleteStep(ctx, "u1", "s1", "soup#1")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	cs, err = f.svc.UpdateSessionStatus(ctx, "u1", "s1", StatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, cs.StartedAt)

	*f.clock = start.Add(15 * time.Minute)
	_, err = f.svc.CompleteStep(ctx, "u1", "s1", "soup#1")
	require.NoError(t, err)
	cs, err = f.svc.AddTimeAdjustment(ctx, "u1", "s1", "soup#1", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, step(t, cs, "soup#2").StartOffset)
	assert.Equal(t, 45, cs.Timeline.TotalMinutes)

	stored, err := f.svc.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, cs.Revision, stored.Revision)

	cs, err = f.svc.CompleteSession(ctx, "u1", "s1", []pantry.AddToInventoryCommand{
		{IngredientID: "soup", Name: "Onion soup", Category: "leftovers", Amount: 2, Unit: "portion"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, cs.Status)

	items, err := f.pantry.GetAvailableInventory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].SourceSessionID)
	assert.Equal(t, "s1", *items[0].SourceSessionID)

	_, err = f.svc.UpdateSessionStatus(ctx, "u1", "s1", StatusAbandoned)
	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite, "completed sessions are terminal")

	var ops []string
	for _, ev := range f.events.Events() {
		ops = append(ops, ev.Operation)
	}
	assert.Equal(t, []string{
		"session_create",
		"step_complete",
		"session_status_update",
		"step_complete",
		"time_adjust",
		"session_status_update",
		"pantry_add",
		"session_status_update",
	}, ops)
}

func TestService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.UpdateSessionStatus(ctx, "u1", "missing", StatusInProgress)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.store.Load(ctx, "sessions/u1/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound, "a failed update never creates the session")
}

func TestService_RacingStepCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, "u1", meals())
	require.NoError(t, err)
	_, err = f.svc.UpdateSessionStatus(ctx, "u1", "s1", StatusInProgress)
	require.NoError(t, err)

	// Another tab completes the same step between our read and our write.
	raced := false
	f.store.BeforeSave = func(key string) {
		if raced {
			return
		}
		raced = true
		_, err := f.svc.CompleteStep(ctx, "u1", "s1", "soup#1")
		require.NoError(t, err)
	}

	_, err = f.svc.CompleteStep(ctx, "u1", "s1", "soup#1")
	assert.ErrorIs(t, err, ErrStepAlreadyCompleted, "retry sees the winner's state instead of overwriting it")

	cs, err := f.svc.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.True(t, step(t, cs, "soup#1").Completed)
}

func TestService_GetMealsForBatchCooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, "u1", meals())
	require.NoError(t, err)

	planned := append(meals(), schedule.PlannedMeal{ID: "m2", RecipeID: "soup", Multiplier: 2, Date: start.Add(24 * time.Hour), Slot: "lunch"})
	got, err := f.svc.GetMealsForBatchCooking(ctx, "u1", planned, start, start.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)

	sessions, err := f.svc.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

type flakyPantry struct {
	failOn string
	filed  []string
}

var errPantryDown = errors.New("pantry unavailable")

func (p *flakyPantry) AddToInventory(_ context.Context, _ string, cmd pantry.AddToInventoryCommand) (pantry.Item, error) {
	if cmd.IngredientID == p.failOn {
		return pantry.Item{}, errPantryDown
	}
	p.filed = append(p.filed, cmd.IngredientID)
	return pantry.Item{IngredientID: cmd.IngredientID, Amount: cmd.Amount, Unit: cmd.Unit}, nil
}

func TestService_CompleteSessionLeftoverFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	leftovers := &flakyPantry{failOn: "beans"}
	svc := NewService(f.store, schedule.NewBuilder(recipe.NewMapCatalog(recipe.Recipe{
		ID:           "soup",
		Instructions: []recipe.Instruction{{StepNumber: 1, Action: "simmer", Category: "soup", DurationMinutes: 30}},
	}), schedule.DefaultProfile()), leftovers, nil,
		WithClock(func() time.Time { return start }),
		WithIDGenerator(func() string { return "s1" }),
	)

	_, err := svc.Create(ctx, "u1", meals())
	require.NoError(t, err)
	_, err = svc.UpdateSessionStatus(ctx, "u1", "s1", StatusInProgress)
	require.NoError(t, err)

	cs, err := svc.CompleteSession(ctx, "u1", "s1", []pantry.AddToInventoryCommand{
		{IngredientID: "rice", Amount: 1, Unit: "portion"},
		{IngredientID: "beans", Amount: 2, Unit: "portion"},
		{IngredientID: "bread", Amount: 1, Unit: "loaf"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errPantryDown)
	assert.Contains(t, err.Error(), "file leftover beans")

	// The session is completed before any leftover is filed, so it stays completed and
	// only the leftovers ahead of the failure reach the pantry.
	require.NotNil(t, cs)
	assert.Equal(t, StatusCompleted, cs.Status)
	stored, err := svc.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, []string{"rice"}, leftovers.filed)
}
