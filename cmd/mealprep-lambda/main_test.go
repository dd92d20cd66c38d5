package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
	"mealprep/pantry"
	"mealprep/recipe"
	"mealprep/schedule"
	"mealprep/session"
	"mealprep/storage"
	"mealprep/tools"
)

func newRegistry(t *testing.T, store storage.Store) *tools.Registry {
	t.Helper()
	catalog, err := loadCatalog(context.Background(), store, "catalog/recipes")
	require.NoError(t, err)
	events := mealprep.NewNoOpEventLogger()
	builder := schedule.NewBuilder(catalog, schedule.DefaultProfile())
	ledger := pantry.NewService(store, events)
	return tools.NewRegistry(session.NewService(store, builder, ledger, events), ledger, builder)
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_, err := store.Save(ctx, "catalog/recipes", []byte(`[{"id":"toast","instructions":[{"step_number":1,"action":"toast","duration_minutes":3}]}]`), "")
	require.NoError(t, err)
	registry := newRegistry(t, store)

	res, err := handle(ctx, registry, Params{Tool: "pantry_add", Input: map[string]any{
		"user_id": "u1", "ingredient_id": "bread", "amount": 2.0, "unit": "slice",
	}})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, 2.0, res.Output["item"].(map[string]any)["amount"])

	res, err = handle(ctx, registry, Params{Tool: "pantry_consume", Input: map[string]any{
		"user_id": "u1", "ingredient_id": "bread", "amount": 5.0, "unit": "slice",
	}})
	require.NoError(t, err, "rejections are results, not invocation failures")
	assert.Equal(t, "state", res.ErrorClass)
	assert.NotEmpty(t, res.Error)

	res, err = handle(ctx, registry, Params{Tool: "pantry_teleport"})
	require.NoError(t, err, "an unknown tool is the caller's mistake")
	assert.Equal(t, "state", res.ErrorClass)
	assert.Equal(t, `tool "pantry_teleport" not found in registry`, res.Error)

	_, err = handle(ctx, registry, Params{Tool: "recipe_resolve", Input: map[string]any{"recipe_id": "cake"}})
	assert.ErrorIs(t, err, recipe.ErrRecipeNotFound)
}

func TestLoadCatalog_Missing(t *testing.T) {
	_, err := loadCatalog(context.Background(), storage.NewMemoryStore(), "catalog/recipes")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
