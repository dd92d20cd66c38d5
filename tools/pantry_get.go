package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"mealprep/pantry"
)

type PantryGet struct{ ledger Pantry }

func NewPantryGet(ledger Pantry) *PantryGet { return &PantryGet{ledger: ledger} }

func (t *PantryGet) Name() string  { return "pantry_get" }
func (t *PantryGet) Title() string { return "Get Pantry" }
func (t *PantryGet) Description() string {
	return "Returns the user's pantry items sorted by category, then name."
}

func (t *PantryGet) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{"user_id": str()}, "user_id")
}

func (t *PantryGet) OutputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"items": {Type: "array", Items: itemSchema()},
	}, "items")
}

func (t *PantryGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}

	items, err := t.ledger.GetAvailableInventory(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	// Initialize items slice to prevent nil when empty
	if items == nil {
		items = make([]pantry.Item, 0)
	}
	return toMap(struct {
		Items []pantry.Item `json:"items"`
	}{items})
}
