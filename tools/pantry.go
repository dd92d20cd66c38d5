package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"mealprep/pantry"
)

type PantryAdd struct{ ledger Pantry }

func NewPantryAdd(ledger Pantry) *PantryAdd { return &PantryAdd{ledger: ledger} }

func (t *PantryAdd) Name() string  { return "pantry_add" }
func (t *PantryAdd) Title() string { return "Add To Pantry" }
func (t *PantryAdd) Description() string {
	return "Adds an ingredient quantity to the user's pantry, merging with an existing entry in the same unit."
}

func (t *PantryAdd) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id":           str(),
		"ingredient_id":     str(),
		"name":              str(),
		"category":          str(),
		"amount":            number(),
		"unit":              str(),
		"source_session_id": str(),
	}, "user_id", "ingredient_id", "amount", "unit")
}

func (t *PantryAdd) OutputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{"item": itemSchema()}, "item")
}

func (t *PantryAdd) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID string `json:"user_id" validate:"required"`
		pantry.AddToInventoryCommand
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	item, err := t.ledger.AddToInventory(ctx, in.UserID, in.AddToInventoryCommand)
	if err != nil {
		return nil, err
	}
	return toMap(struct {
		Item pantry.Item `json:"item"`
	}{item})
}

type PantryConsume struct{ ledger Pantry }

func NewPantryConsume(ledger Pantry) *PantryConsume { return &PantryConsume{ledger: ledger} }

func (t *PantryConsume) Name() string  { return "pantry_consume" }
func (t *PantryConsume) Title() string { return "Consume From Pantry" }
func (t *PantryConsume) Description() string {
	return "Removes an ingredient quantity from the user's pantry. Fails without change when the pantry holds less than requested."
}

func (t *PantryConsume) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"user_id":       str(),
		"ingredient_id": str(),
		"amount":        number(),
		"unit":          str(),
	}, "user_id", "ingredient_id", "amount")
}

func (t *PantryConsume) OutputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{"item": itemSchema()}, "item")
}

func (t *PantryConsume) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		UserID string `json:"user_id" validate:"required"`
		pantry.ConsumeCommand
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	item, err := t.ledger.ConsumeFromInventory(ctx, in.UserID, in.ConsumeCommand)
	if err != nil {
		return nil, err
	}
	return toMap(struct {
		Item pantry.Item `json:"item"`
	}{item})
}
