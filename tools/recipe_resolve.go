package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type RecipeResolve struct{ resolver Resolver }

func NewRecipeResolve(resolver Resolver) *RecipeResolve { return &RecipeResolve{resolver: resolver} }

func (t *RecipeResolve) Name() string  { return "recipe_resolve" }
func (t *RecipeResolve) Title() string { return "Resolve Recipe" }
func (t *RecipeResolve) Description() string {
	return "Expands a recipe's components into a dependency tree and flattened, scaled ingredient totals."
}

func (t *RecipeResolve) InputSchema() *jsonschema.Schema {
	return objectOf(map[string]*jsonschema.Schema{
		"recipe_id":  str(),
		"multiplier": number(),
	}, "recipe_id")
}

func (t *RecipeResolve) OutputSchema() *jsonschema.Schema {
	node := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipe_id":   str(),
			"multiplier":  number(),
			"depth":       integer(),
			"children":    {Type: "array", Items: &jsonschema.Schema{Type: "object"}},
			"ingredients": {Type: "array", Items: ingredientSchema()},
		},
		Required: []string{"recipe_id", "multiplier", "depth"},
	}
	return objectOf(map[string]*jsonschema.Schema{
		"tree":        node,
		"ingredients": {Type: "array", Items: ingredientSchema()},
	}, "tree", "ingredients")
}

func (t *RecipeResolve) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in struct {
		RecipeID   string  `json:"recipe_id" validate:"required"`
		Multiplier float64 `json:"multiplier" validate:"gte=0"`
	}
	if err := decodeInput(t.Name(), input, &in); err != nil {
		return nil, err
	}
	if in.Multiplier == 0 {
		in.Multiplier = 1
	}

	res, err := t.resolver.Resolve(in.RecipeID, in.Multiplier)
	if err != nil {
		return nil, err
	}
	return toMap(map[string]any{
		"tree":        res.Root,
		"ingredients": res.Ingredients,
	})
}
