// Package recipe resolves recipes that embed other recipes as components into flat
// ingredient totals and dependency-ordered instruction lists.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionType classifies what an instruction does ("chop", "bake", ...).
type ActionType string

// Recipe as handed to the core by the catalog collaborator.
type Recipe struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	YieldAmount  float64        `json:"yield_amount,omitempty"`
	YieldUnit    string         `json:"yield_unit,omitempty"`
	Instructions []Instruction  `json:"instructions"`
	Ingredients  []Ingredient   `json:"ingredients"`
	Components   []ComponentRef `json:"components,omitempty"`
}

// Instruction is one preparation step of a recipe.
type Instruction struct {
	StepNumber      int        `json:"step_number"`
	Action          ActionType `json:"action"`
	Category        string     `json:"category"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Equipment       []string   `json:"equipment,omitempty"`
}

// Ingredient is a primitive (non-recipe) ingredient line.
type Ingredient struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// ComponentRef uses another recipe as an ingredient.
type ComponentRef struct {
	RecipeID string  `json:"recipe_id"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit,omitempty"`
}

// Scale returns how many batches of component c one batch of the parent needs.
func (c ComponentRef) Scale(component *Recipe) float64 {
	amount := c.Amount
	if amount <= 0 {
		return 1
	}
	if component != nil && component.YieldAmount > 0 && c.Unit != "" && c.Unit == component.YieldUnit {
		return amount / component.YieldAmount
	}
	return amount
}

// Catalog supplies recipes by id.
type Catalog interface {
	Recipe(id string) (*Recipe, error)
}

// MapCatalog is an in-memory arena of recipes keyed by id.
type MapCatalog map[string]*Recipe

// NewMapCatalog indexes recipes by id.
func NewMapCatalog(recipes ...Recipe) MapCatalog {
	c := make(MapCatalog, len(recipes))
	for i := range recipes {
		r := recipes[i]
		c[r.ID] = &r
	}
	return c
}

func (c MapCatalog) Recipe(id string) (*Recipe, error) {
	r, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("recipe %q: %w", id, ErrRecipeNotFound)
	}
	return r, nil
}

// DecodeCatalog reads a JSON array of recipes. Duplicate ids are rejected.
func DecodeCatalog(data []byte) (MapCatalog, error) {
	var recipes []Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	seen := make(map[string]bool, len(recipes))
	for _, r := range recipes {
		if r.ID == "" {
			return nil, errors.New("decode recipes: recipe without id")
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("decode recipes: duplicate recipe %q", r.ID)
		}
		seen[r.ID] = true
	}
	return NewMapCatalog(recipes...), nil
}

var (
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrInvalidMultiplier = errors.New("multiplier must be positive")
)
