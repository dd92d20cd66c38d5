// Package pantry is the per-user virtual pantry: a ledger of leftover and manually added
// ingredient quantities that never goes negative.
package pantry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"mealprep"
)

const epsilon = 1e-9

// Item is one ingredient in one unit held by a user.
type Item struct {
	IngredientID    string    `json:"ingredient_id"`
	Name            string    `json:"name,omitempty"`
	Category        string    `json:"category,omitempty"`
	Amount          float64   `json:"amount"`
	Unit            string    `json:"unit"`
	SourceSessionID *string   `json:"source_session_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Inventory is the whole pantry of one user. Items are unique per (ingredient, unit).
type Inventory struct {
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddToInventoryCommand adds leftovers or a manual purchase.
type AddToInventoryCommand struct {
	IngredientID    string  `json:"ingredient_id" validate:"required"`
	Name            string  `json:"name,omitempty"`
	Category        string  `json:"category,omitempty"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	Unit            string  `json:"unit" validate:"required"`
	SourceSessionID string  `json:"source_session_id,omitempty"`
}

// ConsumeCommand takes an amount out of the pantry. Unit may be empty when the
// ingredient is stocked in a single unit.
type ConsumeCommand struct {
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	Unit         string  `json:"unit,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	ErrInvalidCommand = mealprep.NewStateError(errors.New("invalid pantry command"))
	ErrAmbiguousUnit  = mealprep.NewStateError(errors.New("ingredient is stocked in several units, name one"))
)

// InsufficientInventoryError is returned instead of truncating a consumption.
type InsufficientInventoryError struct {
	IngredientID string
	Unit         string
	Requested    float64
	Available    float64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient %s: requested %g %s, available %g", e.IngredientID, e.Requested, e.Unit, e.Available)
}

func (e *InsufficientInventoryError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassState }

func (inv *Inventory) find(ingredientID, unit string) int {
	for i, it := range inv.Items {
		if it.IngredientID == ingredientID && it.Unit == unit {
			return i
		}
	}
	return -1
}

// Add increments the matching item or creates it.
func (inv *Inventory) Add(cmd AddToInventoryCommand, now time.Time) (Item, error) {
	if err := validate.Struct(cmd); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	i := inv.find(cmd.IngredientID, cmd.Unit)
	if i < 0 {
		inv.Items = append(inv.Items, Item{IngredientID: cmd.IngredientID, Unit: cmd.Unit})
		i = len(inv.Items) - 1
	}
	it := &inv.Items[i]
	it.Amount += cmd.Amount
	if cmd.Name != "" {
		it.Name = cmd.Name
	}
	if cmd.Category != "" {
		it.Category = cmd.Category
	}
	if cmd.SourceSessionID != "" {
		src := cmd.SourceSessionID
		it.SourceSessionID = &src
	}
	it.UpdatedAt = now
	inv.UpdatedAt = now
	return *it, nil
}

// Consume decrements the matching item. It fails without mutation when the request
// exceeds what is held; an item that reaches zero is removed and returned with amount 0.
func (inv *Inventory) Consume(cmd ConsumeCommand, now time.Time) (Item, error) {
	if err := validate.Struct(cmd); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	unit := cmd.Unit
	if unit == "" {
		var units []string
		for _, it := range inv.Items {
			if it.IngredientID == cmd.IngredientID {
				units = append(units, it.Unit)
			}
		}
		if len(units) > 1 {
			return Item{}, ErrAmbiguousUnit
		}
		if len(units) == 1 {
			unit = units[0]
		}
	}

	i := inv.find(cmd.IngredientID, unit)
	if i < 0 {
		return Item{}, &InsufficientInventoryError{IngredientID: cmd.IngredientID, Unit: unit, Requested: cmd.Amount}
	}
	it := inv.Items[i]
	if cmd.Amount > it.Amount+epsilon {
		return Item{}, &InsufficientInventoryError{IngredientID: cmd.IngredientID, Unit: unit, Requested: cmd.Amount, Available: it.Amount}
	}

	it.Amount -= cmd.Amount
	it.UpdatedAt = now
	inv.UpdatedAt = now
	if it.Amount <= epsilon {
		it.Amount = 0
		inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
		return it, nil
	}
	inv.Items[i] = it
	return it, nil
}

// Available returns a copy of the items sorted by category, then name, then unit.
func (inv *Inventory) Available() []Item {
	out := make([]Item, len(inv.Items))
	copy(out, inv.Items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		return a.IngredientID < b.IngredientID
	})
	return out
}
