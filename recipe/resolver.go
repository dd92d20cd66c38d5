package recipe

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// DefaultMaxDepth bounds component nesting. Real recipes rarely nest more than two or
// three levels; hitting the limit points at a catalog configuration error.
const DefaultMaxDepth = 10

// Node is one recipe occurrence in the resolved dependency tree of a root recipe.
type Node struct {
	RecipeID   string  `json:"recipe_id"`
	Multiplier float64 `json:"multiplier"`
	Depth      int     `json:"depth"`
	Children   []*Node `json:"children,omitempty"`
	// Ingredients are the leaf ingredients reachable from this node, already scaled.
	Ingredients []FlattenedIngredient `json:"ingredients"`
}

// FlattenedIngredient is a primitive ingredient total across a tree or session.
type FlattenedIngredient struct {
	IngredientID    string   `json:"ingredient_id"`
	Name            string   `json:"name,omitempty"`
	Category        string   `json:"category,omitempty"`
	Unit            string   `json:"unit"`
	Amount          float64  `json:"amount"`
	SourceRecipeIDs []string `json:"source_recipe_ids"`
}

// ResolvedInstruction is an instruction annotated with the node it came from.
type ResolvedInstruction struct {
	RecipeID    string      `json:"recipe_id"`
	Instruction Instruction `json:"instruction"`
	Multiplier  float64     `json:"multiplier"`
	Depth       int         `json:"depth"`
}

// Resolution is the output of resolving one root recipe.
type Resolution struct {
	Root        *Node                 `json:"root"`
	Ingredients []FlattenedIngredient `json:"ingredients"`
	// Instructions are in post-order: every component's instructions precede the
	// instructions of the recipe that consumes it. Within a recipe they follow step number.
	Instructions []ResolvedInstruction `json:"instructions"`
}

// Resolver expands component trees. It is stateless and safe for concurrent use.
type Resolver struct {
	catalog  Catalog
	maxDepth int
}

// Option configures the resolver.
type Option func(*Resolver)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// NewResolver creates a resolver reading recipes from catalog.
func NewResolver(catalog Catalog, opts ...Option) *Resolver {
	r := &Resolver{catalog: catalog, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// frame is one entry of the explicit traversal stack.
type frame struct {
	node   *Node
	recipe *Recipe
	next   int // index of the next component to expand
}

// Resolve expands recipeID scaled by multiplier. The walk uses an explicit stack and a
// visited-path list so cycles and over-deep trees are reported as errors naming the id
// chain instead of exhausting the call stack.
func (r *Resolver) Resolve(recipeID string, multiplier float64) (*Resolution, error) {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return nil, fmt.Errorf("resolving %q with multiplier %v: %w", recipeID, multiplier, ErrInvalidMultiplier)
	}

	rootRecipe, err := r.catalog.Recipe(recipeID)
	if err != nil {
		return nil, err
	}

	root := &Node{RecipeID: rootRecipe.ID, Multiplier: multiplier}
	stack := []*frame{{node: root, recipe: rootRecipe}}
	path := []string{rootRecipe.ID}
	var instructions []ResolvedInstruction

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.recipe.Components) {
			ref := top.recipe.Components[top.next]
			top.next++

			if slices.Contains(path, ref.RecipeID) {
				return nil, &CyclicRecipeError{Chain: appendChain(path, ref.RecipeID)}
			}
			if top.node.Depth+1 > r.maxDepth {
				return nil, &MaxDepthExceededError{Chain: appendChain(path, ref.RecipeID), Limit: r.maxDepth}
			}

			component, err := r.catalog.Recipe(ref.RecipeID)
			if err != nil {
				return nil, fmt.Errorf("component of %q: %w", top.recipe.ID, err)
			}

			child := &Node{
				RecipeID:   component.ID,
				Multiplier: top.node.Multiplier * ref.Scale(component),
				Depth:      top.node.Depth + 1,
			}
			top.node.Children = append(top.node.Children, child)
			stack = append(stack, &frame{node: child, recipe: component})
			path = append(path, component.ID)
			continue
		}

		// All components done: finish this node in post-order.
		lines := make([]FlattenedIngredient, 0, len(top.recipe.Ingredients))
		for _, ing := range top.recipe.Ingredients {
			lines = append(lines, FlattenedIngredient{
				IngredientID:    ing.ID,
				Name:            ing.Name,
				Category:        ing.Category,
				Unit:            ing.Unit,
				Amount:          ing.Amount * top.node.Multiplier,
				SourceRecipeIDs: []string{top.recipe.ID},
			})
		}
		for _, child := range top.node.Children {
			lines = append(lines, child.Ingredients...)
		}
		top.node.Ingredients = Aggregate(lines)

		own := make([]Instruction, len(top.recipe.Instructions))
		copy(own, top.recipe.Instructions)
		sort.SliceStable(own, func(i, j int) bool { return own[i].StepNumber < own[j].StepNumber })
		for _, in := range own {
			instructions = append(instructions, ResolvedInstruction{
				RecipeID:    top.recipe.ID,
				Instruction: in,
				Multiplier:  top.node.Multiplier,
				Depth:       top.node.Depth,
			})
		}

		stack = stack[:len(stack)-1]
		path = path[:len(path)-1]
	}

	return &Resolution{
		Root:         root,
		Ingredients:  root.Ingredients,
		Instructions: instructions,
	}, nil
}

func appendChain(path []string, id string) []string {
	chain := make([]string, 0, len(path)+1)
	chain = append(chain, path...)
	return append(chain, id)
}

type ingredientKey struct {
	id   string
	unit string
}

// Aggregate sums ingredient lines by (ingredient id, unit). Source recipe ids are merged
// and sorted; the result is sorted by ingredient id then unit. Shopping-list generation
// uses the same rule, so session totals and shopping lists agree.
func Aggregate(lines []FlattenedIngredient) []FlattenedIngredient {
	index := make(map[ingredientKey]int, len(lines))
	out := make([]FlattenedIngredient, 0, len(lines))

	for _, l := range lines {
		k := ingredientKey{id: l.IngredientID, unit: l.Unit}
		i, ok := index[k]
		if !ok {
			l.SourceRecipeIDs = slices.Clone(l.SourceRecipeIDs)
			index[k] = len(out)
			out = append(out, l)
			continue
		}
		out[i].Amount += l.Amount
		for _, src := range l.SourceRecipeIDs {
			if !slices.Contains(out[i].SourceRecipeIDs, src) {
				out[i].SourceRecipeIDs = append(out[i].SourceRecipeIDs, src)
			}
		}
		if out[i].Name == "" {
			out[i].Name = l.Name
		}
		if out[i].Category == "" {
			out[i].Category = l.Category
		}
	}

	for i := range out {
		sort.Strings(out[i].SourceRecipeIDs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IngredientID != out[j].IngredientID {
			return out[i].IngredientID < out[j].IngredientID
		}
		return out[i].Unit < out[j].Unit
	})
	return out
}
