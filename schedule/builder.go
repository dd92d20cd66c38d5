package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mealprep"
	"mealprep/recipe"
)

// PlannedMeal is the unit of input to a session: one recipe at a serving multiplier on a
// date and meal slot.
type PlannedMeal struct {
	ID         string    `json:"id" validate:"required"`
	RecipeID   string    `json:"recipe_id" validate:"required"`
	Multiplier float64   `json:"multiplier" validate:"gt=0"`
	Date       time.Time `json:"date" validate:"required"`
	Slot       string    `json:"slot,omitempty"`
}

// MealTree is the resolved dependency tree of one planned meal.
type MealTree struct {
	MealID string       `json:"meal_id"`
	Root   *recipe.Node `json:"root"`
}

// Plan is the result of building a session timeline.
type Plan struct {
	Timeline    Timeline                     `json:"timeline"`
	Ingredients []recipe.FlattenedIngredient `json:"ingredients"`
	Trees       []MealTree                   `json:"trees"`
}

// Builder runs resolution, scaling, grouping, scheduling and conflict detection. Builds
// are pure and deterministic for the same catalog, profile and meals.
type Builder struct {
	catalog   recipe.Catalog
	resolver  *recipe.Resolver
	scaler    *Scaler
	grouper   *Grouper
	scheduler *Scheduler
	profile   Profile
	validate  *validator.Validate
	tracer    trace.Tracer
}

// BuilderOption configures the builder.
type BuilderOption func(*Builder)

// WithTracer records a span per build phase.
func WithTracer(t trace.Tracer) BuilderOption {
	return func(b *Builder) {
		if t != nil {
			b.tracer = t
		}
	}
}

func NewBuilder(catalog recipe.Catalog, profile Profile, opts ...BuilderOption) *Builder {
	b := &Builder{
		catalog:   catalog,
		resolver:  recipe.NewResolver(catalog, recipe.WithMaxDepth(profile.MaxRecipeDepth)),
		scaler:    NewScaler(profile),
		grouper:   NewGrouper(profile),
		scheduler: NewScheduler(profile),
		profile:   profile,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		tracer:    noop.NewTracerProvider().Tracer(mealprep.TracerNameBuilder),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Profile returns the kitchen profile the builder schedules against.
func (b *Builder) Profile() Profile { return b.profile }

// Scheduler returns the scheduler, for reflowing timelines built by this builder.
func (b *Builder) Scheduler() *Scheduler { return b.scheduler }

// Resolve exposes the recipe graph resolution for a single recipe.
func (b *Builder) Resolve(recipeID string, multiplier float64) (*recipe.Resolution, error) {
	return b.resolver.Resolve(recipeID, multiplier)
}

// Build turns planned meals into a scheduled timeline.
func (b *Builder) Build(ctx context.Context, meals []PlannedMeal) (*Plan, error) {
	if len(meals) == 0 {
		return nil, ErrNoMeals
	}
	for i, m := range meals {
		if err := b.validate.Struct(m); err != nil {
			return nil, fmt.Errorf("planned meal %d (%q): %w", i, m.ID, err)
		}
	}

	works, ingredients, trees, err := b.resolveMeals(ctx, meals)
	if err != nil {
		b.logStructural(err)
		return nil, err
	}

	_, span := b.tracer.Start(ctx, "Builder.Group")
	steps, groups := b.grouper.Group(works)
	span.SetAttributes(attribute.Int("steps", len(steps)), attribute.Int("groups", len(groups)))
	span.End()

	_, span = b.tracer.Start(ctx, "Builder.Schedule")
	scheduled, err := b.scheduler.Schedule(steps)
	if err != nil {
		span.RecordError(err)
		span.End()
		b.logStructural(err)
		return nil, fmt.Errorf("schedule: %w", err)
	}
	conflicts := DetectConflicts(scheduled, b.profile)
	span.SetAttributes(attribute.Int("conflicts", len(conflicts)))
	span.End()

	tl := Timeline{Steps: scheduled, Groups: groups, Conflicts: conflicts}
	tl.Finalize()

	slog.Info("BUILDER: Timeline built",
		"meals", len(meals),
		"recipes", len(works),
		"steps", len(tl.Steps),
		"groups", len(groups),
		"conflicts", len(conflicts),
		"total_minutes", tl.TotalMinutes,
	)

	return &Plan{Timeline: tl, Ingredients: ingredients, Trees: trees}, nil
}

// resolveMeals resolves every meal and folds the trees into one RecipeWork per recipe,
// summing the multipliers of every occurrence of that recipe in the session.
func (b *Builder) resolveMeals(ctx context.Context, meals []PlannedMeal) ([]RecipeWork, []recipe.FlattenedIngredient, []MealTree, error) {
	ctx, span := b.tracer.Start(ctx, "Builder.Resolve")
	defer span.End()

	multipliers := make(map[string]float64)
	components := make(map[string]map[string]bool)
	var lines []recipe.FlattenedIngredient
	trees := make([]MealTree, 0, len(meals))

	for _, m := range meals {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		res, err := b.resolver.Resolve(m.RecipeID, m.Multiplier)
		if err != nil {
			span.RecordError(err)
			return nil, nil, nil, fmt.Errorf("meal %q: %w", m.ID, err)
		}
		trees = append(trees, MealTree{MealID: m.ID, Root: res.Root})
		lines = append(lines, res.Ingredients...)

		stack := []*recipe.Node{res.Root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			multipliers[n.RecipeID] += n.Multiplier
			if components[n.RecipeID] == nil {
				components[n.RecipeID] = make(map[string]bool)
			}
			for _, c := range n.Children {
				components[n.RecipeID][c.RecipeID] = true
				stack = append(stack, c)
			}
		}
	}

	ids := make([]string, 0, len(multipliers))
	for id := range multipliers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	works := make([]RecipeWork, 0, len(ids))
	for _, id := range ids {
		rec, err := b.catalog.Recipe(id)
		if err != nil {
			return nil, nil, nil, err
		}
		w := RecipeWork{RecipeID: id, Multiplier: multipliers[id]}
		for c := range components[id] {
			w.Components = append(w.Components, c)
		}
		sort.Strings(w.Components)

		own := make([]recipe.Instruction, len(rec.Instructions))
		copy(own, rec.Instructions)
		sort.SliceStable(own, func(i, j int) bool { return own[i].StepNumber < own[j].StepNumber })
		for _, in := range own {
			w.Instructions = append(w.Instructions, ScaledInstruction{
				Instruction: in,
				Scaled:      b.scaler.Scale(in.DurationMinutes, in.Action, w.Multiplier),
			})
		}
		works = append(works, w)
	}

	span.SetAttributes(attribute.Int("meals", len(meals)), attribute.Int("recipes", len(works)))
	return works, recipe.Aggregate(lines), trees, nil
}

func (b *Builder) logStructural(err error) {
	if mealprep.Classify(err) != mealprep.ClassStructural {
		return
	}
	var cyc *CyclicScheduleError
	if errors.As(err, &cyc) {
		slog.Error("BUILDER: Schedule invariant violated", "error", err, "steps", cyc.StepIDs)
		return
	}
	slog.Error("BUILDER: Recipe graph rejected", "error", err)
}
