package schedule

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"mealprep/recipe"
)

// RecipeWork is the session-wide work for one recipe: its instructions scaled by the sum
// of all multipliers that use the recipe in the session.
type RecipeWork struct {
	RecipeID     string
	Multiplier   float64
	Instructions []ScaledInstruction // sorted by step number
	Components   []string            // recipe ids this recipe consumes
}

// ScaledInstruction pairs an instruction with its batch-adjusted duration.
type ScaledInstruction struct {
	recipe.Instruction
	Scaled int
}

// Grouper merges equivalent batchable instructions from different recipes into shared
// mise-en-place steps.
type Grouper struct {
	profile Profile
}

func NewGrouper(p Profile) *Grouper {
	return &Grouper{profile: p}
}

type instructionNode struct {
	id       string
	recipeID string
	ins      ScaledInstruction
	deps     []int
}

type groupKey struct {
	action   recipe.ActionType
	category string
	nth      int
}

// Group returns the session steps (ordinary and merged) with their dependencies, plus the
// groups that were formed.
//
// Every instruction starts as a node depending on the previous instruction of its recipe;
// a recipe's first instruction depends on the last instruction of each component. Merged
// steps work on raw ingredients and carry no prerequisites. A step that followed a merged
// member waits for the merged step and for whatever that member itself waited for, so
// merging never introduces a cycle.
func (g *Grouper) Group(works []RecipeWork) ([]Step, []MiseEnPlaceGroup) {
	works = slices.Clone(works)
	sort.Slice(works, func(i, j int) bool { return works[i].RecipeID < works[j].RecipeID })

	var nodes []instructionNode
	perRecipe := make(map[string][]int, len(works))
	componentsOf := make(map[string][]string, len(works))
	usedIDs := make(map[string]bool)

	for _, w := range works {
		componentsOf[w.RecipeID] = w.Components
		for _, ins := range w.Instructions {
			id := fmt.Sprintf("%s#%d", w.RecipeID, ins.StepNumber)
			for n := 2; usedIDs[id]; n++ {
				id = fmt.Sprintf("%s#%d.%d", w.RecipeID, ins.StepNumber, n)
			}
			usedIDs[id] = true
			perRecipe[w.RecipeID] = append(perRecipe[w.RecipeID], len(nodes))
			nodes = append(nodes, instructionNode{id: id, recipeID: w.RecipeID, ins: ins})
		}
	}

	terminals := terminalResolver(perRecipe, componentsOf)
	for _, w := range works {
		idx := perRecipe[w.RecipeID]
		for i, n := range idx {
			if i > 0 {
				nodes[n].deps = append(nodes[n].deps, idx[i-1])
				continue
			}
			for _, c := range w.Components {
				nodes[n].deps = append(nodes[n].deps, terminals(c)...)
			}
		}
	}

	// Candidate groups: the k-th batchable (action, category) instruction of each recipe
	// joins the k-th group, so one recipe never contributes twice to the same group.
	candidates := make(map[groupKey][]int)
	for _, w := range works {
		seen := make(map[groupKey]int)
		for _, n := range perRecipe[w.RecipeID] {
			ins := nodes[n].ins
			if !g.profile.IsBatchable(ins.Action) {
				continue
			}
			kind := groupKey{action: normalizeAction(ins.Action), category: normalizeCategory(ins.Category)}
			k := kind
			k.nth = seen[kind]
			seen[kind]++
			candidates[k] = append(candidates[k], n)
		}
	}
	keys := make([]groupKey, 0, len(candidates))
	for k, members := range candidates {
		if len(members) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.action != b.action {
			return a.action < b.action
		}
		if a.category != b.category {
			return a.category < b.category
		}
		return a.nth < b.nth
	})

	rep := make([]int, len(nodes))
	for i := range rep {
		rep[i] = i
	}
	groupOf := make(map[int]groupKey)
	for _, k := range keys {
		members := candidates[k]
		for _, m := range members[1:] {
			rep[m] = members[0]
		}
		groupOf[members[0]] = k
	}

	return g.buildSteps(nodes, rep, groupOf, candidates)
}

func (g *Grouper) buildSteps(nodes []instructionNode, rep []int, groupOf map[int]groupKey, candidates map[groupKey][]int) ([]Step, []MiseEnPlaceGroup) {
	stepID := make([]string, len(nodes))
	for i := range nodes {
		r := rep[i]
		if k, ok := groupOf[r]; ok {
			stepID[i] = fmt.Sprintf("mise:%s:%s:%d", k.action, k.category, k.nth+1)
		} else {
			stepID[i] = nodes[i].id
		}
	}

	var steps []Step
	var groups []MiseEnPlaceGroup
	for i, n := range nodes {
		if rep[i] != i {
			continue
		}

		k, merged := groupOf[i]
		if !merged {
			steps = append(steps, Step{
				ID:          n.id,
				Kind:        KindRecipeInstruction,
				RecipeIDs:   []string{n.recipeID},
				Action:      n.ins.Action,
				Category:    n.ins.Category,
				Description: n.ins.Description,
				Duration:    n.ins.Scaled,
				Equipment:   dedupe(n.ins.Equipment),
				DependsOn:   prerequisites(nodes, rep, groupOf, stepID, i),
			})
			continue
		}

		members := candidates[k]
		step := Step{
			ID:        stepID[i],
			Kind:      KindMiseEnPlace,
			Action:    k.action,
			Category:  k.category,
			DependsOn: []string{},
		}
		var equipment []string
		for _, m := range members {
			mn := nodes[m]
			step.RecipeIDs = append(step.RecipeIDs, mn.recipeID)
			step.Duration = max(step.Duration, mn.ins.Scaled)
			equipment = append(equipment, mn.ins.Equipment...)
			step.Members = append(step.Members, Member{
				InstructionID: mn.id,
				RecipeID:      mn.recipeID,
				StepNumber:    mn.ins.StepNumber,
				Duration:      mn.ins.Scaled,
			})
		}
		sort.Strings(step.RecipeIDs)
		step.Equipment = dedupe(equipment)
		step.Description = fmt.Sprintf("%s %s for %s", k.action, k.category, strings.Join(step.RecipeIDs, ", "))
		steps = append(steps, step)

		group := MiseEnPlaceGroup{
			ID:        step.ID,
			StepID:    step.ID,
			Action:    k.action,
			Category:  k.category,
			RecipeIDs: slices.Clone(step.RecipeIDs),
		}
		for _, m := range step.Members {
			group.MemberIDs = append(group.MemberIDs, m.InstructionID)
		}
		groups = append(groups, group)
	}
	return steps, groups
}

// terminalResolver returns, per recipe, the nodes a consumer of that recipe must wait
// for: its last instruction, or the terminals of its own components when it has no
// instructions.
func terminalResolver(perRecipe map[string][]int, componentsOf map[string][]string) func(string) []int {
	memo := make(map[string][]int)
	visiting := make(map[string]bool)
	var resolve func(string) []int
	resolve = func(id string) []int {
		if t, ok := memo[id]; ok {
			return t
		}
		if visiting[id] {
			return nil
		}
		visiting[id] = true
		defer delete(visiting, id)

		var out []int
		if idx := perRecipe[id]; len(idx) > 0 {
			out = []int{idx[len(idx)-1]}
		} else {
			for _, c := range componentsOf[id] {
				out = append(out, resolve(c)...)
			}
		}
		memo[id] = out
		return out
	}
	return resolve
}

// prerequisites lists the step ids node i waits for. A merged predecessor contributes its
// merged step plus, in its place, the prerequisites of the instruction it absorbed.
func prerequisites(nodes []instructionNode, rep []int, groupOf map[int]groupKey, stepID []string, i int) []string {
	deps := make(map[string]bool)
	seen := make(map[int]bool)
	var walk func(n int)
	walk = func(n int) {
		for _, d := range nodes[n].deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			deps[stepID[d]] = true
			if _, merged := groupOf[rep[d]]; merged {
				walk(d)
			}
		}
	}
	walk(i)

	out := make([]string, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}
