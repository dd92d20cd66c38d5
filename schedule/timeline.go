// Package schedule turns resolved recipes into a single batch-cooking timeline: it scales
// durations, merges shared mise en place, orders steps against equipment capacity and
// reports the equipment conflicts it could not avoid.
package schedule

import (
	"sort"
	"time"

	"mealprep/recipe"
)

// StepKind tags the two step variants sharing the scheduling fields of Step.
type StepKind string

const (
	KindRecipeInstruction StepKind = "recipe_instruction"
	KindMiseEnPlace       StepKind = "mise_en_place"
)

// Member is one recipe instruction folded into a merged mise-en-place step.
type Member struct {
	InstructionID string `json:"instruction_id"`
	RecipeID      string `json:"recipe_id"`
	StepNumber    int    `json:"step_number"`
	Duration      int    `json:"duration_minutes"`
	Fulfilled     bool   `json:"fulfilled"`
}

// Step is one entry of the cooking timeline. Offsets and durations are minutes from the
// session start.
type Step struct {
	ID          string            `json:"id"`
	Kind        StepKind          `json:"kind"`
	RecipeIDs   []string          `json:"recipe_ids"`
	Action      recipe.ActionType `json:"action"`
	Category    string            `json:"category"`
	Description string            `json:"description,omitempty"`
	StartOffset int               `json:"start_offset_minutes"`
	Duration    int               `json:"duration_minutes"`
	Equipment   []string          `json:"equipment,omitempty"`
	DependsOn   []string          `json:"depends_on,omitempty"`
	Members     []Member          `json:"members,omitempty"`

	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedOffset *int       `json:"completed_offset_minutes,omitempty"`
	ActualDuration  *int       `json:"actual_duration_minutes,omitempty"`
}

// EffectiveDuration is the observed duration when one was recorded, else the planned one.
func (s Step) EffectiveDuration() int {
	if s.ActualDuration != nil {
		return *s.ActualDuration
	}
	return s.Duration
}

// End is the offset at which the step finishes.
func (s Step) End() int {
	return s.StartOffset + s.EffectiveDuration()
}

// MiseEnPlaceGroup describes a merged step; it references the step by id.
type MiseEnPlaceGroup struct {
	ID        string            `json:"id"`
	StepID    string            `json:"step_id"`
	Action    recipe.ActionType `json:"action"`
	Category  string            `json:"category"`
	RecipeIDs []string          `json:"recipe_ids"`
	MemberIDs []string          `json:"member_ids"`
}

// ResourceConflict is advisory: it never blocks scheduling.
type ResourceConflict struct {
	Equipment   string   `json:"equipment"`
	Capacity    int      `json:"capacity"`
	StepIDs     []string `json:"step_ids"`
	StartOffset int      `json:"start_offset_minutes"`
	EndOffset   int      `json:"end_offset_minutes"`
	Severity    string   `json:"severity"`
}

const SeverityAdvisory = "advisory"

// Timeline is the scheduled plan of a cooking session.
type Timeline struct {
	Steps        []Step             `json:"steps"`
	Groups       []MiseEnPlaceGroup `json:"groups,omitempty"`
	Conflicts    []ResourceConflict `json:"conflicts"`
	TotalMinutes int                `json:"total_minutes"`
}

// Clone returns a deep copy so callers can mutate a timeline without touching the original.
func (t Timeline) Clone() Timeline {
	out := Timeline{TotalMinutes: t.TotalMinutes}
	out.Steps = cloneSteps(t.Steps)
	if t.Groups != nil {
		out.Groups = make([]MiseEnPlaceGroup, len(t.Groups))
		for i, g := range t.Groups {
			g.RecipeIDs = append([]string(nil), g.RecipeIDs...)
			g.MemberIDs = append([]string(nil), g.MemberIDs...)
			out.Groups[i] = g
		}
	}
	if t.Conflicts != nil {
		out.Conflicts = make([]ResourceConflict, len(t.Conflicts))
		for i, c := range t.Conflicts {
			c.StepIDs = append([]string(nil), c.StepIDs...)
			out.Conflicts[i] = c
		}
	}
	return out
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.RecipeIDs = append([]string(nil), s.RecipeIDs...)
		s.Equipment = append([]string(nil), s.Equipment...)
		s.DependsOn = append([]string(nil), s.DependsOn...)
		s.Members = append([]Member(nil), s.Members...)
		if s.CompletedAt != nil {
			at := *s.CompletedAt
			s.CompletedAt = &at
		}
		if s.CompletedOffset != nil {
			off := *s.CompletedOffset
			s.CompletedOffset = &off
		}
		if s.ActualDuration != nil {
			d := *s.ActualDuration
			s.ActualDuration = &d
		}
		out[i] = s
	}
	return out
}

// Lookup finds the step for a step id, a group id or the id of an instruction merged into
// a mise-en-place step.
func (t *Timeline) Lookup(id string) (int, bool) {
	for i, s := range t.Steps {
		if s.ID == id {
			return i, true
		}
	}
	for _, g := range t.Groups {
		if g.ID == id {
			return t.Lookup(g.StepID)
		}
	}
	for i, s := range t.Steps {
		for _, m := range s.Members {
			if m.InstructionID == id {
				return i, true
			}
		}
	}
	return -1, false
}

// Finalize sorts steps by start offset and recomputes the total duration.
func (t *Timeline) Finalize() {
	sort.SliceStable(t.Steps, func(i, j int) bool {
		if t.Steps[i].StartOffset != t.Steps[j].StartOffset {
			return t.Steps[i].StartOffset < t.Steps[j].StartOffset
		}
		return t.Steps[i].ID < t.Steps[j].ID
	})
	total := 0
	for _, s := range t.Steps {
		total = max(total, s.End())
	}
	t.TotalMinutes = total
	if t.Conflicts == nil {
		t.Conflicts = []ResourceConflict{}
	}
}
