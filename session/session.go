// Package session owns the lifecycle of a batch-cooking session: status transitions,
// step completion and time adjustments that reflow what is left of the timeline.
package session

import (
	"slices"
	"sort"
	"time"

	"mealprep/recipe"
	"mealprep/schedule"
)

// Status of a cooking session.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

var transitions = map[Status][]Status{
	StatusPlanned:    {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusAbandoned},
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// CookingSession owns its timeline. Revision counts mutations.
type CookingSession struct {
	ID          string                       `json:"id"`
	UserID      string                       `json:"user_id"`
	Status      Status                       `json:"status"`
	Meals       []schedule.PlannedMeal       `json:"meals"`
	Timeline    schedule.Timeline            `json:"timeline"`
	Ingredients []recipe.FlattenedIngredient `json:"ingredients"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
	StartedAt   *time.Time                   `json:"started_at,omitempty"`
	CompletedAt *time.Time                   `json:"completed_at,omitempty"`
	Revision    int                          `json:"revision"`
}

// New creates a planned session from a built plan.
func New(id, userID string, meals []schedule.PlannedMeal, plan *schedule.Plan, now time.Time) *CookingSession {
	return &CookingSession{
		ID:          id,
		UserID:      userID,
		Status:      StatusPlanned,
		Meals:       slices.Clone(meals),
		Timeline:    plan.Timeline.Clone(),
		Ingredients: slices.Clone(plan.Ingredients),
		CreatedAt:   now,
		UpdatedAt:   now,
		Revision:    1,
	}
}

func (s *CookingSession) touch(now time.Time) {
	s.UpdatedAt = now
	s.Revision++
}

// Transition moves the session to a new status. Entering in_progress stamps StartedAt,
// which is offset zero of the timeline.
func (s *CookingSession) Transition(to Status, now time.Time) error {
	if !CanTransition(s.Status, to) {
		return &InvalidTransitionError{From: s.Status, To: to}
	}
	switch to {
	case StatusInProgress:
		start := now
		s.StartedAt = &start
	case StatusCompleted, StatusAbandoned:
		end := now
		s.CompletedAt = &end
	}
	s.Status = to
	s.touch(now)
	return nil
}

// Offset returns the minutes elapsed since the session started.
func (s *CookingSession) Offset(now time.Time) int {
	if s.StartedAt == nil || now.Before(*s.StartedAt) {
		return 0
	}
	return int(now.Sub(*s.StartedAt) / time.Minute)
}

func (s *CookingSession) missingPrerequisites(st schedule.Step) []string {
	var missing []string
	for _, dep := range st.DependsOn {
		i, ok := s.Timeline.Lookup(dep)
		if !ok || !s.Timeline.Steps[i].Completed {
			missing = append(missing, dep)
		}
	}
	sort.Strings(missing)
	return missing
}

// CompleteStep marks a step done. stepID may name a step, a mise-en-place group or one
// instruction merged into a group; completing any of them completes the whole merged
// step and fulfils every recipe it serves. On error the session is unchanged.
func (s *CookingSession) CompleteStep(stepID string, now time.Time) (*schedule.Step, error) {
	if s.Status != StatusInProgress {
		return nil, ErrSessionNotActive
	}
	i, ok := s.Timeline.Lookup(stepID)
	if !ok {
		return nil, ErrStepNotFound
	}
	st := &s.Timeline.Steps[i]
	if st.Completed {
		return nil, ErrStepAlreadyCompleted
	}
	if missing := s.missingPrerequisites(*st); len(missing) > 0 {
		return nil, &PrerequisiteNotMetError{StepID: st.ID, Missing: missing}
	}

	at := now
	offset := s.Offset(now)
	st.Completed = true
	st.CompletedAt = &at
	st.CompletedOffset = &offset
	for m := range st.Members {
		st.Members[m].Fulfilled = true
	}
	s.touch(now)
	return st, nil
}

// AdjustTime records how long a step actually took (or is taking) and reflows every
// unfinished step. Completed steps and the adjusted step keep their offsets. When the step
// ran short, the steps downstream of it may move up by the time saved; unrelated steps
// never move earlier.
func (s *CookingSession) AdjustTime(stepID string, actualMinutes int, sched *schedule.Scheduler, profile schedule.Profile, now time.Time) (*schedule.Step, error) {
	if s.Status != StatusInProgress {
		return nil, ErrSessionNotActive
	}
	if actualMinutes < 0 {
		return nil, ErrInvalidDuration
	}
	i, ok := s.Timeline.Lookup(stepID)
	if !ok {
		return nil, ErrStepNotFound
	}
	target := s.Timeline.Steps[i]
	if !target.Completed && len(s.missingPrerequisites(target)) > 0 {
		return nil, ErrStepNotStarted
	}

	steps := slices.Clone(s.Timeline.Steps)
	actual := actualMinutes
	steps[i].ActualDuration = &actual

	var pull map[string]int
	if saved := target.EffectiveDuration() - actualMinutes; saved > 0 {
		pull = make(map[string]int)
		for _, id := range downstreamOf(steps, target.ID) {
			pull[id] = saved
		}
	}

	frozen := map[string]bool{target.ID: true}
	for _, st := range steps {
		if st.Completed {
			frozen[st.ID] = true
		}
	}
	reflowed, err := sched.Reflow(steps, frozen, pull)
	if err != nil {
		return nil, err
	}

	s.Timeline.Steps = reflowed
	s.Timeline.Conflicts = schedule.DetectConflicts(reflowed, profile)
	s.Timeline.Finalize()
	s.touch(now)

	j, _ := s.Timeline.Lookup(target.ID)
	return &s.Timeline.Steps[j], nil
}

// downstreamOf returns the ids of every step that transitively depends on id.
func downstreamOf(steps []schedule.Step, id string) []string {
	dependents := make(map[string][]string)
	for _, st := range steps {
		for _, d := range st.DependsOn {
			dependents[d] = append(dependents[d], st.ID)
		}
	}
	seen := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range dependents[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// IsActive reports whether the session still claims its meals.
func (s *CookingSession) IsActive() bool {
	return s.Status != StatusAbandoned
}

// EligibleMeals returns the meals dated within [from, to] that no non-abandoned session
// has claimed, sorted by date, then slot, then id.
func EligibleMeals(meals []schedule.PlannedMeal, sessions []CookingSession, from, to time.Time) []schedule.PlannedMeal {
	claimed := make(map[string]bool)
	for _, s := range sessions {
		if !s.IsActive() {
			continue
		}
		for _, m := range s.Meals {
			claimed[m.ID] = true
		}
	}

	out := []schedule.PlannedMeal{}
	for _, m := range meals {
		if m.Date.Before(from) || m.Date.After(to) || claimed[m.ID] {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
	return out
}
