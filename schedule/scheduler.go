package schedule

import (
	"log/slog"
	"sort"
)

// Scheduler assigns start offsets with a greedy list-scheduling pass.
type Scheduler struct {
	profile Profile
}

func NewScheduler(p Profile) *Scheduler {
	return &Scheduler{profile: p}
}

type interval struct {
	start, end int
	stepID     string
}

// Schedule places every step at the earliest offset that satisfies its prerequisites and
// the capacity of its equipment. Among ready steps the one with the smallest earliest
// start goes first; ties go to the shorter step. When no slot exists within the lookahead
// horizon the step is placed at its dependency-satisfying time anyway and the overlap is
// left for DetectConflicts to report.
func (s *Scheduler) Schedule(steps []Step) ([]Step, error) {
	return s.place(steps, nil, nil, false)
}

// Reflow re-places every step not in frozen. Frozen steps keep their offsets and occupy
// their equipment. An unfrozen step may start at most pull[id] minutes before its current
// offset (never before zero); steps missing from pull never move earlier.
func (s *Scheduler) Reflow(steps []Step, frozen map[string]bool, pull map[string]int) ([]Step, error) {
	return s.place(steps, frozen, pull, true)
}

func (s *Scheduler) place(in []Step, frozen map[string]bool, pull map[string]int, floorAtCurrent bool) ([]Step, error) {
	steps := cloneSteps(in)
	index := make(map[string]int, len(steps))
	for i, st := range steps {
		index[st.ID] = i
	}

	dependents := make([][]int, len(steps))
	for i, st := range steps {
		for _, d := range st.DependsOn {
			j, ok := index[d]
			if !ok {
				return nil, &CyclicScheduleError{StepIDs: []string{st.ID}, Detail: "unknown prerequisite " + d}
			}
			dependents[j] = append(dependents[j], i)
		}
	}
	if cyclic := findCycleMembers(steps, dependents); len(cyclic) > 0 {
		slog.Error("SCHEDULER: Step dependency graph is cyclic", "steps", cyclic)
		return nil, &CyclicScheduleError{StepIDs: cyclic}
	}

	usage := make(map[string][]interval)
	placed := make([]bool, len(steps))
	pending := make([]int, len(steps))

	for i, st := range steps {
		if frozen[st.ID] {
			placed[i] = true
			s.occupy(usage, st)
		}
	}
	var ready []int
	for i, st := range steps {
		if placed[i] {
			continue
		}
		for _, d := range st.DependsOn {
			if !placed[index[d]] {
				pending[i]++
			}
		}
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	earliest := func(i int) int {
		est := 0
		if floorAtCurrent {
			est = max(0, steps[i].StartOffset-pull[steps[i].ID])
		}
		for _, d := range steps[i].DependsOn {
			est = max(est, steps[index[d]].End())
		}
		return est
	}

	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			ea, eb := earliest(ready[a]), earliest(ready[b])
			if ea != eb {
				return ea < eb
			}
			da, db := steps[ready[a]].EffectiveDuration(), steps[ready[b]].EffectiveDuration()
			if da != db {
				return da < db
			}
			return steps[ready[a]].ID < steps[ready[b]].ID
		})
		i := ready[0]
		ready = ready[1:]

		est := earliest(i)
		steps[i].StartOffset = s.findSlot(usage, steps[i], est)
		s.occupy(usage, steps[i])
		placed[i] = true

		for _, dep := range dependents[i] {
			if placed[dep] {
				continue
			}
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	return steps, nil
}

func (s *Scheduler) occupy(usage map[string][]interval, st Step) {
	if st.EffectiveDuration() <= 0 {
		return
	}
	for _, eq := range st.Equipment {
		usage[eq] = append(usage[eq], interval{start: st.StartOffset, end: st.End(), stepID: st.ID})
	}
}

// findSlot returns the earliest start >= est within the lookahead horizon at which every
// required equipment class has spare capacity for the whole step. The earliest feasible
// start is always est itself or the end of an interval already on that equipment.
func (s *Scheduler) findSlot(usage map[string][]interval, st Step, est int) int {
	d := st.EffectiveDuration()
	if d <= 0 || len(st.Equipment) == 0 {
		return est
	}

	horizon := est + s.profile.LookaheadMinutes
	candidates := []int{est}
	for _, eq := range st.Equipment {
		for _, iv := range usage[eq] {
			if iv.end > est && iv.end <= horizon {
				candidates = append(candidates, iv.end)
			}
		}
	}
	sort.Ints(candidates)

	for _, c := range candidates {
		if s.fits(usage, st.Equipment, c, c+d) {
			return c
		}
	}

	slog.Warn("SCHEDULER: No equipment slot within lookahead, overlapping",
		"step", st.ID,
		"equipment", st.Equipment,
		"earliest_start", est,
		"lookahead_minutes", s.profile.LookaheadMinutes,
	)
	return est
}

// fits reports whether one more user fits on every equipment class during [start, end).
func (s *Scheduler) fits(usage map[string][]interval, equipment []string, start, end int) bool {
	for _, eq := range equipment {
		if maxConcurrent(usage[eq], start, end)+1 > s.profile.Capacity(eq) {
			return false
		}
	}
	return true
}

// maxConcurrent returns the peak number of intervals overlapping [start, end).
func maxConcurrent(ivs []interval, start, end int) int {
	type event struct{ at, delta int }
	var events []event
	for _, iv := range ivs {
		if iv.start < end && start < iv.end {
			events = append(events, event{max(iv.start, start), 1}, event{min(iv.end, end), -1})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].delta < events[j].delta
	})
	cur, peak := 0, 0
	for _, e := range events {
		cur += e.delta
		peak = max(peak, cur)
	}
	return peak
}

// findCycleMembers runs Kahn's algorithm and returns the sorted ids it could not order.
func findCycleMembers(steps []Step, dependents [][]int) []string {
	indegree := make([]int, len(steps))
	for i, st := range steps {
		indegree[i] = len(st.DependsOn)
	}
	var queue []int
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range dependents[v] {
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}
	var out []string
	for i, d := range indegree {
		if d > 0 {
			out = append(out, steps[i].ID)
		}
	}
	sort.Strings(out)
	return out
}
