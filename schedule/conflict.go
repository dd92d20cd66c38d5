package schedule

import (
	"slices"
	"sort"
	"strings"
)

// DetectConflicts sweeps each equipment class and reports every window in which more steps
// use it than the profile allows. Windows with the same set of steps are merged.
func DetectConflicts(steps []Step, p Profile) []ResourceConflict {
	byEquipment := make(map[string][]interval)
	for _, st := range steps {
		if st.EffectiveDuration() <= 0 {
			continue
		}
		for _, eq := range dedupe(st.Equipment) {
			byEquipment[eq] = append(byEquipment[eq], interval{start: st.StartOffset, end: st.End(), stepID: st.ID})
		}
	}

	equipment := make([]string, 0, len(byEquipment))
	for eq := range byEquipment {
		equipment = append(equipment, eq)
	}
	sort.Strings(equipment)

	conflicts := []ResourceConflict{}
	for _, eq := range equipment {
		conflicts = append(conflicts, sweep(eq, p.Capacity(eq), byEquipment[eq])...)
	}
	return conflicts
}

func sweep(equipment string, capacity int, ivs []interval) []ResourceConflict {
	if len(ivs) <= capacity {
		return nil
	}

	type event struct {
		at     int
		start  bool
		stepID string
	}
	events := make([]event, 0, 2*len(ivs))
	for _, iv := range ivs {
		events = append(events, event{at: iv.start, start: true, stepID: iv.stepID}, event{at: iv.end, stepID: iv.stepID})
	}
	// Ends sort before starts at the same instant: back-to-back use is not a conflict.
	sort.Slice(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return !events[i].start && events[j].start
	})

	var out []ResourceConflict
	byKey := make(map[string]int)
	active := make(map[string]int)
	var open *ResourceConflict
	closeOpen := func(at int) {
		if open == nil {
			return
		}
		open.EndOffset = at
		key := strings.Join(open.StepIDs, ",")
		if i, ok := byKey[key]; ok {
			out[i].StartOffset = min(out[i].StartOffset, open.StartOffset)
			out[i].EndOffset = max(out[i].EndOffset, open.EndOffset)
		} else {
			byKey[key] = len(out)
			out = append(out, *open)
		}
		open = nil
	}

	for i := 0; i < len(events); {
		at := events[i].at
		for ; i < len(events) && events[i].at == at; i++ {
			e := events[i]
			if e.start {
				active[e.stepID]++
				continue
			}
			active[e.stepID]--
			if active[e.stepID] == 0 {
				delete(active, e.stepID)
			}
		}

		if len(active) <= capacity {
			closeOpen(at)
			continue
		}
		ids := make([]string, 0, len(active))
		for id := range active {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if open != nil && slices.Equal(open.StepIDs, ids) {
			continue
		}
		closeOpen(at)
		open = &ResourceConflict{
			Equipment:   equipment,
			Capacity:    capacity,
			StepIDs:     ids,
			StartOffset: at,
			Severity:    SeverityAdvisory,
		}
	}
	closeOpen(events[len(events)-1].at)
	return out
}
