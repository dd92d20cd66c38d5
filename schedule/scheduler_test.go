package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
)

func TestSchedule_RespectsPrerequisitesAndEquipment(t *testing.T) {
	s := NewScheduler(DefaultProfile())

	out, err := s.Schedule([]Step{
		{ID: "mix", Duration: 10},
		{ID: "bake", Duration: 40, Equipment: []string{"oven"}, DependsOn: []string{"mix"}},
		{ID: "roast", Duration: 60, Equipment: []string{"oven"}},
	})
	require.NoError(t, err)

	byID := stepsByID(out)
	assert.Equal(t, 0, byID["mix"].StartOffset)
	assert.Equal(t, 0, byID["roast"].StartOffset)
	assert.Equal(t, 60, byID["bake"].StartOffset, "single oven is busy until the roast is done")
	assert.GreaterOrEqual(t, byID["bake"].StartOffset, byID["mix"].End())

	assert.Empty(t, DetectConflicts(out, DefaultProfile()))
}

func TestSchedule_ParallelUseUpToCapacity(t *testing.T) {
	s := NewScheduler(DefaultProfile())

	var steps []Step
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		steps = append(steps, Step{ID: id, Duration: 20, Equipment: []string{"stovetop_burner"}})
	}
	out, err := s.Schedule(steps)
	require.NoError(t, err)

	byID := stepsByID(out)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 0, byID[id].StartOffset, id)
	}
	assert.Equal(t, 20, byID["e"].StartOffset, "four burners, fifth pot waits")
}

func TestSchedule_OverlapsWhenNoSlotInLookahead(t *testing.T) {
	p := DefaultProfile()
	p.LookaheadMinutes = 10
	s := NewScheduler(p)

	out, err := s.Schedule([]Step{
		{ID: "a", Duration: 60, Equipment: []string{"oven"}},
		{ID: "b", Duration: 60, Equipment: []string{"oven"}},
	})
	require.NoError(t, err)

	byID := stepsByID(out)
	assert.Equal(t, 0, byID["a"].StartOffset)
	assert.Equal(t, 0, byID["b"].StartOffset)

	conflicts := DetectConflicts(out, p)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ResourceConflict{
		Equipment:   "oven",
		Capacity:    1,
		StepIDs:     []string{"a", "b"},
		StartOffset: 0,
		EndOffset:   60,
		Severity:    SeverityAdvisory,
	}, conflicts[0])
}

func TestSchedule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantIDs []string
	}{
		{
			name: "cycle",
			steps: []Step{
				{ID: "a", Duration: 5, DependsOn: []string{"b"}},
				{ID: "b", Duration: 5, DependsOn: []string{"a"}},
				{ID: "c", Duration: 5},
			},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "unknown prerequisite",
			steps:   []Step{{ID: "a", Duration: 5, DependsOn: []string{"ghost"}}},
			wantIDs: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(DefaultProfile()).Schedule(tt.steps)
			require.Error(t, err)

			var cyc *CyclicScheduleError
			require.True(t, errors.As(err, &cyc))
			assert.Equal(t, tt.wantIDs, cyc.StepIDs)
			assert.Equal(t, mealprep.ClassStructural, mealprep.Classify(err))
		})
	}
}

func TestReflow_ShiftsDownstreamSteps(t *testing.T) {
	s := NewScheduler(DefaultProfile())

	planned, err := s.Schedule([]Step{
		{ID: "chop", Duration: 10},
		{ID: "saute", Duration: 20, Equipment: []string{"stovetop_burner"}, DependsOn: []string{"chop"}},
		{ID: "bake", Duration: 30, Equipment: []string{"oven"}, DependsOn: []string{"saute"}},
	})
	require.NoError(t, err)

	byID := stepsByID(planned)
	require.Equal(t, 10, byID["saute"].StartOffset)
	require.Equal(t, 30, byID["bake"].StartOffset)

	// Chopping ran 10 minutes over.
	for i := range planned {
		if planned[i].ID == "chop" {
			actual := 20
			planned[i].Completed = true
			planned[i].ActualDuration = &actual
		}
	}
	reflowed, err := s.Reflow(planned, map[string]bool{"chop": true}, nil)
	require.NoError(t, err)

	tl := Timeline{Steps: reflowed}
	tl.Finalize()
	byID = stepsByID(tl.Steps)
	assert.Equal(t, 0, byID["chop"].StartOffset)
	assert.Equal(t, 20, byID["saute"].StartOffset)
	assert.Equal(t, 40, byID["bake"].StartOffset)
	assert.Equal(t, 70, tl.TotalMinutes)
}

func TestReflow_PullsStepsEarlierOnlyByAllowance(t *testing.T) {
	s := NewScheduler(DefaultProfile())

	steps := []Step{
		{ID: "a", Duration: 30, StartOffset: 0, Completed: true},
		{ID: "b", Duration: 10, StartOffset: 45, DependsOn: []string{"a"}},
		{ID: "c", Duration: 10, StartOffset: 50},
	}
	short := 5
	steps[0].ActualDuration = &short

	tests := []struct {
		name  string
		pull  map[string]int
		wantB int
		wantC int
	}{
		{name: "no allowance", pull: nil, wantB: 45, wantC: 50},
		{name: "partial allowance", pull: map[string]int{"b": 25}, wantB: 20, wantC: 50},
		{name: "bounded by prerequisite", pull: map[string]int{"b": 45}, wantB: 5, wantC: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Reflow(steps, map[string]bool{"a": true}, tt.pull)
			require.NoError(t, err)
			byID := stepsByID(out)
			assert.Equal(t, tt.wantB, byID["b"].StartOffset)
			assert.Equal(t, tt.wantC, byID["c"].StartOffset)
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  []ResourceConflict
	}{
		{
			name: "back to back is fine",
			steps: []Step{
				{ID: "a", StartOffset: 0, Duration: 30, Equipment: []string{"oven"}},
				{ID: "b", StartOffset: 30, Duration: 30, Equipment: []string{"oven"}},
			},
			want: []ResourceConflict{},
		},
		{
			name: "partial overlap",
			steps: []Step{
				{ID: "a", StartOffset: 0, Duration: 30, Equipment: []string{"oven"}},
				{ID: "b", StartOffset: 10, Duration: 30, Equipment: []string{"oven"}},
				{ID: "c", StartOffset: 40, Duration: 10, Equipment: []string{"oven"}},
			},
			want: []ResourceConflict{
				{Equipment: "oven", Capacity: 1, StepIDs: []string{"a", "b"}, StartOffset: 10, EndOffset: 30, Severity: SeverityAdvisory},
			},
		},
		{
			name: "burners within capacity",
			steps: []Step{
				{ID: "a", Duration: 10, Equipment: []string{"stovetop_burner"}},
				{ID: "b", Duration: 10, Equipment: []string{"stovetop_burner"}},
				{ID: "c", Duration: 10, Equipment: []string{"stovetop_burner"}},
				{ID: "d", Duration: 10, Equipment: []string{"stovetop_burner"}},
			},
			want: []ResourceConflict{},
		},
		{
			name: "unknown equipment defaults to one",
			steps: []Step{
				{ID: "a", Duration: 10, Equipment: []string{"smoker"}},
				{ID: "b", Duration: 10, Equipment: []string{"smoker"}},
			},
			want: []ResourceConflict{
				{Equipment: "smoker", Capacity: 1, StepIDs: []string{"a", "b"}, StartOffset: 0, EndOffset: 10, Severity: SeverityAdvisory},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectConflicts(tt.steps, DefaultProfile()))
		})
	}
}
