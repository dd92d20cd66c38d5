package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, p Profile)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			check: func(t *testing.T, p Profile) {
				assert.Equal(t, DefaultProfile(), p)
			},
		},
		{
			name: "overlay on defaults",
			yaml: `
growth_factors:
  Chop: 0.5
equipment:
  oven: 2
  sous_vide: 1
lookahead_minutes: 120
`,
			check: func(t *testing.T, p Profile) {
				assert.InDelta(t, 0.5, p.GrowthFactor("chop"), 1e-9)
				assert.InDelta(t, 0.05, p.GrowthFactor("bake"), 1e-9)
				assert.Equal(t, 2, p.Capacity("oven"))
				assert.Equal(t, 1, p.Capacity("sous_vide"))
				assert.Equal(t, 4, p.Capacity("stovetop_burner"))
				assert.Equal(t, 120, p.LookaheadMinutes)
				assert.Equal(t, 10, p.MaxRecipeDepth)
				assert.True(t, p.IsBatchable("chop"))
			},
		},
		{
			name: "batchable list replaces defaults",
			yaml: `
batchable_actions: [peel]
default_capacity: 2
`,
			check: func(t *testing.T, p Profile) {
				assert.True(t, p.IsBatchable("Peel"))
				assert.False(t, p.IsBatchable("chop"))
				assert.Equal(t, 2, p.Capacity("smoker"))
			},
		},
		{
			name:    "negative growth factor",
			yaml:    "growth_factors: {chop: -0.1}",
			wantErr: "must not be negative",
		},
		{
			name:    "zero capacity",
			yaml:    "equipment: {oven: 0}",
			wantErr: "capacity of at least 1",
		},
		{
			name:    "malformed yaml",
			yaml:    "equipment: [",
			wantErr: "parse kitchen profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("equipment:\n  oven: 2\n"), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Capacity("oven"))

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read kitchen profile")
}

func TestProfile_GrowthFactorClamped(t *testing.T) {
	p := DefaultProfile()
	p.GrowthFactors["knead"] = 3

	assert.InDelta(t, 1.0, p.GrowthFactor("knead"), 1e-9)
	assert.InDelta(t, 1.0, p.GrowthFactor("never-heard-of-it"), 1e-9)
}

func TestProfileFromConfig(t *testing.T) {
	p, err := ProfileFromConfig(mealprep.PlannerConfig{MaxRecipeDepth: 4, LookaheadMinutes: 90})
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxRecipeDepth)
	assert.Equal(t, 90, p.LookaheadMinutes)

	path := filepath.Join(t.TempDir(), "kitchen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lookahead_minutes: 30\nequipment:\n  grill: 2\n"), 0o644))
	p, err = ProfileFromConfig(mealprep.PlannerConfig{KitchenProfilePath: path, MaxRecipeDepth: 4, LookaheadMinutes: 90})
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxRecipeDepth)
	assert.Equal(t, 30, p.LookaheadMinutes, "file wins over environment")
	assert.Equal(t, 2, p.Capacity("grill"))
}
