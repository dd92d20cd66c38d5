package schedule

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mealprep"
	"mealprep/recipe"
)

// Profile is the kitchen configuration the scheduler works against: how action types
// scale with batch size, which actions can be shared as mise en place, and how many of
// each piece of equipment exist.
type Profile struct {
	GrowthFactors    map[recipe.ActionType]float64 `yaml:"growth_factors"`
	BatchableActions []recipe.ActionType           `yaml:"batchable_actions"`
	Equipment        map[string]int                `yaml:"equipment"`
	DefaultCapacity  int                           `yaml:"default_capacity"`
	LookaheadMinutes int                           `yaml:"lookahead_minutes"`
	MaxRecipeDepth   int                           `yaml:"max_recipe_depth"`
}

// DefaultProfile describes a home kitchen with one oven and four burners.
func DefaultProfile() Profile {
	return Profile{
		GrowthFactors: map[recipe.ActionType]float64{
			// passive: bounded by equipment, not by quantity
			"bake":     0.05,
			"roast":    0.05,
			"simmer":   0.1,
			"boil":     0.1,
			"steam":    0.1,
			"rest":     0,
			"chill":    0,
			"proof":    0,
			"marinate": 0,
			// mixed
			"measure":  0.3,
			"mix":      0.4,
			"whisk":    0.3,
			"saute":    0.5,
			"fry":      0.6,
			"sear":     0.7,
			"portion":  0.6,
			"slice":    0.7,
			"chop":     0.8,
			"dice":     0.8,
			"mince":    0.8,
			"grate":    0.8,
			"assemble": 0.9,
			"peel":     0.9,
			"trim":     0.9,
		},
		BatchableActions: []recipe.ActionType{
			"chop", "dice", "slice", "mince", "grate", "peel", "trim", "wash", "measure", "marinate",
		},
		Equipment: map[string]int{
			"oven":            1,
			"stovetop_burner": 4,
			"cutting_board":   2,
			"mixer":           1,
			"food_processor":  1,
			"grill":           1,
			"microwave":       1,
		},
		DefaultCapacity:  1,
		LookaheadMinutes: 240,
		MaxRecipeDepth:   recipe.DefaultMaxDepth,
	}
}

// LoadProfile reads a YAML profile and layers it over DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read kitchen profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes YAML and layers it over DefaultProfile. Map entries override
// individual defaults; a non-empty batchable list replaces the default list.
func ParseProfile(data []byte) (Profile, error) {
	return overlayProfile(DefaultProfile(), data)
}

// ProfileFromConfig applies the planner environment to DefaultProfile, then the YAML file
// at cfg.KitchenProfilePath when one is set. Values in the file win.
func ProfileFromConfig(cfg mealprep.PlannerConfig) (Profile, error) {
	p := DefaultProfile()
	if cfg.MaxRecipeDepth > 0 {
		p.MaxRecipeDepth = cfg.MaxRecipeDepth
	}
	if cfg.LookaheadMinutes > 0 {
		p.LookaheadMinutes = cfg.LookaheadMinutes
	}
	if cfg.KitchenProfilePath == "" {
		return p, nil
	}
	data, err := os.ReadFile(cfg.KitchenProfilePath)
	if err != nil {
		return Profile{}, fmt.Errorf("read kitchen profile: %w", err)
	}
	return overlayProfile(p, data)
}

func overlayProfile(p Profile, data []byte) (Profile, error) {
	var overlay Profile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Profile{}, fmt.Errorf("parse kitchen profile: %w", err)
	}

	for k, v := range overlay.GrowthFactors {
		if v < 0 {
			return Profile{}, fmt.Errorf("growth factor for %q must not be negative", k)
		}
		p.GrowthFactors[normalizeAction(k)] = v
	}
	if len(overlay.BatchableActions) > 0 {
		p.BatchableActions = overlay.BatchableActions
	}
	for k, v := range overlay.Equipment {
		if v < 1 {
			return Profile{}, fmt.Errorf("equipment %q needs a capacity of at least 1", k)
		}
		p.Equipment[k] = v
	}
	if overlay.DefaultCapacity > 0 {
		p.DefaultCapacity = overlay.DefaultCapacity
	}
	if overlay.LookaheadMinutes > 0 {
		p.LookaheadMinutes = overlay.LookaheadMinutes
	}
	if overlay.MaxRecipeDepth > 0 {
		p.MaxRecipeDepth = overlay.MaxRecipeDepth
	}
	return p, nil
}

// GrowthFactor returns the batch growth factor of an action, 1 (linear) when unknown.
func (p Profile) GrowthFactor(action recipe.ActionType) float64 {
	g, ok := p.GrowthFactors[normalizeAction(action)]
	if !ok {
		return 1
	}
	return min(max(g, 0), 1)
}

// IsBatchable reports whether an action can be merged across recipes.
func (p Profile) IsBatchable(action recipe.ActionType) bool {
	a := normalizeAction(action)
	for _, b := range p.BatchableActions {
		if normalizeAction(b) == a {
			return true
		}
	}
	return false
}

// Capacity returns how many steps may use the equipment at once.
func (p Profile) Capacity(equipment string) int {
	if c, ok := p.Equipment[equipment]; ok && c > 0 {
		return c
	}
	if p.DefaultCapacity > 0 {
		return p.DefaultCapacity
	}
	return 1
}

func normalizeAction(a recipe.ActionType) recipe.ActionType {
	return recipe.ActionType(strings.ToLower(strings.TrimSpace(string(a))))
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
