package schedule

import (
	"math"

	"mealprep/recipe"
)

// Scaler converts nominal single-batch durations into batch durations.
type Scaler struct {
	profile Profile
}

func NewScaler(p Profile) *Scaler {
	return &Scaler{profile: p}
}

// Scale returns nominal * (1 + (multiplier-1) * growth(action)) rounded up to whole
// minutes. The result is never below nominal and is non-decreasing in multiplier.
func (s *Scaler) Scale(nominal int, action recipe.ActionType, multiplier float64) int {
	if nominal <= 0 {
		return 0
	}
	if math.IsNaN(multiplier) || multiplier < 1 {
		multiplier = 1
	}
	g := s.profile.GrowthFactor(action)
	scaled := float64(nominal) * (1 + (multiplier-1)*g)
	// Guard against float noise turning 10.000000001 into 11.
	out := int(math.Ceil(scaled - 1e-9))
	return max(out, nominal)
}
