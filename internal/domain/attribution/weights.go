package attribution

import (
	"fmt"
	"math"
)

// Default weighting constants.
const (
	defaultFirstTouchShare = 0.40
	defaultLastTouchShare  = 0.40
	defaultMiddleShare     = 0.20
	defaultDecayOffsetDays = 1.0
	shareSumTolerance      = 1e-9
)

// Weights parameterises the weighted models. Role weights feed RoleWeighted;
// FirstTouch, LastTouch and Middle are the U-shaped shares and must sum to 1;
// DecayOffset is the d0 in the time-decay weight 1/(d0 + daysBeforeClose).
type Weights struct {
	Roles       map[Role]float64
	FirstTouch  float64
	LastTouch   float64
	Middle      float64
	DecayOffset float64
}

// DefaultWeights returns the standard weighting table.
func DefaultWeights() Weights {
	return Weights{
		Roles: map[Role]float64{
			RoleReferral:       0.15,
			RoleImplementation: 0.40,
			RoleInfluence:      0.15,
			RoleTechnicalDemo:  0.30,
			RoleOther:          0.0,
		},
		FirstTouch:  defaultFirstTouchShare,
		LastTouch:   defaultLastTouchShare,
		Middle:      defaultMiddleShare,
		DecayOffset: defaultDecayOffsetDays,
	}
}

// ParseRoleWeights converts a configuration map keyed by role name.
func ParseRoleWeights(in map[string]float64) (map[Role]float64, error) {
	out := make(map[Role]float64, len(in))
	for name, w := range in {
		r, err := ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: role weight key %q", ErrInvalidWeights, name)
		}
		out[r] = w
	}
	return out, nil
}

// Validate checks the table for values the models cannot use.
func (w Weights) Validate() error {
	for r, v := range w.Roles {
		if !finite(v) || v < 0 {
			return fmt.Errorf("%w: role %s weight %v", ErrInvalidWeights, r, v)
		}
	}
	for name, v := range map[string]float64{"first_touch": w.FirstTouch, "last_touch": w.LastTouch, "middle": w.Middle} {
		if !finite(v) || v < 0 {
			return fmt.Errorf("%w: %s share %v", ErrInvalidWeights, name, v)
		}
	}
	if w.FirstTouch+w.LastTouch <= 0 {
		return fmt.Errorf("%w: first and last touch shares are both zero", ErrInvalidWeights)
	}
	if sum := w.FirstTouch + w.LastTouch + w.Middle; math.Abs(sum-1) > shareSumTolerance {
		return fmt.Errorf("%w: u-shaped shares sum to %v, want 1", ErrInvalidWeights, sum)
	}
	if !finite(w.DecayOffset) || w.DecayOffset <= 0 {
		return fmt.Errorf("%w: decay offset %v must be positive", ErrInvalidWeights, w.DecayOffset)
	}
	return nil
}

// role returns the weight for r; roles missing from the table weigh 0.
func (w Weights) role(r Role) float64 {
	return w.Roles[r]
}

func (w Weights) clone() Weights {
	out := w
	out.Roles = make(map[Role]float64, len(w.Roles))
	for r, v := range w.Roles {
		out.Roles[r] = v
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
