// Package attribution divides the value of a closed deal among the partners
// that touched it, under one of a closed set of attribution models.
//
// Conventions:
//   - Deal and Result are immutable values; nothing in this package mutates input.
//   - Weights are passed to NewEngine explicitly; there is no package-level state.
//   - Errors wrap ErrInvalidInput, ErrUnknownModel or ErrInvalidWeights.
package attribution

import (
	"fmt"
	"math"
	"strings"
)

// Role classifies what a partner did on a touchpoint.
type Role string

// Roles a touchpoint may carry.
const (
	RoleReferral       Role = "referral"
	RoleImplementation Role = "implementation"
	RoleInfluence      Role = "influence"
	RoleTechnicalDemo  Role = "technical_demo"
	RoleOther          Role = "other"
)

// Roles lists every role in declaration order.
func Roles() []Role {
	return []Role{RoleReferral, RoleImplementation, RoleInfluence, RoleTechnicalDemo, RoleOther}
}

var rolesByKey = map[string]Role{
	"referral":       RoleReferral,
	"implementation": RoleImplementation,
	"influence":      RoleInfluence,
	"technicaldemo":  RoleTechnicalDemo,
	"other":          RoleOther,
}

// ParseRole accepts wire keys ("technical_demo") and display names ("Technical Demo").
func ParseRole(s string) (Role, error) {
	if r, ok := rolesByKey[normalizeKey(s)]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Kind selects an attribution model.
type Kind string

// Supported attribution models.
const (
	EqualSplit   Kind = "equal_split"
	RoleWeighted Kind = "role_weighted"
	TimeDecay    Kind = "time_decay"
	FirstTouch   Kind = "first_touch"
	LastTouch    Kind = "last_touch"
	UShaped      Kind = "u_shaped"
	Linear       Kind = "linear"
)

// ModelInfo describes a model for selectors and documentation.
type ModelInfo struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []ModelInfo{
	{EqualSplit, "Equal Split", "Each partner receives equal credit regardless of contribution type or timing."},
	{RoleWeighted, "Role-Weighted", "Partners weighted by their role type. Implementation partners get higher attribution."},
	{TimeDecay, "Time Decay", "Recent touchpoints weighted more heavily. Activities closer to close get more credit."},
	{FirstTouch, "First Touch", "100% credit to the partner who initiated the relationship."},
	{LastTouch, "Last Touch", "100% credit to the most recent partner interaction before close."},
	{UShaped, "U-Shaped", "Heavy weight on first and last touch (40% each), remaining 20% distributed to middle."},
	{Linear, "Linear", "Every touchpoint earns an equal share, so repeat partners earn one share per touch."},
}

// Catalog returns the supported models in display order.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Info returns the catalog entry for k.
func (k Kind) Info() (ModelInfo, bool) {
	for _, m := range catalog {
		if m.Kind == k {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Valid reports whether k is one of the supported models.
func (k Kind) Valid() bool {
	_, ok := k.Info()
	return ok
}

// ParseKind accepts wire keys ("u_shaped") and display names ("U-Shaped").
func ParseKind(s string) (Kind, error) {
	key := normalizeKey(s)
	for _, m := range catalog {
		if normalizeKey(string(m.Kind)) == key || normalizeKey(m.Name) == key {
			return m.Kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// Touchpoint is one recorded partner interaction with a deal.
type Touchpoint struct {
	Partner         string  `json:"partner"`
	Role            Role    `json:"role"`
	DaysBeforeClose float64 `json:"days_before_close"`
}

// Deal is a closed deal and the touchpoints that led to it. Touchpoint order
// is preserved; first and last touch are derived from DaysBeforeClose.
type Deal struct {
	Value       float64      `json:"value"`
	Touchpoints []Touchpoint `json:"touchpoints"`
}

// Deal value bounds. Amounts settle in whole cents, so a deal must be worth at
// least one cent, and its cent count must stay exact in a float64.
const (
	MinDealValue = 0.01
	MaxDealValue = 1e13
)

// Validate reports why d cannot be attributed, if at all.
func Validate(d Deal) error {
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) || d.Value <= 0 {
		return fmt.Errorf("%w: deal value must be positive, got %v", ErrInvalidInput, d.Value)
	}
	if d.Value < MinDealValue || d.Value > MaxDealValue {
		return fmt.Errorf("%w: deal value %v outside [%v, %v]", ErrInvalidInput, d.Value, MinDealValue, MaxDealValue)
	}
	if len(d.Touchpoints) == 0 {
		return fmt.Errorf("%w: deal has no touchpoints", ErrInvalidInput)
	}
	for i, tp := range d.Touchpoints {
		if strings.TrimSpace(tp.Partner) == "" {
			return fmt.Errorf("%w: touchpoint %d has no partner", ErrInvalidInput, i)
		}
		if _, ok := rolesByKey[normalizeKey(string(tp.Role))]; !ok {
			return fmt.Errorf("%w: touchpoint %d has unknown role %q", ErrInvalidInput, i, tp.Role)
		}
		if math.IsNaN(tp.DaysBeforeClose) || math.IsInf(tp.DaysBeforeClose, 0) || tp.DaysBeforeClose < 0 {
			return fmt.Errorf("%w: touchpoint %d has invalid days_before_close %v", ErrInvalidInput, i, tp.DaysBeforeClose)
		}
	}
	return nil
}

// Result maps each input partner to its attributed amount. Every partner from
// the deal is present; unattributed partners carry 0.
type Result struct {
	Model    Kind               `json:"model"`
	Value    float64            `json:"value"`
	Amounts  map[string]float64 `json:"amounts"`
	Partners []string           `json:"partners"`
}

// Amount returns the amount attributed to partner.
func (r Result) Amount(partner string) float64 {
	return r.Amounts[partner]
}

// Total sums the attributed amounts.
func (r Result) Total() float64 {
	var sum float64
	for _, p := range r.Partners {
		sum += r.Amounts[p]
	}
	return sum
}

// SampleDeal returns the Enterprise Analytics Platform deal used by the dashboard.
func SampleDeal() Deal {
	return Deal{
		Value: 150000,
		Touchpoints: []Touchpoint{
			{Partner: "Acme Consulting", Role: RoleReferral, DaysBeforeClose: 90},
			{Partner: "DataTech SI", Role: RoleImplementation, DaysBeforeClose: 45},
			{Partner: "Cloud Partners", Role: RoleInfluence, DaysBeforeClose: 30},
			{Partner: "Integration Pro", Role: RoleTechnicalDemo, DaysBeforeClose: 14},
		},
	}
}
