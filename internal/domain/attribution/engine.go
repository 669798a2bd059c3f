package attribution

import (
	"fmt"
	"math"
	"sort"
)

// Settlement constants. Amounts are settled in whole cents.
const (
	centsPerUnit  = 100
	roundingSlack = 1e-6
)

// Engine computes attributions under a fixed weighting table. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	weights Weights
}

// NewEngine validates w and returns an engine that owns a private copy of it.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w.clone()}, nil
}

// Attribute runs model k over d with the default weighting table.
func Attribute(d Deal, k Kind) (Result, error) {
	e, err := NewEngine(DefaultWeights())
	if err != nil {
		return Result{}, err
	}
	return e.Attribute(d, k)
}

// Weights returns a copy of the engine's weighting table.
func (e *Engine) Weights() Weights {
	return e.weights.clone()
}

// Attribute divides d.Value among the deal's partners under model k. The
// amounts sum to d.Value rounded to cents.
func (e *Engine) Attribute(d Deal, k Kind) (Result, error) {
	if !k.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownModel, k)
	}
	if err := Validate(d); err != nil {
		return Result{}, err
	}
	return e.attribute(d, k), nil
}

// Compare runs every catalog model over d, in catalog order.
func (e *Engine) Compare(d Deal) ([]Result, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, e.attribute(d, m.Kind))
	}
	return out, nil
}

// attribute assumes d and k are valid.
func (e *Engine) attribute(d Deal, k Kind) Result {
	tps := canonical(d.Touchpoints)
	partners := distinctPartners(tps)

	var shares map[string]float64
	switch k {
	case EqualSplit:
		shares = equalShares(partners)
	case Linear:
		shares = make(map[string]float64, len(partners))
		for _, tp := range tps {
			shares[tp.Partner]++
		}
	case RoleWeighted:
		shares = e.roleShares(tps, partners)
	case TimeDecay:
		shares = make(map[string]float64, len(partners))
		for _, tp := range tps {
			shares[tp.Partner] += 1 / (e.weights.DecayOffset + tp.DaysBeforeClose)
		}
	case FirstTouch:
		shares = map[string]float64{tps[firstTouch(tps)].Partner: 1}
	case LastTouch:
		shares = map[string]float64{tps[lastTouch(tps)].Partner: 1}
	case UShaped:
		shares = e.uShares(tps, partners)
	}
	return settle(k, d.Value, partners, shares)
}

func (e *Engine) roleShares(tps []Touchpoint, partners []string) map[string]float64 {
	shares := make(map[string]float64, len(partners))
	var total float64
	for _, tp := range tps {
		w := e.weights.role(tp.Role)
		shares[tp.Partner] += w
		total += w
	}
	if total == 0 {
		return equalShares(partners)
	}
	return shares
}

func (e *Engine) uShares(tps []Touchpoint, partners []string) map[string]float64 {
	first := tps[firstTouch(tps)].Partner
	last := tps[lastTouch(tps)].Partner

	var middle []string
	for _, p := range partners {
		if p != first && p != last {
			middle = append(middle, p)
		}
	}

	w := e.weights
	shares := make(map[string]float64, len(partners))
	if len(middle) == 0 {
		ends := w.FirstTouch + w.LastTouch
		shares[first] += w.FirstTouch / ends
		shares[last] += w.LastTouch / ends
		return shares
	}
	shares[first] += w.FirstTouch
	shares[last] += w.LastTouch
	each := w.Middle / float64(len(middle))
	for _, p := range middle {
		shares[p] += each
	}
	return shares
}

// firstTouch is the index of the earliest touchpoint; ties go to the earliest listed.
func firstTouch(tps []Touchpoint) int {
	idx := 0
	for i, tp := range tps {
		if tp.DaysBeforeClose > tps[idx].DaysBeforeClose {
			idx = i
		}
	}
	return idx
}

// lastTouch is the index of the latest touchpoint; ties go to the last listed.
func lastTouch(tps []Touchpoint) int {
	idx := 0
	for i, tp := range tps {
		if tp.DaysBeforeClose <= tps[idx].DaysBeforeClose {
			idx = i
		}
	}
	return idx
}

func canonical(in []Touchpoint) []Touchpoint {
	out := make([]Touchpoint, len(in))
	for i, tp := range in {
		out[i] = tp
		out[i].Role = rolesByKey[normalizeKey(string(tp.Role))]
	}
	return out
}

// distinctPartners lists partners in order of first appearance.
func distinctPartners(tps []Touchpoint) []string {
	seen := make(map[string]struct{}, len(tps))
	out := make([]string, 0, len(tps))
	for _, tp := range tps {
		if _, ok := seen[tp.Partner]; ok {
			continue
		}
		seen[tp.Partner] = struct{}{}
		out = append(out, tp.Partner)
	}
	return out
}

func equalShares(partners []string) map[string]float64 {
	shares := make(map[string]float64, len(partners))
	for _, p := range partners {
		shares[p] = 1
	}
	return shares
}

// settle normalises shares and converts them to cent amounts with the
// largest-remainder method, so the amounts add up to value exactly (in cents).
// Partners with a zero share always settle at zero.
func settle(k Kind, value float64, partners []string, shares map[string]float64) Result {
	totalCents := int64(math.Round(value * centsPerUnit))

	var sum float64
	for _, p := range partners {
		sum += shares[p]
	}

	n := len(partners)
	cents := make([]int64, n)
	rems := make([]float64, n)
	var allocated int64
	for i, p := range partners {
		exact := shares[p] / sum * float64(totalCents)
		c := int64(math.Floor(exact + roundingSlack))
		if c < 0 {
			c = 0
		}
		cents[i] = c
		rems[i] = exact - float64(c)
		allocated += c
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })

	leftover := totalCents - allocated
	for leftover > 0 {
		moved := false
		for _, idx := range order {
			if leftover == 0 {
				break
			}
			if shares[partners[idx]] > 0 {
				cents[idx]++
				leftover--
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	for leftover < 0 {
		moved := false
		for i := n - 1; i >= 0 && leftover < 0; i-- {
			if idx := order[i]; cents[idx] > 0 {
				cents[idx]--
				leftover++
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	amounts := make(map[string]float64, n)
	for i, p := range partners {
		amounts[p] = float64(cents[i]) / centsPerUnit
	}
	return Result{
		Model:    k,
		Value:    value,
		Amounts:  amounts,
		Partners: append([]string(nil), partners...),
	}
}
