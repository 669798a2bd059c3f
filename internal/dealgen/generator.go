package dealgen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/google/uuid"
)

// Ranges for generated deals.
const (
	minDealValue     = 5_000.0
	maxDealValue     = 500_000.0
	minTouchpoints   = 1
	maxTouchpoints   = 6
	maxDaysBeforeWin = 180
)

var partnerPrefixes = []string{"Acme", "DataTech", "Cloud", "Integration", "Northwind", "Blue Harbor", "Vertex", "Summit"}

var partnerSuffixes = []string{"Consulting", "SI", "Partners", "Pro", "Labs", "Group"}

// Generator produces random but reproducible closed deals.
type Generator struct {
	rng      *rand.Rand
	partners []string
	model    string
}

// NewGenerator builds a generator drawing from a pool of numPartners names.
// An empty model picks a random catalog model per deal.
func NewGenerator(seed uint64, numPartners int, model string) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative clock value
	}
	if numPartners < 1 {
		numPartners = 1
	}
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // load data, not secrets
		partners: partnerPool(numPartners),
		model:    model,
	}
}

// Partners returns the partner pool.
func (g *Generator) Partners() []string {
	return g.partners
}

// Generate returns n submissions with fresh uuid deal ids. Not safe for
// concurrent use.
func (g *Generator) Generate(n int) []Submission {
	out := make([]Submission, n)
	for i := range out {
		out[i] = g.next()
	}
	return out
}

func (g *Generator) next() Submission {
	catalog := attribution.Catalog()
	model := g.model
	if model == "" {
		model = string(catalog[g.rng.IntN(len(catalog))].Kind)
	}

	roles := attribution.Roles()
	count := minTouchpoints + g.rng.IntN(maxTouchpoints-minTouchpoints+1)
	tps := make([]attribution.Touchpoint, count)
	for i := range tps {
		tps[i] = attribution.Touchpoint{
			Partner:         g.partners[g.rng.IntN(len(g.partners))],
			Role:            roles[g.rng.IntN(len(roles))],
			DaysBeforeClose: float64(g.rng.IntN(maxDaysBeforeWin + 1)),
		}
	}

	value := minDealValue + g.rng.Float64()*(maxDealValue-minDealValue)
	return Submission{
		DealID: uuid.NewString(),
		Model:  model,
		Deal: attribution.Deal{
			Value:       math.Round(value*100) / 100,
			Touchpoints: tps,
		},
	}
}

func partnerPool(n int) []string {
	names := make([]string, 0, n)
	for i := 0; len(names) < n; i++ {
		p := partnerPrefixes[i%len(partnerPrefixes)]
		s := partnerSuffixes[(i/len(partnerPrefixes))%len(partnerSuffixes)]
		name := p + " " + s
		if round := i / (len(partnerPrefixes) * len(partnerSuffixes)); round > 0 {
			name = fmt.Sprintf("%s %d", name, round+1)
		}
		names = append(names, name)
	}
	return names
}

// Resends picks k earlier submissions to send again with the same deal id.
func (g *Generator) Resends(subs []Submission, k int) []Submission {
	if len(subs) == 0 || k <= 0 {
		return nil
	}
	out := make([]Submission, k)
	for i := range out {
		out[i] = subs[g.rng.IntN(len(subs))]
	}
	return out
}
