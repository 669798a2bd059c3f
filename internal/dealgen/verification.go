package dealgen

import (
	"fmt"
	"math"
)

// centTolerance allows one cent of rounding drift per credited deal.
const centTolerance = 0.01

// VerifyStandings checks that standings are ranked 1..n by attributed
// revenue descending, ties broken by partner name.
func VerifyStandings(standings []Standing) error {
	for i, s := range standings {
		if s.Rank != i+1 {
			return fmt.Errorf("%w: %s has rank %d at position %d", ErrOrdering, s.Partner, s.Rank, i+1)
		}
		if i == 0 {
			continue
		}
		prev := standings[i-1]
		if s.Attributed > prev.Attributed || (s.Attributed == prev.Attributed && s.Partner < prev.Partner) {
			return fmt.Errorf("%w: %s (%.2f) ranked below %s (%.2f)",
				ErrOrdering, s.Partner, s.Attributed, prev.Partner, prev.Attributed)
		}
	}
	return nil
}

// VerifyRevenue checks that the ledger grew by exactly the value of the
// accepted deals.
func VerifyRevenue(before, after LedgerStats, accepted float64, deals int) error {
	delta := after.Revenue - before.Revenue
	tolerance := centTolerance * float64(deals+1)
	if math.Abs(delta-accepted) > tolerance {
		return fmt.Errorf("%w: ledger grew by %.2f, accepted %.2f", ErrConservation, delta, accepted)
	}
	return nil
}
