package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dylanram/attribution/internal/domain/types"
	"github.com/dylanram/attribution/pkg/metrics"
)

type account struct {
	attributed float64
	deals      int
	dealValue  float64
}

// Ledger is a mutex-guarded Store. Reads are served from a sorted snapshot
// rebuilt lazily after writes.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
	credited map[string]struct{}
	revenue  float64
	metrics  bool

	snapMu sync.Mutex
	snap   []types.Standing
	index  map[string]int
	dirty  bool
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account),
		credited: make(map[string]struct{}),
		metrics:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Store = (*Ledger)(nil)

func (l *Ledger) Credit(_ context.Context, dealID string, dealValue float64, amounts map[string]float64) error {
	if math.IsNaN(dealValue) || math.IsInf(dealValue, 0) || dealValue <= 0 {
		return fmt.Errorf("%w: deal value %v", ErrInvalidCredit, dealValue)
	}
	for p, a := range amounts {
		if strings.TrimSpace(p) == "" || math.IsNaN(a) || a < 0 {
			return fmt.Errorf("%w: partner %q amount %v", ErrInvalidCredit, p, a)
		}
	}

	l.mu.Lock()
	if _, ok := l.credited[dealID]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateDeal, dealID)
	}
	l.credited[dealID] = struct{}{}
	l.revenue += dealValue
	for p, a := range amounts {
		acc := l.accounts[p]
		if acc == nil {
			acc = &account{}
			l.accounts[p] = acc
		}
		acc.attributed += a
		acc.deals++
		acc.dealValue += dealValue
	}
	partners, deals, revenue := len(l.accounts), len(l.credited), l.revenue
	l.mu.Unlock()

	l.snapMu.Lock()
	l.dirty = true
	l.snapMu.Unlock()

	if l.metrics {
		metrics.UpdateLedger(partners, deals, revenue)
	}
	return nil
}

func (l *Ledger) Rank(_ context.Context, partner string) (types.Standing, error) {
	snap, index := l.snapshot()
	i, ok := index[strings.TrimSpace(partner)]
	if !ok {
		return types.Standing{}, fmt.Errorf("%w: %s", ErrNotFound, partner)
	}
	return snap[i], nil
}

func (l *Ledger) TopN(_ context.Context, n int) ([]types.Standing, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	snap, _ := l.snapshot()
	if n > len(snap) {
		n = len(snap)
	}
	out := make([]types.Standing, n)
	copy(out, snap[:n])
	return out, nil
}

func (l *Ledger) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

func (l *Ledger) Totals(_ context.Context) types.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return types.Totals{Partners: len(l.accounts), Deals: len(l.credited), Revenue: l.revenue}
}

// snapshot returns standings ordered by attributed desc, then partner name.
func (l *Ledger) snapshot() ([]types.Standing, map[string]int) {
	l.snapMu.Lock()
	defer l.snapMu.Unlock()
	if !l.dirty && l.snap != nil {
		return l.snap, l.index
	}

	l.mu.RLock()
	snap := make([]types.Standing, 0, len(l.accounts))
	for p, acc := range l.accounts {
		snap = append(snap, types.Standing{
			Partner:     p,
			Attributed:  math.Round(acc.attributed*100) / 100,
			Deals:       acc.deals,
			AvgDealSize: math.Round(acc.dealValue/float64(acc.deals)*100) / 100,
		})
	}
	l.mu.RUnlock()

	sort.Slice(snap, func(i, j int) bool {
		if snap[i].Attributed != snap[j].Attributed {
			return snap[i].Attributed > snap[j].Attributed
		}
		return snap[i].Partner < snap[j].Partner
	})
	index := make(map[string]int, len(snap))
	for i := range snap {
		snap[i].Rank = i + 1
		index[snap[i].Partner] = i
	}
	l.snap, l.index, l.dirty = snap, index, false
	return snap, index
}
