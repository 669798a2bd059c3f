package dealgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dylanram/attribution/pkg/logger"
	json "github.com/goccy/go-json"
)

const (
	directoryPermission = 0o750
	settlePollInterval  = 50 * time.Millisecond
	percent             = 100
)

// Validate reports a configuration that cannot drive a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrInvalidConfig)
	case c.NumDeals < 1:
		return fmt.Errorf("%w: deals must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	case c.DuplicatePct < 0 || c.DuplicatePct > percent:
		return fmt.Errorf("%w: duplicate percentage must be within 0..100", ErrInvalidConfig)
	}
	return nil
}

// Run generates deals, submits them, waits for the ledger to settle and
// verifies ordering and revenue conservation.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("deal-gen")

	log.Info(ctx, "starting deal load",
		logger.String("baseURL", config.BaseURL),
		logger.Int("deals", config.NumDeals),
		logger.Int("partners", config.NumPartners),
		logger.Int("workers", config.Workers),
		logger.String("model", config.Model),
		logger.Int("duplicatePct", config.DuplicatePct))

	client := NewClient(config.BaseURL, config.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	baseline, err := client.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("baseline stats: %w", err)
	}

	gen := NewGenerator(config.Seed, config.NumPartners, config.Model)
	deals := gen.Generate(config.NumDeals)
	stats.DealsGenerated = len(deals)
	batch := append(deals, gen.Resends(deals, config.NumDeals*config.DuplicatePct/percent)...)

	submit(ctx, client, config.Workers, batch, stats)
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.DealsAccepted),
		logger.Int("duplicate", stats.DealsDuplicate),
		logger.Int("failed", stats.DealsFailed))

	final, err := awaitSettled(ctx, client, baseline.Deals+stats.DealsAccepted, config.SettleWait)
	if err != nil {
		return stats, err
	}

	standings, err := client.Standings(ctx, config.TopN)
	if err != nil {
		return stats, fmt.Errorf("standings: %w", err)
	}
	stats.StandingsRead = len(standings)

	if err := VerifyStandings(standings); err != nil {
		return stats, err
	}
	if err := VerifyRevenue(baseline, final, stats.AcceptedRevenue, stats.DealsAccepted); err != nil {
		return stats, err
	}

	if config.OutputFile != "" {
		if err := saveDeals(config.OutputFile, deals); err != nil {
			log.Warn(ctx, "failed to save deals to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats, standings)
	return stats, nil
}

func submit(ctx context.Context, client *Client, workers int, batch []Submission, stats *Stats) {
	var (
		submitted, accepted, duplicate, failed atomic.Int64
		revenueMu                              sync.Mutex
		revenue                                float64
		wg                                     sync.WaitGroup
	)
	work := make(chan Submission, workers*2)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range work {
				outcome, err := client.Submit(ctx, s)
				submitted.Add(1)
				switch outcome {
				case OutcomeAccepted:
					accepted.Add(1)
					revenueMu.Lock()
					revenue += s.Deal.Value
					revenueMu.Unlock()
				case OutcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					logger.Get().Debug(ctx, "deal submission failed", logger.String("deal_id", s.DealID), logger.Error(err))
				}
			}
		}()
	}

feed:
	for _, s := range batch {
		select {
		case <-ctx.Done():
			break feed
		case work <- s:
		}
	}
	close(work)
	wg.Wait()

	stats.DealsSubmitted = int(submitted.Load())
	stats.DealsAccepted = int(accepted.Load())
	stats.DealsDuplicate = int(duplicate.Load())
	stats.DealsFailed = int(failed.Load())
	stats.AcceptedRevenue = revenue
}

// awaitSettled polls /stats until the ledger has credited want deals.
func awaitSettled(ctx context.Context, client *Client, want int, wait time.Duration) (LedgerStats, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for {
		st, err := client.Stats(ctx)
		if err != nil {
			return st, fmt.Errorf("poll stats: %w", err)
		}
		if st.Deals >= want {
			return st, nil
		}
		if time.Now().After(deadline) {
			return st, fmt.Errorf("%w: %d of %d deals credited", ErrNotSettled, st.Deals, want)
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("%w: %w", ErrNotSettled, ctx.Err())
		case <-ticker.C:
		}
	}
}

func saveDeals(filename string, deals []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(deals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deals: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats, standings []Standing) {
	var dealsPerSecond float64
	if stats.Duration > 0 {
		dealsPerSecond = float64(stats.DealsSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("dealsGenerated", stats.DealsGenerated),
		logger.Int("dealsSubmitted", stats.DealsSubmitted),
		logger.Int("dealsAccepted", stats.DealsAccepted),
		logger.Int("dealsDuplicate", stats.DealsDuplicate),
		logger.Int("dealsFailed", stats.DealsFailed),
		logger.String("acceptedRevenue", "$"+humanize.CommafWithDigits(stats.AcceptedRevenue, 2)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("dealsPerSecond", dealsPerSecond))

	for _, s := range standings {
		log.Info(ctx, "standing",
			logger.Int("rank", s.Rank),
			logger.String("partner", s.Partner),
			logger.String("attributed", "$"+humanize.CommafWithDigits(s.Attributed, 2)),
			logger.Int("deals", s.Deals))
	}
}
