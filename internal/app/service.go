// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/dylanram/attribution/internal/adapters/mq/queue"
	workerpool "github.com/dylanram/attribution/internal/adapters/mq/worker"
	repository "github.com/dylanram/attribution/internal/adapters/repository"
	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/dedupe"
	"github.com/dylanram/attribution/internal/domain/model"
	"github.com/dylanram/attribution/internal/domain/types"
	"github.com/dylanram/attribution/pkg/logger"
	"github.com/dylanram/attribution/pkg/metrics"
)

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for attribution and the partner ledger.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *attribution.Engine
	ledger  repository.Store
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ledger workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the closed-deal queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many deal ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngine sets the attribution engine, e.g. one built from configured weights.
func WithEngine(e *attribution.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLedger replaces the in-memory ledger.
func WithLedger(l repository.Store) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// New constructs a new Service with default configuration. Synchronous
// attribution and ledger reads work before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		e, err := attribution.NewEngine(attribution.DefaultWeights())
		if err != nil {
			panic(fmt.Sprintf("default weights rejected: %v", err))
		}
		s.engine = e
	}
	if s.ledger == nil {
		s.ledger = repository.NewLedger()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

func (s *Service) log() logger.Logger {
	return s.logger
}

// Start creates the queue and starts the ledger workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.log().Info(ctx, "starting attribution service...")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.ledger)
	// Workers outlive the request that started them; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.log().Info(ctx, "attribution service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes intake and waits for queued deals to be credited.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.log().Info(ctx, "stopping attribution service...")
	s.started = false
	if err := s.pool.Shutdown(ctx); err != nil {
		s.log().Error(ctx, "worker pool shutdown", logger.Error(err))
		return err
	}
	s.log().Info(ctx, "attribution service stopped", logger.Int("credited", int(s.pool.Processed())))
	return nil
}

// Models returns the model catalog.
func (s *Service) Models() []attribution.ModelInfo {
	return attribution.Catalog()
}

// Attribute runs one model over a deal.
func (s *Service) Attribute(ctx context.Context, d attribution.Deal, k attribution.Kind) (attribution.Result, error) {
	start := time.Now()
	res, err := s.engine.Attribute(d, k)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordAttribution(string(k), metrics.OutcomeError, elapsed)
		metrics.RecordAttributionFailure(ErrorKind(err))
		s.log().Debug(ctx, "attribution rejected", logger.String("model", string(k)), logger.Error(err))
		return attribution.Result{}, err
	}
	metrics.RecordAttribution(string(k), metrics.OutcomeOK, elapsed)
	metrics.RecordAttributedValue(string(k), res.Total())
	return res, nil
}

// Compare runs every catalog model over a deal.
func (s *Service) Compare(ctx context.Context, d attribution.Deal) ([]attribution.Result, error) {
	start := time.Now()
	out, err := s.engine.Compare(d)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordAttributionFailure(ErrorKind(err))
		s.log().Debug(ctx, "comparison rejected", logger.Error(err))
		return nil, err
	}
	for _, r := range out {
		metrics.RecordAttribution(string(r.Model), metrics.OutcomeOK, elapsed/float64(len(out)))
	}
	return out, nil
}

// SeenAndRecord atomically checks if a deal id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDealIntake(metrics.OutcomeDuplicate)
	}
	return seen
}

// Unrecord forgets a deal id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the number of remembered deal ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits a closed deal for asynchronous crediting. It fails with
// eventqueue.ErrFull under backpressure.
func (s *Service) Enqueue(ctx context.Context, d model.ClosedDeal) error { //nolint:gocritic // hugeParam: copied into the queue
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		metrics.RecordDealIntake(metrics.OutcomeRejected)
		return ErrNotStarted
	}
	if err := s.queue.Enqueue(ctx, d); err != nil {
		metrics.RecordDealIntake(metrics.OutcomeRejected)
		s.log().Warn(ctx, "deal not queued", logger.String("deal_id", d.DealID), logger.Error(err))
		return err
	}
	metrics.RecordDealIntake(metrics.OutcomeAccepted)
	s.log().Debug(ctx, "deal queued",
		logger.String("deal_id", d.DealID),
		logger.String("model", string(d.Model)),
		logger.Int("touchpoints", len(d.Deal.Touchpoints)),
	)
	return nil
}

// TopN returns the top N partner standings.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Standing, error) {
	return s.ledger.TopN(ctx, n)
}

// Rank returns the standing of one partner.
func (s *Service) Rank(ctx context.Context, partner string) (types.Standing, error) {
	return s.ledger.Rank(ctx, partner)
}

// Totals summarises the ledger.
func (s *Service) Totals(ctx context.Context) types.Totals {
	return s.ledger.Totals(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	totals := s.ledger.Totals(ctx)
	stats := map[string]any{
		"started":        s.started,
		"worker_count":   s.workerCount,
		"queue_capacity": s.queueSize,
		"dedupe_size":    s.dedupeSize,
		"dedupe_entries": s.deduper.Size(),
		"models":         len(attribution.Catalog()),
		"partners":       totals.Partners,
		"deals":          totals.Deals,
		"revenue":        totals.Revenue,
	}
	if s.queue != nil {
		stats["queue_length"] = s.queue.Len()
	}
	if s.pool != nil {
		stats["processed"] = s.pool.Processed()
	}
	return stats
}

// ErrorKind names an error for metrics labels and API codes.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, attribution.ErrUnknownModel):
		return "unknown_model"
	case errors.Is(err, attribution.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
