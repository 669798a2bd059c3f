package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dylanram/attribution/internal/dealgen"
	"github.com/dylanram/attribution/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumDeals    = 10_000
	defaultNumPartners = 40
	defaultTopN        = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettleWait  = 2 * time.Minute
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numDeals     = flag.Int("deals", defaultNumDeals, "Number of deals to generate and submit")
		numPartners  = flag.Int("partners", defaultNumPartners, "Size of the partner pool")
		topN         = flag.Int("top", defaultTopN, "Number of standings to fetch and verify")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle       = flag.Duration("settle", defaultSettleWait, "How long to wait for the ledger to credit every deal")
		model        = flag.String("model", "", "Attribution model for every deal (default: random per deal)")
		duplicatePct = flag.Int("duplicates", 5, "Percentage of deals resent with the same deal id")
		seed         = flag.Uint64("seed", 0, "Random seed (default: clock)")
		outputFile   = flag.String("output", "", "Write generated deals to this JSON file")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &dealgen.Config{
		BaseURL:      *baseURL,
		NumDeals:     *numDeals,
		NumPartners:  *numPartners,
		TopN:         *topN,
		Workers:      *workers,
		Timeout:      *timeout,
		SettleWait:   *settle,
		Model:        *model,
		DuplicatePct: *duplicatePct,
		Seed:         *seed,
		OutputFile:   *outputFile,
	}

	if _, err := dealgen.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
