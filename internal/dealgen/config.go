package dealgen

import (
	"time"

	"github.com/dylanram/attribution/internal/domain/attribution"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumDeals     int           // Number of deals to generate
	NumPartners  int           // Size of the partner pool deals draw from
	TopN         int           // Number of standings to fetch for verification
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	SettleWait   time.Duration // How long to wait for the ledger to catch up
	Model        string        // Model every deal is credited with; empty picks one per deal
	DuplicatePct int           // Percentage of submissions that resend an earlier deal id
	Seed         uint64        // Random seed; zero uses the clock
	OutputFile   string        // Optional JSON dump of generated deals
}

// Submission is the POST /deals body.
type Submission struct {
	DealID string           `json:"deal_id"`
	Model  string           `json:"model"`
	Deal   attribution.Deal `json:"deal"`
}

// AckResponse is the POST /deals reply.
type AckResponse struct {
	Status    string `json:"status"`
	DealID    string `json:"deal_id"`
	Duplicate bool   `json:"duplicate"`
}

// Standing is one row of GET /partners.
type Standing struct {
	Rank        int     `json:"rank"`
	Partner     string  `json:"partner"`
	Attributed  float64 `json:"attributed"`
	Deals       int     `json:"deals"`
	AvgDealSize float64 `json:"avg_deal_size"`
}

// LedgerStats is the subset of GET /stats a run verifies against.
type LedgerStats struct {
	Partners int     `json:"partners"`
	Deals    int     `json:"deals"`
	Revenue  float64 `json:"revenue"`
}

// Stats holds run statistics.
type Stats struct {
	DealsGenerated  int
	DealsSubmitted  int
	DealsAccepted   int
	DealsDuplicate  int
	DealsFailed     int
	AcceptedRevenue float64
	StandingsRead   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
