// Package types contains common types used across the application
package types

// Standing is a partner's position in the ledger ranking.
type Standing struct {
	Rank        int     `json:"rank"`
	Partner     string  `json:"partner"`
	Attributed  float64 `json:"attributed"`
	Deals       int     `json:"deals"`
	AvgDealSize float64 `json:"avg_deal_size"`
}

// Totals summarises the whole ledger.
type Totals struct {
	Partners int     `json:"partners"`
	Deals    int     `json:"deals"`
	Revenue  float64 `json:"revenue"`
}
