// Package repository holds the in-memory partner ledger.
package repository

import (
	"context"

	"github.com/dylanram/attribution/internal/domain/types"
)

// Store provides read/write access to partner credit.
type Store interface {
	// Credit adds a deal's attributed amounts to the ledger. Every partner
	// key counts the deal as influenced, including zero amounts.
	// Returns ErrDuplicateDeal when dealID was already credited.
	Credit(ctx context.Context, dealID string, dealValue float64, amounts map[string]float64) error

	// Rank returns the standing for a partner.
	// Returns ErrNotFound if the partner has no credited deals.
	Rank(ctx context.Context, partner string) (types.Standing, error)

	// TopN returns the top-N standings ordered by attributed amount desc.
	TopN(ctx context.Context, n int) ([]types.Standing, error)

	// Count returns the number of partners in the ledger.
	Count(ctx context.Context) int

	// Totals summarises the ledger.
	Totals(ctx context.Context) types.Totals
}
