// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/google/uuid"
)

// ClosedDeal is a closed-won deal submitted for crediting to the partner ledger.
type ClosedDeal struct {
	DealID     string           // unique id for idempotency
	Deal       attribution.Deal // value and partner touchpoints
	Model      attribution.Kind // model used to split the value
	ReceivedAt time.Time
}

// NewClosedDeal builds a ClosedDeal, generating a deal id when id is blank.
func NewClosedDeal(id string, deal attribution.Deal, kind attribution.Kind, receivedAt time.Time) ClosedDeal {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	return ClosedDeal{DealID: id, Deal: deal, Model: kind, ReceivedAt: receivedAt}
}
