package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dylanram/attribution/internal/adapters/mq/queue"
	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/dedupe"
	"github.com/dylanram/attribution/internal/domain/model"
)

// DealDependencies defines the closed-deal intake operations.
type DealDependencies interface {
	dedupe.Deduper
	// Enqueue hands a deal to the ledger workers; queue.ErrFull signals backpressure.
	Enqueue(ctx context.Context, d model.ClosedDeal) error
}

// DealsHandler handles closed-deal submissions.
type DealsHandler struct {
	deps DealDependencies
	now  func() time.Time
}

// NewDealsHandler creates a new deals handler.
func NewDealsHandler(deps DealDependencies) *DealsHandler {
	return &DealsHandler{deps: deps, now: time.Now}
}

type dealRequest struct {
	DealID string           `json:"deal_id"`
	Model  string           `json:"model"`
	Deal   attribution.Deal `json:"deal"`
}

type ackResponse struct {
	Status    string `json:"status"`
	DealID    string `json:"deal_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostDeal handles POST /deals requests.
func (h *DealsHandler) HandlePostDeal(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_deal"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	kind, err := attribution.ParseKind(req.Model)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if err := attribution.Validate(req.Deal); err != nil {
		writeDomainError(w, op, err)
		return
	}
	cd := model.NewClosedDeal(req.DealID, req.Deal, kind, h.now())

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), cd.DealID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", DealID: cd.DealID, Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), cd); err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), cd.DealID)
		if errors.Is(err, queue.ErrFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", DealID: cd.DealID})
}
