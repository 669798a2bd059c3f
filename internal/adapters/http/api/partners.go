package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultPartnersLimit = 10

// PartnerDependencies defines the ledger read operations.
type PartnerDependencies interface {
	TopN(ctx context.Context, n int) ([]Standing, error)
	Rank(ctx context.Context, partner string) (Standing, error)
}

// PartnersHandler serves ledger standings.
type PartnersHandler struct {
	deps     PartnerDependencies
	maxLimit int
}

// NewPartnersHandler creates a new partners handler.
func NewPartnersHandler(deps PartnerDependencies, maxLimit int) *PartnersHandler {
	return &PartnersHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /partners?limit=N requests. limit defaults to 10.
func (h *PartnersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_partners"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultPartnersLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	standings, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

// HandleGet handles GET /partners/{partner} requests.
func (h *PartnersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_partner"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/partners/")
	partner, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(partner) == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	standing, err := h.deps.Rank(r.Context(), partner)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}
