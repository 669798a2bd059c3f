// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dylanram/attribution/internal/adapters/repository"
	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/types"
	json "github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AttributionDependencies
	DealDependencies
	PartnerDependencies
}

// Standing mirrors the read shape returned by ledger queries.
type Standing = types.Standing

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	attributionHandler *AttributionHandler
	dealsHandler       *DealsHandler
	partnersHandler    *PartnersHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxPartnersLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		attributionHandler: NewAttributionHandler(deps),
		dealsHandler:       NewDealsHandler(deps),
		partnersHandler:    NewPartnersHandler(deps, maxPartnersLimit),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/models", MetricsMiddleware(s.attributionHandler.HandleModels, "models"))
	mux.HandleFunc("/sample", MetricsMiddleware(s.attributionHandler.HandleSample, "sample"))
	mux.HandleFunc("/attribution", MetricsMiddleware(s.attributionHandler.HandleAttribute, "attribution"))
	mux.HandleFunc("/attribution/compare", MetricsMiddleware(s.attributionHandler.HandleCompare, "compare"))
	mux.HandleFunc("/deals", MetricsMiddleware(s.dealsHandler.HandlePostDeal, "deals"))
	mux.HandleFunc("/partners", MetricsMiddleware(s.partnersHandler.HandleList, "partners"))
	mux.HandleFunc("/partners/", MetricsMiddleware(s.partnersHandler.HandleGet, "partner"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine and ledger errors onto status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, attribution.ErrUnknownModel):
		writeError(w, http.StatusBadRequest, "unknown_model", Wrap(op, err))
	case errors.Is(err, attribution.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decodeJSON reads a single JSON document into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
