package api

import (
	"context"
	"net/http"

	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/chart"
)

// AttributionDependencies defines the synchronous engine operations.
type AttributionDependencies interface {
	Attribute(ctx context.Context, d attribution.Deal, k attribution.Kind) (attribution.Result, error)
	Compare(ctx context.Context, d attribution.Deal) ([]attribution.Result, error)
	Models() []attribution.ModelInfo
}

// AttributionHandler serves the engine over HTTP.
type AttributionHandler struct {
	deps AttributionDependencies
}

// NewAttributionHandler creates a new attribution handler.
func NewAttributionHandler(deps AttributionDependencies) *AttributionHandler {
	return &AttributionHandler{deps: deps}
}

type attributeRequest struct {
	Model string           `json:"model"`
	Deal  attribution.Deal `json:"deal"`
}

type compareRequest struct {
	Deal attribution.Deal `json:"deal"`
}

// resultResponse is a result plus the bar chart rows for it.
type resultResponse struct {
	Model     attribution.Kind   `json:"model"`
	ModelName string             `json:"model_name"`
	Value     float64            `json:"value"`
	Amounts   map[string]float64 `json:"amounts"`
	Partners  []string           `json:"partners"`
	Bars      []chart.Bar        `json:"bars"`
	AxisMax   float64            `json:"axis_max"`
}

type compareResponse struct {
	Results []resultResponse `json:"results"`
}

type modelsResponse struct {
	Models []attribution.ModelInfo `json:"models"`
}

func newResultResponse(r attribution.Result) resultResponse {
	info, _ := r.Model.Info()
	bars := chart.Bars(r)
	return resultResponse{
		Model:     r.Model,
		ModelName: info.Name,
		Value:     r.Value,
		Amounts:   r.Amounts,
		Partners:  r.Partners,
		Bars:      bars,
		AxisMax:   chart.AxisMax(bars),
	}
}

// HandleAttribute handles POST /attribution requests.
func (h *AttributionHandler) HandleAttribute(w http.ResponseWriter, r *http.Request) {
	const op = "api.attribute"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req attributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	kind, err := attribution.ParseKind(req.Model)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	res, err := h.deps.Attribute(r.Context(), req.Deal, kind)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(res))
}

// HandleCompare handles POST /attribution/compare requests.
func (h *AttributionHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	results, err := h.deps.Compare(r.Context(), req.Deal)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	out := compareResponse{Results: make([]resultResponse, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, newResultResponse(res))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleModels handles GET /models requests.
func (h *AttributionHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: h.deps.Models()})
}

// HandleSample handles GET /sample requests.
func (h *AttributionHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, attribution.SampleDeal())
}
