package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dylanram/attribution/internal/adapters/http/api"
	"github.com/dylanram/attribution/internal/adapters/mq/queue"
	"github.com/dylanram/attribution/internal/adapters/repository"
	"github.com/dylanram/attribution/internal/domain/attribution"
	"github.com/dylanram/attribution/internal/domain/dedupe"
	"github.com/dylanram/attribution/internal/domain/model"
	"github.com/dylanram/attribution/internal/domain/types"
	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	dedupe.Deduper
	engine     *attribution.Engine
	enqueued   []model.ClosedDeal
	enqueueErr error
	standings  []types.Standing
	rankErr    error
	rankedName string
}

func newMockDeps() *mockDeps {
	e, err := attribution.NewEngine(attribution.DefaultWeights())
	if err != nil {
		panic(err)
	}
	return &mockDeps{Deduper: dedupe.NewInMemoryDeduper(), engine: e}
}

func (m *mockDeps) Attribute(_ context.Context, d attribution.Deal, k attribution.Kind) (attribution.Result, error) {
	return m.engine.Attribute(d, k)
}

func (m *mockDeps) Compare(_ context.Context, d attribution.Deal) ([]attribution.Result, error) {
	return m.engine.Compare(d)
}

func (m *mockDeps) Models() []attribution.ModelInfo { return attribution.Catalog() }

func (m *mockDeps) Enqueue(_ context.Context, d model.ClosedDeal) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, d)
	return nil
}

func (m *mockDeps) TopN(_ context.Context, n int) ([]types.Standing, error) {
	if n > len(m.standings) {
		return m.standings, nil
	}
	return m.standings[:n], nil
}

func (m *mockDeps) Rank(_ context.Context, partner string) (types.Standing, error) {
	m.rankedName = partner
	if m.rankErr != nil {
		return types.Standing{}, m.rankErr
	}
	return types.Standing{Rank: 1, Partner: partner, Attributed: 60000, Deals: 1, AvgDealSize: 150000}, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"started": true, "deals": 3} }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, 50).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func sampleBody(model string) string {
	b, _ := json.Marshal(map[string]any{"model": model, "deal": attribution.SampleDeal()})
	return string(b)
}

type resultBody struct {
	Model     string             `json:"model"`
	ModelName string             `json:"model_name"`
	Value     float64            `json:"value"`
	Amounts   map[string]float64 `json:"amounts"`
	Partners  []string           `json:"partners"`
	Bars      []struct {
		Partner string  `json:"partner"`
		Amount  float64 `json:"amount"`
		Label   string  `json:"label"`
	} `json:"bars"`
	AxisMax float64 `json:"axis_max"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestAttributionRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When attributing the sample deal with the U-shaped model", func() {
			w := do(mux, http.MethodPost, "/attribution", sampleBody("u_shaped"))

			Convey("Then the split and chart come back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				var res resultBody
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Model, ShouldEqual, "u_shaped")
				So(res.ModelName, ShouldEqual, "U-Shaped")
				So(res.Amounts["Acme Consulting"], ShouldEqual, 60000)
				So(res.Amounts["Integration Pro"], ShouldEqual, 45000)
				So(res.Amounts["DataTech SI"], ShouldEqual, 15000)
				So(res.Partners, ShouldResemble, []string{"Acme Consulting", "DataTech SI", "Cloud Partners", "Integration Pro"})
				So(res.Bars[0].Label, ShouldEqual, "$60,000")
				So(res.AxisMax, ShouldAlmostEqual, 72000, 1e-6)
			})
		})

		Convey("When the model is given by display name", func() {
			w := do(mux, http.MethodPost, "/attribution", sampleBody("First Touch"))

			Convey("Then it resolves", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res resultBody
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Amounts["Acme Consulting"], ShouldEqual, 150000)
				So(res.Amounts["Integration Pro"], ShouldEqual, 0)
			})
		})

		Convey("When the model is unknown", func() {
			w := do(mux, http.MethodPost, "/attribution", sampleBody("w_shaped"))

			Convey("Then it is rejected as unknown_model", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var e errorBody
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Code, ShouldEqual, "unknown_model")
			})
		})

		Convey("When the deal is invalid", func() {
			w := do(mux, http.MethodPost, "/attribution", `{"model":"equal_split","deal":{"value":0,"touchpoints":[]}}`)

			Convey("Then it is rejected as invalid_input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var e errorBody
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Code, ShouldEqual, "invalid_input")
				So(e.Message, ShouldContainSubstring, "api.attribute")
			})
		})

		Convey("When the deal value is too large to settle in cents", func() {
			body := `{"deal":{"value":1e18,"touchpoints":[{"partner":"Acme Consulting","role":"referral","days_before_close":90}]}}`
			w := do(mux, http.MethodPost, "/attribution/compare", body)

			Convey("Then it is rejected as invalid_input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var e errorBody
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/attribution", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("When the method is wrong", func() {
			So(do(mux, http.MethodGet, "/attribution", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/models", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When comparing all models", func() {
			b, _ := json.Marshal(map[string]any{"deal": attribution.SampleDeal()})
			w := do(mux, http.MethodPost, "/attribution/compare", string(b))

			Convey("Then one result per model comes back in catalog order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out struct {
					Results []resultBody `json:"results"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out.Results), ShouldEqual, len(attribution.Catalog()))
				So(out.Results[0].Model, ShouldEqual, "equal_split")
				So(out.Results[0].Amounts["Cloud Partners"], ShouldEqual, 37500)
				So(out.Results[1].Amounts["DataTech SI"], ShouldEqual, 60000)
			})
		})

		Convey("When listing models and the sample deal", func() {
			models := do(mux, http.MethodGet, "/models", "")
			sample := do(mux, http.MethodGet, "/sample", "")

			Convey("Then both are served", func() {
				So(models.Code, ShouldEqual, http.StatusOK)
				So(models.Body.String(), ShouldContainSubstring, `"kind":"time_decay"`)
				So(sample.Code, ShouldEqual, http.StatusOK)
				var d attribution.Deal
				So(json.Unmarshal(sample.Body.Bytes(), &d), ShouldBeNil)
				So(d, ShouldResemble, attribution.SampleDeal())
			})
		})
	})
}

func TestDealsRoute(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		dealBody := func(id string) string {
			b, _ := json.Marshal(map[string]any{"deal_id": id, "model": "u_shaped", "deal": attribution.SampleDeal()})
			return string(b)
		}

		Convey("When a closed deal is submitted", func() {
			w := do(mux, http.MethodPost, "/deals", dealBody("deal-1"))

			Convey("Then it is accepted and queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].DealID, ShouldEqual, "deal-1")
				So(deps.enqueued[0].Model, ShouldEqual, attribution.UShaped)
			})

			Convey("And a repeat is acknowledged as duplicate", func() {
				w := do(mux, http.MethodPost, "/deals", dealBody("deal-1"))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When no deal id is given", func() {
			w := do(mux, http.MethodPost, "/deals", dealBody(""))

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack struct {
					DealID string `json:"deal_id"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.DealID, ShouldNotBeBlank)
				So(deps.enqueued[0].DealID, ShouldEqual, ack.DealID)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("wrapped: %w", queue.ErrFull)
			w := do(mux, http.MethodPost, "/deals", dealBody("deal-2"))

			Convey("Then backpressure is reported and the id is released", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
				So(deps.SeenAndRecord(context.Background(), "deal-2"), ShouldBeFalse)
			})
		})

		Convey("When the service is not accepting deals", func() {
			deps.enqueueErr = errors.New("service not started")
			w := do(mux, http.MethodPost, "/deals", dealBody("deal-3"))
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the deal is invalid", func() {
			w := do(mux, http.MethodPost, "/deals", `{"deal_id":"x","model":"linear","deal":{"value":100,"touchpoints":[{"partner":"a","role":"reseller"}]}}`)

			Convey("Then nothing is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "invalid_input")
				So(deps.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestPartnersRoutes(t *testing.T) {
	Convey("Given a ledger with standings", t, func() {
		deps := newMockDeps()
		deps.standings = []types.Standing{
			{Rank: 1, Partner: "Acme Consulting", Attributed: 60000, Deals: 1, AvgDealSize: 150000},
			{Rank: 2, Partner: "Integration Pro", Attributed: 45000, Deals: 1, AvgDealSize: 150000},
		}
		mux := newMux(deps)

		Convey("When listing with a limit", func() {
			w := do(mux, http.MethodGet, "/partners?limit=1", "")

			Convey("Then the top standings come back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []types.Standing
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].Partner, ShouldEqual, "Acme Consulting")
			})
		})

		Convey("When listing without a limit", func() {
			w := do(mux, http.MethodGet, "/partners", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Integration Pro")
		})

		Convey("When the limit is bad or too large", func() {
			So(do(mux, http.MethodGet, "/partners?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/partners?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/partners?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("When fetching one partner with an escaped name", func() {
			w := do(mux, http.MethodGet, "/partners/Acme%20Consulting", "")

			Convey("Then the name is unescaped", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.rankedName, ShouldEqual, "Acme Consulting")
				So(w.Body.String(), ShouldContainSubstring, `"avg_deal_size":150000`)
			})
		})

		Convey("When the partner is unknown", func() {
			deps.rankErr = fmt.Errorf("%w: Nobody", repository.ErrNotFound)
			w := do(mux, http.MethodGet, "/partners/Nobody", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})

		Convey("When the partner path is empty", func() {
			So(do(mux, http.MethodGet, "/partners/", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("Then /healthz serves Prometheus metrics", func() {
			do(mux, http.MethodGet, "/models", "")
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "attribution_service_http_requests_total")
		})

		Convey("Then /stats serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"deals":3`)
		})

		Convey("Then /dashboard serves the chart page", func() {
			w := do(mux, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Partner Attribution")
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: boom")
		})

		Convey("Then NewKind and Wrap format predictably", func() {
			So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(errors.Is(api.Wrap("api.op", cause), cause), ShouldBeTrue)
		})
	})
}
