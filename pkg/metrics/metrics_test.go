package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})
			})

			Convey("And collectors carry the namespace", func() {
				manager.attributions.WithLabelValues("equal_split", OutcomeOK).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_attributions_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "attribution")
				So(manager.subsystem, ShouldEqual, "service")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording attributions", func() {
			before := testutil.ToFloat64(globalManager.attributions.WithLabelValues("u_shaped", OutcomeOK))
			RecordAttribution("u_shaped", OutcomeOK, 0.3)
			RecordAttributedValue("u_shaped", 150000)
			RecordAttributionFailure("unknown_model")

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.attributions.WithLabelValues("u_shaped", OutcomeOK)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.attributedValue.WithLabelValues("u_shaped")), ShouldBeGreaterThanOrEqualTo, 150000)
				So(testutil.ToFloat64(globalManager.attributionFailures.WithLabelValues("unknown_model")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating queue gauges", func() {
			UpdateQueueCapacity(100)
			UpdateQueueSize(25, 100)

			Convey("Then size and utilization are set", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldAlmostEqual, 0.25, 1e-9)
			})

			Convey("And a zero capacity leaves utilization alone", func() {
				UpdateQueueSize(5, 0)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldAlmostEqual, 0.25, 1e-9)
			})
		})

		Convey("When updating ledger gauges", func() {
			UpdateLedger(4, 2, 300000)

			Convey("Then they reflect the ledger", func() {
				So(testutil.ToFloat64(globalManager.ledgerPartners), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.ledgerDeals), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.ledgerRevenue), ShouldEqual, 300000)
			})
		})

		Convey("When recording intake, worker, http and system metrics", func() {
			So(func() {
				RecordDealIntake(OutcomeAccepted)
				RecordDealIntake(OutcomeDuplicate)
				RecordDealCredited()
				RecordQueueEnqueueError("full")
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(1.5)
				RecordWorkerError()
				RecordHTTPRequest("attribution", "POST", "200", 2)
				RecordHTTPError("attribution", "POST", "invalid_input")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the registry exposes the series", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "attribution_service_deal_intake_total")
				So(joined, ShouldContainSubstring, "attribution_service_worker_count")
				So(joined, ShouldContainSubstring, "attribution_service_http_requests_total")
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})
	})
}
