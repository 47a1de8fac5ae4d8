package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "ladder")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered under the new names", func() {
				manager.pipelineRuns.WithLabelValues("full", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_pipeline_runs_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "dataset")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "ladder")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a pipeline run is recorded", func() {
			before := testutil.ToFloat64(globalManager.pipelineRuns.WithLabelValues("recent", "ok"))
			RecordPipelineRun("recent", "ok")
			RecordPipelineDuration("recent", 12.5)

			Convey("Then the counter moves by one", func() {
				So(testutil.ToFloat64(globalManager.pipelineRuns.WithLabelValues("recent", "ok")), ShouldEqual, before+1)
			})
		})

		Convey("When replay statistics are published", func() {
			UpdateReplayStats("full", 40, 45, 31)
			UpdateRivalries("full", 12)

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.snapshotsReplayed.WithLabelValues("full")), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.playersTracked.WithLabelValues("full")), ShouldEqual, 45)
				So(testutil.ToFloat64(globalManager.playersActive.WithLabelValues("full")), ShouldEqual, 31)
				So(testutil.ToFloat64(globalManager.rivalries.WithLabelValues("full")), ShouldEqual, 12)
			})
		})

		Convey("When ingestion and store activity is recorded", func() {
			before := testutil.ToFloat64(globalManager.snapshotsIngested.WithLabelValues("paste"))
			RecordSnapshotsIngested("paste", 3)
			RecordSnapshotRejected("malformed")
			UpdateStoredSnapshots(7)
			RecordStoreLatency("append", 0.4)
			RecordArtifactWritten("standings")
			UpdateQueueLength(2)
			RecordJob("queued")

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(globalManager.snapshotsIngested.WithLabelValues("paste")), ShouldEqual, before+3)
				So(testutil.ToFloat64(globalManager.storedSnapshots), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueLength), ShouldEqual, 2)
			})
		})

		Convey("When HTTP and error metrics are recorded", func() {
			So(func() {
				RecordHTTPRequest("/standings", "GET", "200")
				RecordHTTPRequestDuration("/standings", "GET", "200", 3.2)
				RecordErrorByComponent("api", "bad_request")
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
