package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func findFamily(reg *prometheus.Registry, name string) *dto.MetricFamily {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("scoring"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.pointsAwarded.WithLabelValues("A").Inc()

			Convey("Then metrics are registered under the custom names", func() {
				f := findFamily(registry, "test_scoring_points_awarded_total")
				So(f, ShouldNotBeNil)
				labels := f.GetMetric()[0].GetLabel()
				names := make([]string, 0, len(labels))
				for _, l := range labels {
					names = append(names, l.GetName())
				}
				So(names, ShouldContain, "env")
				So(names, ShouldContain, "team")
			})
		})

		Convey("When creating a manager with default names", func() {
			m := NewManager(WithPrometheusRegistry(registry))
			m.persistenceFailures.WithLabelValues("player").Inc()

			Convey("Then persistence failures use the documented name", func() {
				f := findFamily(registry, "takraw_engine_persistence_failures_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording domain metrics", func() {
			So(func() {
				RecordPlay("attack", true)
				RecordPlay("serve", false)
				RecordPoint("A")
				RecordUndo("action")
				RecordSetFinished("B")
				RecordRejected("stage_mismatch")
				RecordCommandDuplicate()
				UpdateActiveMatches(3)
			}, ShouldNotPanic)

			Convey("Then they are visible in the shared registry", func() {
				f := findFamily(GetRegistry(), "takraw_engine_plays_recorded_total")
				So(f, ShouldNotBeNil)
				So(len(f.GetMetric()), ShouldBeGreaterThanOrEqualTo, 2)
				g := findFamily(GetRegistry(), "takraw_engine_active_matches")
				So(g.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 3)
			})
		})

		Convey("When recording execution and transport metrics", func() {
			So(func() {
				UpdateQueueSize(0, 4)
				UpdateQueueCapacity(128)
				RecordQueueRejected("full")
				UpdateWorkerCount(4)
				RecordCommandLatency("record_play", 1.5)
				RecordPersistenceFailure("match")
				RecordStoreLatency("save_player", 0.7)
				RecordHTTPRequest("plays", "POST", "200")
				RecordHTTPRequestDuration("plays", "POST", "200", 2)
				RecordHTTPError("plays", "POST", "conflict", "medium")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}
