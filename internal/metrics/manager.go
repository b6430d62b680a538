// Package metrics exposes the Prometheus instruments used across formcheck.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every instrument. All fields are safe for concurrent use.
type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterFrames             *prometheus.CounterVec
	CounterReps               *prometheus.CounterVec
	CounterFaults             *prometheus.CounterVec
	CounterScores             *prometheus.CounterVec
	CounterDetectorErrors     prometheus.Counter
	CounterPluginRuns         *prometheus.CounterVec

	// gauges
	GaugeRequests       prometheus.Gauge
	GaugeSessions       prometheus.Gauge
	GaugeLiveClients    prometheus.Gauge
	GaugeCaptureActive  prometheus.Gauge
	GaugeDetectorsInUse prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
	HistDetectDuration  prometheus.Histogram
	HistScore           *prometheus.HistogramVec
}

// NewTestManager returns a Manager backed by a private registry.
func NewTestManager() *Manager {
	return NewManager("formcheck", "test", prometheus.NewRegistry())
}

// NewTestManagerAndRegistry returns a Manager and the private registry it uses.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("formcheck", "test", reg), reg
}

// NewManager creates and registers every instrument with reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterHandleRequestPanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panic",
			Help:      "The total number of serve request panics",
		}),
		CounterFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames",
			Help:      "Frames processed by a tracker, by exercise and phase",
		}, []string{"exercise", "phase"}),
		CounterReps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reps",
			Help:      "Completed repetitions, by exercise and outcome",
		}, []string{"exercise", "outcome"}),
		CounterFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "faults",
			Help:      "Form faults raised, by exercise and fault",
		}, []string{"exercise", "fault"}),
		CounterScores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scores",
			Help:      "Posture scoring requests, by exercise",
		}, []string{"exercise"}),
		CounterDetectorErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detector_errors",
			Help:      "Pose engine failures",
		}),
		CounterPluginRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "plugin_runs",
			Help:      "Plugin executions, by plugin and result",
		}, []string{"plugin", "result"}),

		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		GaugeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Open tracking sessions",
		}),
		GaugeLiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_clients",
			Help:      "Connected live result websocket clients",
		}),
		GaugeCaptureActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capture_active",
			Help:      "1 while the camera runs at the active frame rate",
		}),
		GaugeDetectorsInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detectors_in_use",
			Help:      "Pose engines currently leased from the pool",
		}),

		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
		}),
		HistDetectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.15, 0.25, 0.5, 1},
			Name:      "detect_duration_seconds",
			Help:      "Pose engine latency per frame in seconds",
		}),
		HistScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
			Name:      "score",
			Help:      "Posture scores handed out",
		}, []string{"exercise"}),
	}
}
