package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swingcoach/internal/config"
)

// Stage outcomes recorded by ObserveStage.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
	OutcomeAborted  = "aborted"
)

// durationBuckets spans sub-second store writes through multi-minute uploads.
var durationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// Manager manages the Prometheus metrics for the pipeline and API.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	stageDuration   *prometheus.HistogramVec
	stageOutcomes   *prometheus.CounterVec
	runOutcomes     *prometheus.CounterVec
	runsInFlight    prometheus.Gauge
	pollWait        *prometheus.HistogramVec
	transcodeBytes  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "swingcoach",
		histogramBuckets: durationBuckets,
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.enabled {
		m.initializeMetrics()
	}
	return m
}

// NewFromConfig builds a manager honoring metrics.enabled.
func NewFromConfig(cfg *config.Config) *Manager {
	enabled := cfg == nil || cfg.Metrics.Enabled
	return NewManager(WithMetricsEnabled(enabled))
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"stage", "outcome"})

	m.stageOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "stage_outcomes_total",
		Help:      "Pipeline stage completions by stage and outcome",
	}, []string{"stage", "outcome"})

	m.runOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Finished pipeline runs by final swing status",
	}, []string{"status"})

	m.runsInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "runs_in_flight",
		Help:      "Pipeline runs currently executing",
	})

	m.pollWait = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "inference",
		Name:      "upload_ready_wait_seconds",
		Help:      "Time spent waiting for an uploaded clip to become ready",
		Buckets:   m.histogramBuckets,
	}, []string{"outcome"})

	m.transcodeBytes = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "transcode",
		Name:      "output_bytes",
		Help:      "Size of transcoded clips by encode mode",
		Buckets:   prometheus.ExponentialBuckets(1<<20, 2, 8),
	}, []string{"mode"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
}

func (m *Manager) active() bool {
	return m != nil && m.enabled
}

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool {
	return m.active()
}

// Registry returns the backing registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if !m.active() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStage records one stage execution.
func (m *Manager) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if !m.active() {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
	m.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RunStarted increments the in-flight gauge.
func (m *Manager) RunStarted() {
	if !m.active() {
		return
	}
	m.runsInFlight.Inc()
}

// RunFinished decrements the in-flight gauge and counts the final status.
func (m *Manager) RunFinished(status string) {
	if !m.active() {
		return
	}
	m.runsInFlight.Dec()
	m.runOutcomes.WithLabelValues(status).Inc()
}

// ObservePollWait records how long an upload took to become ready.
func (m *Manager) ObservePollWait(wait time.Duration, outcome string) {
	if !m.active() {
		return
	}
	m.pollWait.WithLabelValues(outcome).Observe(wait.Seconds())
}

// ObserveTranscode records the size of a transcoded clip.
func (m *Manager) ObserveTranscode(mode string, outputBytes int64) {
	if !m.active() {
		return
	}
	m.transcodeBytes.WithLabelValues(mode).Observe(float64(outputBytes))
}

// ObserveHTTPRequest records one API request.
func (m *Manager) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
