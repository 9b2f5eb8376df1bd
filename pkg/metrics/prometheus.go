package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "agentic_search"

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
// Each recorder owns its registry so several can coexist in one process.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	throttleTotal   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	queriesTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of model requests by model, stage and status",
			},
			[]string{"model", "stage", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Estimated tokens used in model requests",
			},
			[]string{"model", "stage", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of model requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model", "stage"},
		),
		throttleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_throttle_total",
				Help:      "Total number of outbound pacing events",
			},
			[]string{"model", "reason"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Finished queries by outcome",
			},
			[]string{"outcome"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_rejections_total",
				Help:      "Queries refused by the security gate",
			},
			[]string{"reason"},
		),
	}
}

// Registry exposes the recorder's registry, for tests and custom exporters.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records metrics for a completed model request.
func (p *PrometheusRecorder) ObserveRequest(
	model, stage string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}
	p.requestsTotal.WithLabelValues(model, stage, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, stage, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, stage, "completion").Add(float64(completionTokens))
	}
	p.requestDuration.WithLabelValues(model, stage).Observe(duration.Seconds())
}

// IncThrottle increments the throttle counter for outbound pacing events.
func (p *PrometheusRecorder) IncThrottle(model, reason string) {
	p.throttleTotal.WithLabelValues(model, reason).Inc()
}

// ObserveStage records the time a query spent in a pipeline stage.
func (p *PrometheusRecorder) ObserveStage(stage string, duration time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncQuery counts a finished query by outcome.
func (p *PrometheusRecorder) IncQuery(outcome string) {
	p.queriesTotal.WithLabelValues(outcome).Inc()
}

// IncRejection counts queries refused by the security gate.
func (p *PrometheusRecorder) IncRejection(reason string) {
	p.rejectionsTotal.WithLabelValues(reason).Inc()
}
