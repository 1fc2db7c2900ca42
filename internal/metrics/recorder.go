// Package metrics records pipeline stage timings and outcomes. Components
// receive a Recorder by injection; NoopRecorder is the default so callers
// never nil-check.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder defines the metrics operations the orchestrator feeds.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncPipelineOutcome(outcome string)
}

// NoopRecorder does nothing; methods inline away.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncPipelineOutcome(string)                  {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	outcomes      *prom.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prom.NewRegistry(),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "labs_pipeline_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage.",
			Buckets: prom.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Name: "labs_pipeline_outcomes_total",
			Help: "Pipeline runs by terminal outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.stageDuration, r.outcomes)
	return r
}

func (r *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncPipelineOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the recorder's registry for scraping.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
