package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cortex"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	syncDuration    *prom.HistogramVec
	syncOutcomes    *prom.CounterVec
	stageDuration   *prom.HistogramVec
	mirrorOps       *prom.CounterVec
	reconciled      *prom.CounterVec
	lastSuccess     prom.Gauge
	eventsForwarded *prom.CounterVec
}

// NewPrometheusRecorder constructs the sync metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		syncDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of exercise sync invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		syncOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sync_outcomes_total",
			Help:      "Exercise sync invocations by mode and outcome",
		}, []string{"mode", "outcome"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_stage_duration_seconds",
			Help:      "Duration of the mirror, scan and reconcile stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		mirrorOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_operations_total",
			Help:      "Mirror clone and pull operations by result",
		}, []string{"op", "result"}),
		reconciled: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "exercises_reconciled_total",
			Help:      "Exercise upserts by result",
		}, []string{"result"}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync",
		}),
		eventsForwarded: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_forwarded_total",
			Help:      "Domain events forwarded to NATS by type and result",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(pr.syncDuration, pr.syncOutcomes, pr.stageDuration, pr.mirrorOps, pr.reconciled, pr.lastSuccess, pr.eventsForwarded)
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObserveSyncDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.syncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSyncOutcome(mode string, outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.syncOutcomes.WithLabelValues(mode, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncMirrorOperation(op string, success bool) {
	if p == nil {
		return
	}
	p.mirrorOps.WithLabelValues(op, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) AddReconciled(upserted, failed int) {
	if p == nil {
		return
	}
	p.reconciled.WithLabelValues("success").Add(float64(upserted))
	p.reconciled.WithLabelValues("failed").Add(float64(failed))
}

func (p *PrometheusRecorder) SetLastSuccess(t time.Time) {
	if p == nil {
		return
	}
	p.lastSuccess.Set(float64(t.Unix()))
}

func (p *PrometheusRecorder) IncEventsForwarded(eventType string, success bool) {
	if p == nil {
		return
	}
	p.eventsForwarded.WithLabelValues(eventType, resultLabel(success)).Inc()
}

// HTTPHandler returns an http.Handler that serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
