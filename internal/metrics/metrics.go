// Package metrics exposes editor activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels used by counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
)

// Recorder receives editor events. Implementations must accept a nil
// receiver so that metrics stay optional.
type Recorder interface {
	ObserveRewrite(d time.Duration, err error)
	IncManualEdit(result string)
	IncForkWrite(result string)
	IncSandboxDropped(reason string)
	IncOverwrite()
	SessionOpened()
	SessionClosed()
}

// Noop discards every event.
type Noop struct{}

func (Noop) ObserveRewrite(time.Duration, error) {}
func (Noop) IncManualEdit(string)                {}
func (Noop) IncForkWrite(string)                 {}
func (Noop) IncSandboxDropped(string)            {}
func (Noop) IncOverwrite()                       {}
func (Noop) SessionOpened()                      {}
func (Noop) SessionClosed()                      {}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	rewrites        *prom.CounterVec
	rewriteDuration prom.Histogram
	manualEdits     *prom.CounterVec
	forkWrites      *prom.CounterVec
	sandboxDropped  *prom.CounterVec
	overwrites      prom.Counter
	sessions        prom.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		rewrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "themestudio",
			Name:      "rewrites_total",
			Help:      "AI rewrites by result",
		}, []string{"result"}),
		rewriteDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "themestudio",
			Name:      "rewrite_duration_seconds",
			Help:      "Time spent waiting for the AI rewrite service",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		manualEdits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "themestudio",
			Name:      "manual_edits_total",
			Help:      "Manual text edits by result",
		}, []string{"result"}),
		forkWrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "themestudio",
			Name:      "fork_writes_total",
			Help:      "Fork persistence writes by result",
		}, []string{"result"}),
		sandboxDropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "themestudio",
			Name:      "sandbox_dropped_total",
			Help:      "Sandbox messages dropped by reason",
		}, []string{"reason"}),
		overwrites: prom.NewCounter(prom.CounterOpts{
			Namespace: "themestudio",
			Name:      "overwrites_total",
			Help:      "AI results that replaced a document changed after submission",
		}),
		sessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: "themestudio",
			Name:      "sessions_active",
			Help:      "Open editor sessions",
		}),
	}
	reg.MustRegister(pr.rewrites, pr.rewriteDuration, pr.manualEdits, pr.forkWrites,
		pr.sandboxDropped, pr.overwrites, pr.sessions)
	return pr
}

func (p *PrometheusRecorder) ObserveRewrite(d time.Duration, err error) {
	if p == nil {
		return
	}
	p.rewriteDuration.Observe(d.Seconds())
	if err != nil {
		p.rewrites.WithLabelValues(ResultFailure).Inc()
		return
	}
	p.rewrites.WithLabelValues(ResultSuccess).Inc()
}

func (p *PrometheusRecorder) IncManualEdit(result string) {
	if p == nil {
		return
	}
	p.manualEdits.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncForkWrite(result string) {
	if p == nil {
		return
	}
	p.forkWrites.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncSandboxDropped(reason string) {
	if p == nil {
		return
	}
	p.sandboxDropped.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncOverwrite() {
	if p == nil {
		return
	}
	p.overwrites.Inc()
}

func (p *PrometheusRecorder) SessionOpened() {
	if p == nil {
		return
	}
	p.sessions.Inc()
}

func (p *PrometheusRecorder) SessionClosed() {
	if p == nil {
		return
	}
	p.sessions.Dec()
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
