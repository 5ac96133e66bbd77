// internal/metrics/prometheus.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promSet mirrors recorded samples into a private registry so several
// recorders (tests, back-to-back runs) never collide on registration.
type promSet struct {
	registry *prometheus.Registry
	trend    *prometheus.HistogramVec
	rate     *prometheus.CounterVec
	counter  *prometheus.CounterVec
}

func newPromSet() *promSet {
	registry := prometheus.NewRegistry()
	p := &promSet{
		registry: registry,
		trend: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heritageload_trend_milliseconds",
				Help:    "Trend samples (durations) in milliseconds",
				Buckets: prometheus.ExponentialBuckets(5, 2, 14),
			},
			[]string{"metric"},
		),
		rate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heritageload_rate_total",
				Help: "Rate samples split by outcome",
			},
			[]string{"metric", "outcome"},
		),
		counter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heritageload_counter_total",
				Help: "Counter metric totals",
			},
			[]string{"metric"},
		),
	}
	registry.MustRegister(p.trend, p.rate, p.counter)
	return p
}

func (p *promSet) observe(s Sample) {
	switch s.Kind {
	case KindTrend:
		p.trend.WithLabelValues(s.Metric).Observe(s.Value)
	case KindRate:
		outcome := "zero"
		if s.Value != 0 {
			outcome = "nonzero"
		}
		p.rate.WithLabelValues(s.Metric, outcome).Inc()
	case KindCounter:
		p.counter.WithLabelValues(s.Metric).Add(s.Value)
	}
}

// Registry exposes the recorder's Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.prom.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom.registry, promhttp.HandlerOpts{})
}
