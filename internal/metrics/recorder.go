// Package metrics records the trend, rate and counter samples produced by the
// scenarios and the archive client, aggregates them for threshold checks and
// mirrors them into a Prometheus registry.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind is the aggregation a metric uses.
type Kind string

const (
	KindTrend   Kind = "trend"   // millisecond samples, percentiles
	KindRate    Kind = "rate"    // 0/1 samples, fraction of non-zero
	KindCounter Kind = "counter" // summed values
)

// Built-in metrics recorded outside the scenarios.
const (
	HTTPReqDuration   = "http_req_duration"
	HTTPReqFailed     = "http_req_failed"
	HTTPReqs          = "http_reqs"
	Iterations        = "iterations"
	IterationDuration = "iteration_duration"
)

// Tags are the labels attached to a sample.
type Tags map[string]string

// Key returns a sorted, stable key for the tags.
func (t Tags) Key() string {
	if len(t) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+t[k])
	}
	return strings.Join(parts, ",")
}

// Sample is one recorded data point.
type Sample struct {
	Metric string
	Kind   Kind
	Time   time.Time
	Value  float64
	Tags   Tags
}

// Sink receives every sample as it is recorded.
type Sink interface {
	Write(s Sample) error
}

// Stats summarizes one metric across all tags.
type Stats struct {
	Kind  Kind
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
	P50   float64
	P90   float64
	P95   float64
	P99   float64
	Rate  float64 // fraction of non-zero samples, rate metrics only
}

type series struct {
	kind    Kind
	count   int64
	sum     float64
	min     float64
	max     float64
	nonZero int64
	values  []float64
}

// Recorder is safe for concurrent use by every virtual user of a run.
type Recorder struct {
	mu     sync.Mutex
	series map[string]*series
	sinks  []Sink
	prom   *promSet
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSink fans every sample out to s.
func WithSink(s Sink) Option {
	return func(r *Recorder) { r.sinks = append(r.sinks, s) }
}

// WithClock overrides the sample timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates an empty recorder with its own Prometheus registry.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		series: make(map[string]*series),
		prom:   newPromSet(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTrend records a duration sample, in milliseconds, under the group in ctx.
func (r *Recorder) AddTrend(ctx context.Context, metric string, d time.Duration, tags Tags) {
	r.add(ctx, metric, KindTrend, float64(d)/float64(time.Millisecond), tags)
}

// AddRate records a 0/1 sample. hit is stored as 1.
func (r *Recorder) AddRate(ctx context.Context, metric string, hit bool, tags Tags) {
	v := 0.0
	if hit {
		v = 1
	}
	r.add(ctx, metric, KindRate, v, tags)
}

// AddCount increments a counter metric.
func (r *Recorder) AddCount(ctx context.Context, metric string, n float64, tags Tags) {
	r.add(ctx, metric, KindCounter, n, tags)
}

func (r *Recorder) add(ctx context.Context, metric string, kind Kind, v float64, tags Tags) {
	merged := Tags{}
	if g := Group(ctx); g != "" {
		merged["group"] = g
	}
	for k, val := range tags {
		merged[k] = val
	}
	s := Sample{Metric: metric, Kind: kind, Time: r.now(), Value: v, Tags: merged}

	r.mu.Lock()
	ser, ok := r.series[metric]
	if !ok {
		ser = &series{kind: kind, min: v, max: v}
		r.series[metric] = ser
	}
	ser.count++
	ser.sum += v
	if v < ser.min {
		ser.min = v
	}
	if v > ser.max {
		ser.max = v
	}
	if v != 0 {
		ser.nonZero++
	}
	if kind == KindTrend {
		ser.values = append(ser.values, v)
	}
	sinks := r.sinks
	r.mu.Unlock()

	r.prom.observe(s)
	for _, sink := range sinks {
		if err := sink.Write(s); err != nil {
			r.logger.Warn("metric sink write failed", zap.String("metric", metric), zap.Error(err))
		}
	}
}

// Stats returns the aggregate for one metric. ok is false when nothing was
// recorded under that name.
func (r *Recorder) Stats(metric string) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ser, ok := r.series[metric]
	if !ok {
		return Stats{}, false
	}
	return ser.stats(), true
}

// Snapshot returns the aggregate of every recorded metric.
func (r *Recorder) Snapshot() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Stats, len(r.series))
	for name, ser := range r.series {
		out[name] = ser.stats()
	}
	return out
}

// Quantile returns the p-th percentile of a trend metric.
func (r *Recorder) Quantile(metric string, p float64) (float64, bool) {
	r.mu.Lock()
	ser, ok := r.series[metric]
	var sorted []float64
	if ok {
		sorted = append(sorted, ser.values...)
	}
	r.mu.Unlock()
	if len(sorted) == 0 {
		return 0, false
	}
	sort.Float64s(sorted)
	return percentile(sorted, p), true
}

func (s *series) stats() Stats {
	st := Stats{Kind: s.kind, Count: s.count, Sum: s.sum, Min: s.min, Max: s.max}
	if s.count > 0 {
		st.Avg = s.sum / float64(s.count)
		st.Rate = float64(s.nonZero) / float64(s.count)
	}
	if len(s.values) > 0 {
		sorted := make([]float64, len(s.values))
		copy(sorted, s.values)
		sort.Float64s(sorted)
		st.P50 = percentile(sorted, 50)
		st.P90 = percentile(sorted, 90)
		st.P95 = percentile(sorted, 95)
		st.P99 = percentile(sorted, 99)
	}
	return st
}

// Percentile returns the p-th percentile of an ascending slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return percentile(sorted, p)
}

func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
