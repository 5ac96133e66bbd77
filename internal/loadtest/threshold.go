// internal/loadtest/threshold.go
package loadtest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FairForge/heritageload/internal/metrics"
)

// Comparator is the relation a threshold asserts.
type Comparator string

const (
	ComparatorLessThan       Comparator = "<"
	ComparatorLessOrEqual    Comparator = "<="
	ComparatorGreaterThan    Comparator = ">"
	ComparatorGreaterOrEqual Comparator = ">="
	ComparatorEqual          Comparator = "=="
)

// Aggregation names the statistic a threshold reads.
type Aggregation string

const (
	AggPercentile Aggregation = "p"
	AggAvg        Aggregation = "avg"
	AggMin        Aggregation = "min"
	AggMax        Aggregation = "max"
	AggMed        Aggregation = "med"
	AggRate       Aggregation = "rate"
	AggCount      Aggregation = "count"
)

// Threshold is one parsed k6-style expression bound to a metric, e.g.
// http_req_duration p(95)<2000.
type Threshold struct {
	Metric     string
	Expr       string
	Agg        Aggregation
	Percentile float64
	Comparator Comparator
	Target     float64
}

var exprPattern = regexp.MustCompile(`^\s*(p\(\s*([0-9]+(?:\.[0-9]+)?)\s*\)|avg|min|max|med|rate|count)\s*(<=|>=|==|<|>)\s*(-?[0-9]+(?:\.[0-9]+)?)\s*$`)

// ParseThreshold parses expr for metric.
func ParseThreshold(metric, expr string) (Threshold, error) {
	if metric == "" {
		return Threshold{}, fmt.Errorf("threshold %q: metric is required", expr)
	}
	m := exprPattern.FindStringSubmatch(expr)
	if m == nil {
		return Threshold{}, fmt.Errorf("threshold %q on %s: unsupported expression", expr, metric)
	}
	t := Threshold{Metric: metric, Expr: strings.TrimSpace(expr), Comparator: Comparator(m[3])}
	if m[2] != "" {
		t.Agg = AggPercentile
		p, err := strconv.ParseFloat(m[2], 64)
		if err != nil || p < 0 || p > 100 {
			return Threshold{}, fmt.Errorf("threshold %q on %s: percentile out of range", expr, metric)
		}
		t.Percentile = p
	} else {
		t.Agg = Aggregation(m[1])
	}
	target, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("threshold %q on %s: %w", expr, metric, err)
	}
	t.Target = target
	return t, nil
}

// MustThreshold is ParseThreshold for fixed profiles.
func MustThreshold(metric, expr string) Threshold {
	t, err := ParseThreshold(metric, expr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseThresholds parses "metric=expr" pairs, as given on the command line.
func ParseThresholds(specs []string) ([]Threshold, error) {
	out := make([]Threshold, 0, len(specs))
	for _, spec := range specs {
		metric, expr, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("threshold %q: want metric=expression", spec)
		}
		t, err := ParseThreshold(strings.TrimSpace(metric), expr)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (t Threshold) String() string { return t.Metric + " " + t.Expr }

// ThresholdResult is the outcome of one threshold check.
type ThresholdResult struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Quantiles resolves arbitrary percentiles of a trend metric.
type Quantiles interface {
	Quantile(metric string, p float64) (float64, bool)
}

// Evaluate checks t against the aggregate of its metric. A metric with no
// samples passes, except that count thresholds see zero.
func (t Threshold) Evaluate(snap map[string]metrics.Stats, q Quantiles) ThresholdResult {
	res := ThresholdResult{Threshold: t}
	st, ok := snap[t.Metric]

	switch t.Agg {
	case AggPercentile:
		switch {
		case q != nil:
			res.Actual, ok = q.Quantile(t.Metric, t.Percentile)
		case t.Percentile == 50:
			res.Actual = st.P50
		case t.Percentile == 90:
			res.Actual = st.P90
		case t.Percentile == 95:
			res.Actual = st.P95
		case t.Percentile == 99:
			res.Actual = st.P99
		default:
			ok = false
		}
	case AggMed:
		res.Actual = st.P50
	case AggAvg:
		res.Actual = st.Avg
	case AggMin:
		res.Actual = st.Min
	case AggMax:
		res.Actual = st.Max
	case AggRate:
		res.Actual = st.Rate
	case AggCount:
		res.Actual = float64(st.Count)
		ok = true
	}

	if !ok {
		res.Pass = true
		res.Message = fmt.Sprintf("%s: no samples", t)
		return res
	}
	res.Pass = compare(res.Actual, t.Target, t.Comparator)
	mark := "✓"
	if !res.Pass {
		mark = "✗"
	}
	res.Message = fmt.Sprintf("%s %s (actual %.2f)", mark, t, res.Actual)
	return res
}

func compare(actual, target float64, comp Comparator) bool {
	switch comp {
	case ComparatorLessThan:
		return actual < target
	case ComparatorLessOrEqual:
		return actual <= target
	case ComparatorGreaterThan:
		return actual > target
	case ComparatorGreaterOrEqual:
		return actual >= target
	case ComparatorEqual:
		return actual == target
	default:
		return false
	}
}

// EvaluateAll checks every threshold against one snapshot.
func EvaluateAll(ths []Threshold, snap map[string]metrics.Stats, q Quantiles) []ThresholdResult {
	out := make([]ThresholdResult, 0, len(ths))
	for _, t := range ths {
		out = append(out, t.Evaluate(snap, q))
	}
	return out
}
