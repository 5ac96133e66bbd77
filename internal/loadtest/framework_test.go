package loadtest

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/metrics"
)

type countingVU struct {
	id    int
	iters *atomic.Int64
	delay time.Duration
}

func (v *countingVU) Iterate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(v.delay):
	}
	v.iters.Add(1)
	return nil
}

type holdFunc func(ctx context.Context, d time.Duration) error

func (f holdFunc) Pause(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type fleet struct {
	mu    sync.Mutex
	built []int
	iters atomic.Int64
}

func (f *fleet) factory(id int) VU {
	f.mu.Lock()
	f.built = append(f.built, id)
	f.mu.Unlock()
	return &countingVU{id: id, iters: &f.iters, delay: time.Millisecond}
}

// poolSizes replaces the stage hold with a short real wait and records the
// pool size at every stage.
func poolSizes(r *Runner) *[]int {
	var sizes []int
	r.hold = holdFunc(func(ctx context.Context, d time.Duration) error {
		r.mu.Lock()
		sizes = append(sizes, len(r.pool))
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	})
	return &sizes
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, ReaderProfile().Validate())
	assert.NoError(t, ContributorProfile().Validate())
	assert.NoError(t, Options{VUs: 1, Iterations: 1}.Validate())

	assert.Error(t, Options{Name: "x"}.Validate())
	assert.Error(t, Options{Iterations: 3}.Validate())
	assert.Error(t, Options{Stages: []Stage{{Duration: 0, Target: 3}}}.Validate())
	assert.Error(t, Options{Stages: []Stage{{Duration: time.Second, Target: -1}}}.Validate())
}

func TestProfiles(t *testing.T) {
	reader := ReaderProfile()
	assert.Equal(t, 10*time.Minute, reader.Duration())
	assert.Equal(t, 1000, reader.Stages[4].Target)
	assert.Equal(t, 0, reader.Stages[len(reader.Stages)-1].Target)

	contributor := ContributorProfile()
	assert.Equal(t, 10*time.Minute, contributor.Duration())
	assert.Equal(t, "p(95)<20000", contributor.Thresholds[0].Expr)
	assert.Equal(t, 0.05, contributor.Thresholds[1].Target)

	_, err := Profile("admin")
	assert.Error(t, err)
}

func TestRunner_SteppedStages(t *testing.T) {
	f := &fleet{}
	rec := metrics.NewRecorder()
	r := New(Options{
		Name: "steps",
		Stages: []Stage{
			{Duration: time.Minute, Target: 2},
			{Duration: time.Minute, Target: 5},
			{Duration: time.Minute, Target: 1},
			{Duration: time.Minute, Target: 3},
		},
	}, f.factory, rec, nil)
	sizes := poolSizes(r)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 5, 1, 3}, *sizes)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, f.built, "retired VUs are not reused")
	assert.Equal(t, 5, sum.MaxVUs)
	assert.Positive(t, sum.Iterations)
	assert.LessOrEqual(t, sum.Iterations, f.iters.Load())

	st, ok := sum.Metrics[metrics.Iterations]
	require.True(t, ok)
	assert.EqualValues(t, sum.Iterations, st.Sum)
	dur, ok := sum.Metrics[metrics.IterationDuration]
	require.True(t, ok)
	assert.Equal(t, st.Count, dur.Count)
	assert.True(t, sum.Passed())
}

func TestRunner_MaxVUs(t *testing.T) {
	f := &fleet{}
	r := New(Options{
		Stages: []Stage{{Duration: time.Minute, Target: 10}},
		MaxVUs: 3,
	}, f.factory, metrics.NewRecorder(), nil)
	sizes := poolSizes(r)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, *sizes)
	assert.Equal(t, 3, sum.MaxVUs)
}

func TestRunner_Iterations(t *testing.T) {
	f := &fleet{}
	rec := metrics.NewRecorder()
	r := New(Options{VUs: 3, Iterations: 4}, f.factory, rec, nil)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, sum.Iterations)
	assert.Len(t, f.built, 3)

	st, _ := rec.Stats(metrics.IterationDuration)
	assert.EqualValues(t, 12, st.Count)
}

func TestRunner_CancelledRunStillSummarizes(t *testing.T) {
	f := &fleet{}
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Options{Stages: []Stage{{Duration: time.Hour, Target: 2}}}, f.factory, metrics.NewRecorder(), nil)
	r.hold = holdFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	sum, err := r.Run(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, sum.Iterations, f.iters.Load())
	assert.Equal(t, 2, sum.MaxVUs)
}

func TestRunner_NotReusable(t *testing.T) {
	f := &fleet{}
	r := New(Options{VUs: 1, Iterations: 1}, f.factory, metrics.NewRecorder(), nil)
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestRunner_ThresholdFailure(t *testing.T) {
	f := &fleet{}
	rec := metrics.NewRecorder()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		rec.AddRate(ctx, metrics.HTTPReqFailed, i < 2, nil)
	}
	r := New(Options{
		VUs:        1,
		Iterations: 1,
		Thresholds: []Threshold{
			MustThreshold(metrics.HTTPReqFailed, "rate<0.01"),
			MustThreshold(metrics.Iterations, "count>0"),
		},
	}, f.factory, rec, nil)

	sum, err := r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sum.Thresholds, 2)
	assert.False(t, sum.Thresholds[0].Pass)
	assert.InDelta(t, 0.2, sum.Thresholds[0].Actual, 1e-9)
	assert.True(t, sum.Thresholds[1].Pass)
	assert.False(t, sum.Passed())
	assert.ErrorIs(t, sum.Err(), ErrThresholdsFailed)
}

func TestSummary_WriteText(t *testing.T) {
	start := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	sum := &Summary{
		Name:       "reader",
		StartTime:  start,
		EndTime:    start.Add(90 * time.Second),
		Iterations: 12,
		MaxVUs:     3,
		Metrics: map[string]metrics.Stats{
			"http_req_failed":   {Kind: metrics.KindRate, Count: 4, Sum: 1, Rate: 0.25},
			"http_req_duration": {Kind: metrics.KindTrend, Count: 4, Avg: 120, Min: 10, Max: 300, P50: 90, P90: 250, P95: 280},
			"http_reqs":         {Kind: metrics.KindCounter, Count: 4, Sum: 4},
		},
		Thresholds: []ThresholdResult{{Pass: false, Message: "✗ http_req_failed rate<0.01 (actual 0.25)"}},
	}

	var buf bytes.Buffer
	require.NoError(t, sum.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "scenario: reader")
	assert.Contains(t, out, "duration: 1m30s  iterations: 12  peak vus: 3")
	assert.Contains(t, out, "avg=120.00ms")
	assert.Contains(t, out, "25.00%")
	assert.Contains(t, out, "✗ http_req_failed rate<0.01")
	assert.Contains(t, out, "thresholds passed: false")
	assert.Less(t, strings.Index(out, "http_req_duration"), strings.Index(out, "http_reqs"), "sorted by name")
}
