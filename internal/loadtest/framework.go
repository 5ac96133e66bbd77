// Package loadtest is the host runner: it grows and shrinks a pool of
// virtual users through fixed stages, records iteration metrics and checks
// k6-style thresholds at the end of a run.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/pace"
)

// ErrThresholdsFailed is returned by Summary.Err when a threshold failed.
var ErrThresholdsFailed = errors.New("thresholds failed")

// ExitThresholdsFailed is the process exit code for failed thresholds.
const ExitThresholdsFailed = 99

// Stage holds Target virtual users for Duration.
type Stage struct {
	Duration time.Duration
	Target   int
}

// VU is one virtual user. Iterate runs a single journey and returns an
// error only when ctx ended.
type VU interface {
	Iterate(ctx context.Context) error
}

// Factory builds the virtual user with the given 1-based id. Each VU is
// built once and lives until it is retired.
type Factory func(id int) VU

// Options describe one run. Either Stages, or VUs with Iterations, is set.
type Options struct {
	Name       string
	Stages     []Stage
	Thresholds []Threshold

	// MaxVUs caps every stage target. Zero means uncapped.
	MaxVUs int

	// VUs and Iterations select the fixed-iterations mode.
	VUs        int
	Iterations int
}

// Validate checks the options before a run.
func (o Options) Validate() error {
	if o.Iterations > 0 {
		if o.VUs <= 0 {
			return fmt.Errorf("loadtest %s: iterations mode needs at least one VU", o.Name)
		}
		return nil
	}
	if len(o.Stages) == 0 {
		return fmt.Errorf("loadtest %s: no stages", o.Name)
	}
	for i, s := range o.Stages {
		if s.Duration <= 0 || s.Target < 0 {
			return fmt.Errorf("loadtest %s: stage %d: bad duration %v or target %d", o.Name, i, s.Duration, s.Target)
		}
	}
	if o.MaxVUs < 0 {
		return fmt.Errorf("loadtest %s: negative max VUs", o.Name)
	}
	return nil
}

// Duration is the total planned time of the stages.
func (o Options) Duration() time.Duration {
	var d time.Duration
	for _, s := range o.Stages {
		d += s.Duration
	}
	return d
}

func (o Options) target(s Stage) int {
	if o.MaxVUs > 0 && s.Target > o.MaxVUs {
		return o.MaxVUs
	}
	return s.Target
}

// Summary aggregates a finished run.
type Summary struct {
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Iterations int64
	MaxVUs     int
	Metrics    map[string]metrics.Stats
	Thresholds []ThresholdResult
}

// Passed reports whether every threshold passed.
func (s *Summary) Passed() bool {
	for _, r := range s.Thresholds {
		if !r.Pass {
			return false
		}
	}
	return true
}

// Err returns ErrThresholdsFailed when a threshold failed.
func (s *Summary) Err() error {
	if s.Passed() {
		return nil
	}
	return ErrThresholdsFailed
}

type slot struct {
	cancel context.CancelFunc
}

// Runner executes one run. It is not reusable.
type Runner struct {
	opts    Options
	factory Factory
	rec     *metrics.Recorder
	logger  *zap.Logger

	// hold waits out a stage; tests replace it.
	hold pace.Pacer
	now  func() time.Time

	running    atomic.Bool
	iterations atomic.Int64
	nextID     int
	pool       []slot
	peak       int
	group      errgroup.Group
	mu         sync.Mutex
}

// New creates a runner. rec receives the iteration metrics and is read for
// the summary.
func New(opts Options, factory Factory, rec *metrics.Recorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		opts:    opts,
		factory: factory,
		rec:     rec,
		logger:  logger.Named("runner"),
		hold:    pace.Real{},
		now:     time.Now,
	}
}

// Run executes the run and returns its summary. The error is non-nil when
// the options are invalid or the runner is already running; a cancelled
// ctx ends the run early and still yields a summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.opts.Validate(); err != nil {
		return nil, err
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("loadtest %s: already running", r.opts.Name)
	}

	start := r.now()
	if r.opts.Iterations > 0 {
		r.runIterations(ctx)
	} else {
		r.runStages(ctx)
	}
	end := r.now()

	snap := r.rec.Snapshot()
	sum := &Summary{
		Name:       r.opts.Name,
		StartTime:  start,
		EndTime:    end,
		Iterations: r.iterations.Load(),
		MaxVUs:     r.peak,
		Metrics:    snap,
		Thresholds: EvaluateAll(r.opts.Thresholds, snap, r.rec),
	}
	r.logger.Info("run finished",
		zap.String("name", sum.Name),
		zap.Duration("duration", end.Sub(start)),
		zap.Int64("iterations", sum.Iterations),
		zap.Bool("thresholds_passed", sum.Passed()))
	return sum, nil
}

func (r *Runner) runStages(ctx context.Context) {
	for i, stage := range r.opts.Stages {
		target := r.opts.target(stage)
		r.resize(ctx, target)
		r.logger.Info("stage started",
			zap.Int("stage", i+1),
			zap.Int("vus", target),
			zap.Duration("duration", stage.Duration))
		if err := r.hold.Pause(ctx, stage.Duration); err != nil {
			break
		}
	}
	r.resize(ctx, 0)
	_ = r.group.Wait()
}

// resize grows the pool with fresh VUs or retires the newest ones.
func (r *Runner) resize(ctx context.Context, target int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.pool) > target {
		last := len(r.pool) - 1
		r.pool[last].cancel()
		r.pool = r.pool[:last]
	}
	for len(r.pool) < target && ctx.Err() == nil {
		r.nextID++
		vu := r.factory(r.nextID)
		vuCtx, cancel := context.WithCancel(ctx)
		r.pool = append(r.pool, slot{cancel: cancel})
		r.group.Go(func() error {
			defer cancel()
			r.loop(vuCtx, vu, 0)
			return nil
		})
	}
	if len(r.pool) > r.peak {
		r.peak = len(r.pool)
	}
}

func (r *Runner) runIterations(ctx context.Context) {
	r.peak = r.opts.VUs
	var g errgroup.Group
	for id := 1; id <= r.opts.VUs; id++ {
		vu := r.factory(id)
		g.Go(func() error {
			r.loop(ctx, vu, r.opts.Iterations)
			return nil
		})
	}
	_ = g.Wait()
}

// loop iterates vu until ctx ends, or n times when n > 0. An iteration cut
// short by ctx is not counted.
func (r *Runner) loop(ctx context.Context, vu VU, n int) {
	for i := 0; n == 0 || i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		start := r.now()
		err := vu.Iterate(ctx)
		if err != nil || ctx.Err() != nil {
			return
		}
		r.iterations.Add(1)
		r.rec.AddCount(ctx, metrics.Iterations, 1, nil)
		r.rec.AddTrend(ctx, metrics.IterationDuration, r.now().Sub(start), nil)
	}
}
