// Package pace turns think-time ranges into pause directives. A Pacer
// decides what a pause means: a real timer during a run, or a note in a
// log during tests.
package pace

import (
	"context"
	"sync"
	"time"

	"github.com/FairForge/heritageload/internal/chance"
)

// Range is a think-time range in seconds. Draws are whole seconds in
// [ceil(Min), floor(Max)].
type Range struct {
	Min float64
	Max float64
}

// R is shorthand for a Range literal.
func R(min, max float64) Range { return Range{Min: min, Max: max} }

// Zero reports whether the range means no pause at all.
func (r Range) Zero() bool { return r.Min == 0 && r.Max == 0 }

// Draw picks a pause length from r.
func (r Range) Draw(rnd *chance.Rand) time.Duration {
	if r.Zero() {
		return 0
	}
	n := rnd.IntBetween(r.Min, r.Max)
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
}

// Pacer executes pause directives.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// Real sleeps on a timer and returns early when ctx ends.
type Real struct{}

// Pause implements Pacer.
func (Real) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder notes every pause and returns at once.
type Recorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

// Pause implements Pacer.
func (r *Recorder) Pause(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Pauses returns a copy of the recorded pauses.
func (r *Recorder) Pauses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.pauses...)
}

// Total sums every recorded pause.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Pauses() {
		total += d
	}
	return total
}
