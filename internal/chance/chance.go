// Package chance provides the random primitives the scenarios are built on:
// a uniform source, integer ranges, uniform picks, sampling without
// replacement and discrete probability tables.
package chance

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// Rand wraps a Source with the helpers the scenarios use. A Rand is owned by
// a single virtual user and is not safe for concurrent use unless its Source is.
type Rand struct {
	src Source
}

// New returns a Rand over src. A nil src falls back to a time-seeded PCG.
func New(src Source) *Rand {
	if src == nil {
		src = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &Rand{src: src}
}

// Seeded returns a deterministic Rand, used by tests and reproducible runs.
func Seeded(seed uint64) *Rand {
	return &Rand{src: rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))}
}

// Float64 returns the next uniform draw in [0, 1).
func (r *Rand) Float64() float64 {
	return r.src.Float64()
}

// Chance reports whether a fresh draw falls below p.
func (r *Rand) Chance(p float64) bool {
	return r.src.Float64() < p
}

// IntBetween draws an integer in [ceil(lo), floor(hi)], both ends
// inclusive. Fractional bounds are narrowed first, so IntBetween(0.8, 1.5)
// is always 1. When the narrowed range is empty the result is ceil(lo)
// minus one or less, matching the k6 helper the load profiles were tuned with.
func (r *Rand) IntBetween(lo, hi float64) int {
	min := math.Ceil(lo)
	max := math.Floor(hi)
	return int(math.Floor(r.src.Float64()*(max-min+1) + min))
}

// Index draws a uniform index in [0, n). n must be positive.
func (r *Rand) Index(n int) int {
	return int(math.Floor(r.src.Float64() * float64(n)))
}

// Pick returns a uniformly chosen element of items. items must not be empty.
func Pick[T any](r *Rand, items []T) T {
	return items[r.Index(len(items))]
}

// Sample draws up to k distinct elements of items without replacement. The
// input slice is not modified.
func Sample[T any](r *Rand, items []T, k int) []T {
	pool := append([]T(nil), items...)
	out := make([]T, 0, max(k, 0))
	for i := 0; i < k && len(pool) > 0; i++ {
		j := r.Index(len(pool))
		out = append(out, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return out
}

// LockedSource makes a Source safe for concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	src Source
}

// NewLockedSource wraps src with a mutex.
func NewLockedSource(src Source) *LockedSource {
	return &LockedSource{src: src}
}

// Float64 implements Source.
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}
