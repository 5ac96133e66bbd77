// internal/chance/table.go
package chance

import (
	"errors"
	"fmt"
)

// Outcome pairs a value with its probability mass.
type Outcome[T any] struct {
	Value  T
	Weight float64
}

// Table is a discrete probability table resolved with a single uniform draw
// against cumulative bounds.
type Table[T any] struct {
	values    []T
	bounds    []float64
	inclusive bool
	fallback  T
}

// Weighted builds a table whose bounds are the running sum of the weights,
// in the order given. A draw selects the first outcome whose bound exceeds
// it. Draws past the last bound return the last value.
func Weighted[T any](outcomes ...Outcome[T]) (*Table[T], error) {
	if len(outcomes) == 0 {
		return nil, errors.New("chance: table needs at least one outcome")
	}
	t := &Table[T]{fallback: outcomes[len(outcomes)-1].Value}
	var cumulative float64
	for _, o := range outcomes {
		if o.Weight < 0 {
			return nil, fmt.Errorf("chance: negative weight %v", o.Weight)
		}
		cumulative += o.Weight
		t.values = append(t.values, o.Value)
		t.bounds = append(t.bounds, cumulative)
	}
	return t, nil
}

// Thresholds builds a table from explicit cumulative bounds. bounds has one
// entry fewer than values: the last value takes every draw at or past the
// final bound. Use this form when bounds come from a tuned profile and must
// not be recomputed from weights.
func Thresholds[T any](values []T, bounds []float64) (*Table[T], error) {
	if len(values) == 0 || len(bounds) != len(values)-1 {
		return nil, fmt.Errorf("chance: %d values need %d bounds, got %d", len(values), len(values)-1, len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] < bounds[i-1] {
			return nil, fmt.Errorf("chance: bounds must not decrease (%v after %v)", bounds[i], bounds[i-1])
		}
	}
	t := &Table[T]{fallback: values[len(values)-1]}
	t.values = append(t.values, values[:len(values)-1]...)
	t.bounds = append(t.bounds, bounds...)
	return t, nil
}

// MustWeighted is Weighted for package-level tables.
func MustWeighted[T any](outcomes ...Outcome[T]) *Table[T] {
	t, err := Weighted(outcomes...)
	if err != nil {
		panic(err)
	}
	return t
}

// MustThresholds is Thresholds for package-level tables.
func MustThresholds[T any](values []T, bounds []float64) *Table[T] {
	t, err := Thresholds(values, bounds)
	if err != nil {
		panic(err)
	}
	return t
}

// Inclusive returns a copy of the table that compares draws with <= instead
// of <, and falls back to the given value when no bound matches.
func (t *Table[T]) Inclusive(fallback T) *Table[T] {
	c := *t
	c.inclusive = true
	c.fallback = fallback
	return &c
}

// Resolve maps a draw in [0, 1) to its outcome.
func (t *Table[T]) Resolve(d float64) T {
	for i, b := range t.bounds {
		if d < b || (t.inclusive && d == b) {
			return t.values[i]
		}
	}
	return t.fallback
}

// Choose takes one draw from r and resolves it.
func (t *Table[T]) Choose(r *Rand) T {
	return t.Resolve(r.Float64())
}
