// Package scenario scripts the reader and contributor journeys as ordered
// step lists driven by a single loop.
package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/pace"
)

// Step describes one named unit of a journey. S is the iteration state.
type Step[S any] struct {
	Name string
	Run  func(ctx context.Context, s *S) error

	// Pause is the think-time after the step runs. Zero means none.
	Pause pace.Range

	// Skip reports that a data dependency of the step is missing. A skipped
	// step takes no pause.
	Skip func(s *S) bool

	// Critical steps end the iteration when they fail; the remaining steps
	// and their pauses are dropped.
	Critical bool

	// Nested steps run inside the previous step's group.
	Nested bool
}

// Outcome summarizes one iteration.
type Outcome struct {
	Ran     []string
	Skipped []string
	Failed  []string
	Aborted bool
}

// Sequencer runs a step list once per iteration.
type Sequencer[S any] struct {
	Steps []Step[S]

	// Cooldown is the pause after every iteration, aborted or not.
	Cooldown pace.Range

	// Finish runs after the steps and before the cooldown.
	Finish func(ctx context.Context, s *S)

	Pacer  pace.Pacer
	Rand   *chance.Rand
	Logger *zap.Logger
}

// GroupName renders the group title of the step at index i.
func GroupName(i int, name string) string {
	return fmt.Sprintf("Step %d: %s", i+1, name)
}

// Run executes the steps in order. The returned error is non-nil only when
// ctx ended; step failures are reported in the Outcome.
func (q *Sequencer[S]) Run(ctx context.Context, s *S) (Outcome, error) {
	logger := q.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var out Outcome
	parent := ctx

	for i, step := range q.Steps {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if !step.Nested {
			parent = ctx
		}
		stepCtx := metrics.WithGroup(parent, GroupName(i, step.Name))

		if step.Skip != nil && step.Skip(s) {
			out.Skipped = append(out.Skipped, step.Name)
			logger.Debug("step skipped", zap.String("step", step.Name))
			continue
		}

		out.Ran = append(out.Ran, step.Name)
		if err := step.Run(stepCtx, s); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			out.Failed = append(out.Failed, step.Name)
			logger.Warn("step failed", zap.String("step", step.Name), zap.Error(err))
			if step.Critical {
				out.Aborted = true
				break
			}
		}
		parent = stepCtx

		if step.Pause.Zero() {
			continue
		}
		if err := q.Pacer.Pause(ctx, step.Pause.Draw(q.Rand)); err != nil {
			return out, err
		}
	}

	if q.Finish != nil {
		q.Finish(ctx, s)
	}
	if err := q.Pacer.Pause(ctx, q.Cooldown.Draw(q.Rand)); err != nil {
		return out, err
	}
	return out, nil
}
