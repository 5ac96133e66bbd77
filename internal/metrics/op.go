// internal/metrics/op.go
package metrics

import (
	"context"
	"strings"
)

type groupKey struct{}

// WithGroup nests a named group under the one already in ctx. Group names
// are joined the way k6 renders them, e.g. "::Step 1: SSO Login::Step 2: Upload Files".
func WithGroup(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, groupKey{}, Group(ctx)+"::"+name)
}

// Group returns the group path stored in ctx, or "".
func Group(ctx context.Context) string {
	g, _ := ctx.Value(groupKey{}).(string)
	return g
}

// Op records the three metrics every scripted operation produces:
// <name>_requests, <name>_duration and <name>_failed.
type Op struct {
	rec  *Recorder
	name string
}

// Op returns the recorder for a named operation.
func (r *Recorder) Op(name string) Op {
	return Op{rec: r, name: name}
}

// Name returns the operation name.
func (o Op) Name() string { return o.name }

// Start counts one request and returns a function that records the
// duration and outcome when called with the operation's error.
func (o Op) Start(ctx context.Context) func(err error) {
	o.rec.AddCount(ctx, o.name+"_requests", 1, nil)
	start := o.rec.now()
	return func(err error) {
		o.rec.AddTrend(ctx, o.name+"_duration", o.rec.now().Sub(start), nil)
		o.rec.AddRate(ctx, o.name+"_failed", err != nil, nil)
	}
}

// Track runs fn as one operation.
func (o Op) Track(ctx context.Context, fn func(ctx context.Context) error) error {
	done := o.Start(ctx)
	err := fn(ctx)
	done(err)
	return err
}

// OpName strips the metric suffix from an operation metric name.
func OpName(metric string) (string, bool) {
	for _, suffix := range []string{"_duration", "_failed", "_requests"} {
		if strings.HasSuffix(metric, suffix) {
			return strings.TrimSuffix(metric, suffix), true
		}
	}
	return "", false
}
