package loadtest

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/FairForge/heritageload/internal/metrics"
)

// WriteText prints the end-of-run summary: one line per metric, then the
// threshold checks.
func (s *Summary) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "scenario: %s\n", s.Name)
	fmt.Fprintf(w, "duration: %s  iterations: %d  peak vus: %d\n\n",
		s.EndTime.Sub(s.StartTime).Round(time.Millisecond), s.Iterations, s.MaxVUs)

	names := make([]string, 0, len(s.Metrics))
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, statLine(s.Metrics[name]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Thresholds) > 0 {
		fmt.Fprintln(w)
		for _, r := range s.Thresholds {
			fmt.Fprintln(w, r.Message)
		}
	}
	_, err := fmt.Fprintf(w, "\nthresholds passed: %t\n", s.Passed())
	return err
}

func statLine(st metrics.Stats) string {
	switch st.Kind {
	case metrics.KindTrend:
		return fmt.Sprintf("avg=%.2fms\tmin=%.2fms\tmed=%.2fms\tmax=%.2fms\tp(90)=%.2fms\tp(95)=%.2fms\tcount=%d",
			st.Avg, st.Min, st.P50, st.Max, st.P90, st.P95, st.Count)
	case metrics.KindRate:
		return fmt.Sprintf("%.2f%%\t%d of %d", st.Rate*100, int64(st.Sum), st.Count)
	default:
		return fmt.Sprintf("%g", st.Sum)
	}
}
