// Package report turns a results stream into the per-step performance
// tables used in the test write-up, in Indonesian number format.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/results"
)

// Columns of every table.
var Columns = []string{
	"Label",
	"Rata-rata (ms)",
	"Min (ms)",
	"Max (ms)",
	"Standar Deviasi (ms)",
	"Error (%)",
	"Throughput (/min)",
}

// NA marks a value with no samples.
const NA = "N/A"

// Step maps a table row to the operation metrics it aggregates. Durations
// and failures are pooled over Ops; throughput counts the requests of
// CountOp only.
type Step struct {
	Label   string
	Ops     []string
	CountOp string
}

func step(label string, ops ...string) Step {
	return Step{Label: label, Ops: ops, CountOp: ops[0]}
}

// ReaderSteps are the rows of the reader table.
var ReaderSteps = []Step{
	step("Melihat Kategori", "categories"),
	step("Melihat Unit", "units"),
	step("Mencari Konten", "media_items_search"),
	step("Melihat Detail Konten", "media_item_detail"),
	step("Menambah View Konten", "view_increment"),
}

// ContributorSteps are the rows of the contributor table.
var ContributorSteps = []Step{
	step("SSO Login", "login"),
	step("Small File Upload", "small_file_upload"),
	step("Large File Upload", "large_file_upload_init", "chunk_upload", "complete_upload"),
	step("Media Item Creation", "media_item_create"),
}

// workflowMetric feeds the contributor's closing row.
const workflowMetric = "contributor_workflow_duration"

// Steps returns the rows of a scenario's table.
func Steps(scenario string) ([]Step, error) {
	switch scenario {
	case "reader":
		return ReaderSteps, nil
	case "contributor":
		return ContributorSteps, nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
}

// Row is one computed table row. A nil value has no samples.
type Row struct {
	Label      string
	Avg        *float64
	Min        *float64
	Max        *float64
	StdDev     *float64
	ErrorPct   *float64
	Throughput *float64
}

// Cells renders the row. A missing error rate renders as zero.
func (r Row) Cells() []string {
	errPct := "0,0"
	if r.ErrorPct != nil {
		errPct = FormatID(*r.ErrorPct, 1)
	}
	return []string{
		r.Label,
		formatPtr(r.Avg, 2),
		formatPtr(r.Min, 2),
		formatPtr(r.Max, 2),
		formatPtr(r.StdDev, 2),
		errPct,
		formatPtr(r.Throughput, 1),
	}
}

func formatPtr(v *float64, decimals int) string {
	if v == nil {
		return NA
	}
	return FormatID(*v, decimals)
}

// Table is a scenario's finished report.
type Table struct {
	Scenario string
	Duration time.Duration
	Rows     []Row
}

// Build aggregates s into the table of scenario.
func Build(scenario string, s *results.Stream) (*Table, error) {
	steps, err := Steps(scenario)
	if err != nil {
		return nil, err
	}
	first, last := s.Span()
	t := &Table{Scenario: scenario, Duration: last.Sub(first)}
	minutes := t.Duration.Minutes()

	for _, st := range steps {
		var durations, failures []float64
		for _, op := range st.Ops {
			durations = append(durations, values(s, op+"_duration")...)
			failures = append(failures, values(s, op+"_failed")...)
		}
		row := durationRow(st.Label, durations)
		row.ErrorPct = meanPct(failures)
		row.Throughput = throughput(sum(values(s, st.CountOp+"_requests")), minutes, durations != nil)
		t.Rows = append(t.Rows, row)
	}

	if scenario == "contributor" {
		if wf := values(s, workflowMetric); len(wf) > 0 {
			row := durationRow("Total Workflow", wf)
			row.ErrorPct = meanPct(values(s, metrics.HTTPReqFailed))
			row.Throughput = throughput(sum(values(s, metrics.Iterations)), minutes, true)
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

func values(s *results.Stream, metric string) []float64 {
	var out []float64
	for _, p := range s.Metric(metric) {
		out = append(out, p.Value)
	}
	return out
}

func sum(vs []float64) float64 {
	var total float64
	for _, v := range vs {
		total += v
	}
	return total
}

func durationRow(label string, vs []float64) Row {
	row := Row{Label: label}
	if len(vs) == 0 {
		return row
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	avg := sum(vs) / float64(len(vs))
	var sq float64
	for _, v := range vs {
		sq += (v - avg) * (v - avg)
	}
	sd := math.Sqrt(sq / float64(len(vs)))
	row.Avg, row.Min, row.Max, row.StdDev = &avg, &lo, &hi, &sd
	return row
}

func meanPct(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	pct := sum(vs) / float64(len(vs)) * 100
	return &pct
}

func throughput(count, minutes float64, present bool) *float64 {
	if !present {
		return nil
	}
	perMin := 0.0
	if minutes > 0 {
		perMin = count / minutes
	}
	return &perMin
}

// FormatID formats v with '.' thousands and ',' decimal separators.
func FormatID(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.Cells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes the table as aligned plain text.
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(Columns, "\t")+"\t")
	for _, r := range t.Rows {
		fmt.Fprintln(tw, strings.Join(r.Cells(), "\t")+"\t")
	}
	return tw.Flush()
}

// Files are the paths written by Save.
type Files struct {
	CSV  string
	Text string
}

// FileNames returns the output names for a run finished at ts.
func FileNames(scenario string, ts time.Time) Files {
	stamp := ts.Format("20060102_150405")
	prefix := ""
	if scenario == "contributor" {
		prefix = "contributor_"
	}
	return Files{
		CSV:  prefix + "load_test_results_" + stamp + ".csv",
		Text: prefix + "load_test_results_word_" + stamp + ".txt",
	}
}

// Save writes both renderings into dir.
func (t *Table) Save(dir string, ts time.Time) (Files, error) {
	names := FileNames(t.Scenario, ts)
	out := Files{CSV: filepath.Join(dir, names.CSV), Text: filepath.Join(dir, names.Text)}

	var csvBuf, txtBuf bytes.Buffer
	if err := t.WriteCSV(&csvBuf); err != nil {
		return Files{}, fmt.Errorf("render csv: %w", err)
	}
	if err := t.WriteText(&txtBuf); err != nil {
		return Files{}, fmt.Errorf("render text: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out.CSV, csvBuf.Bytes(), 0o644); err != nil {
		return Files{}, fmt.Errorf("write csv: %w", err)
	}
	if err := os.WriteFile(out.Text, txtBuf.Bytes(), 0o644); err != nil {
		return Files{}, fmt.Errorf("write text: %w", err)
	}
	return out, nil
}
