package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/results"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type builder struct {
	s results.Stream
}

func (b *builder) add(at time.Duration, metric string, vs ...float64) *builder {
	for _, v := range vs {
		b.s.Points = append(b.s.Points, results.Point{Metric: metric, Time: t0.Add(at), Value: v})
	}
	return b
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		v    float64
		dec  int
		want string
	}{
		{0, 2, "0,00"},
		{12.345, 2, "12,35"},
		{1234.5, 2, "1.234,50"},
		{1234567.891, 2, "1.234.567,89"},
		{999.96, 1, "1.000,0"},
		{-1234.5, 1, "-1.234,5"},
		{100, 0, "100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatID(tt.v, tt.dec))
	}
}

func TestBuild_Reader(t *testing.T) {
	b := &builder{}
	b.add(0, "categories_duration", 100, 200, 300).
		add(0, "categories_failed", 0, 0, 1, 0).
		add(0, "categories_requests", 1, 1, 1, 1).
		add(2*time.Minute, "units_duration", 50)

	tbl, err := Build("reader", &b.s)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, tbl.Duration)
	require.Len(t, tbl.Rows, 5)

	cats := tbl.Rows[0].Cells()
	assert.Equal(t, []string{"Melihat Kategori", "200,00", "100,00", "300,00", "81,65", "25,0", "2,0"}, cats)

	units := tbl.Rows[1].Cells()
	assert.Equal(t, "50,00", units[1])
	assert.Equal(t, "0,00", units[4])
	assert.Equal(t, "0,0", units[5], "no failure samples read as zero")
	assert.Equal(t, "0,0", units[6])

	detail := tbl.Rows[3].Cells()
	assert.Equal(t, []string{"Melihat Detail Konten", NA, NA, NA, NA, "0,0", NA}, detail)
}

func TestBuild_ContributorPoolsLargeUpload(t *testing.T) {
	b := &builder{}
	b.add(0, "large_file_upload_init_duration", 100).
		add(0, "large_file_upload_init_requests", 1).
		add(0, "large_file_upload_init_failed", 0).
		add(0, "chunk_upload_duration", 10, 20, 30, 40).
		add(0, "chunk_upload_requests", 1, 1, 1, 1).
		add(0, "chunk_upload_failed", 0, 0, 0, 1).
		add(0, "complete_upload_duration", 300).
		add(0, "complete_upload_failed", 0).
		add(0, "contributor_workflow_duration", 9000, 11000).
		add(0, "http_req_failed", 0, 1).
		add(time.Minute, "iterations", 1, 1)

	tbl, err := Build("contributor", &b.s)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 5)

	large := tbl.Rows[2].Cells()
	assert.Equal(t, "Large File Upload", large[0])
	assert.Equal(t, "83,33", large[1], "six pooled samples")
	assert.Equal(t, "10,00", large[2])
	assert.Equal(t, "300,00", large[3])
	assert.Equal(t, "16,7", large[5], "one failure in six samples")
	assert.Equal(t, "1,0", large[6], "throughput counts initiations only")

	assert.Equal(t, NA, tbl.Rows[0].Cells()[1])

	total := tbl.Rows[4].Cells()
	assert.Equal(t, []string{"Total Workflow", "10.000,00", "9.000,00", "11.000,00", "1.000,00", "50,0", "2,0"}, total)
}

func TestBuild_UnknownScenario(t *testing.T) {
	_, err := Build("admin", &results.Stream{})
	assert.Error(t, err)
}

func TestTable_Render(t *testing.T) {
	b := &builder{}
	b.add(0, "login_duration", 1500).add(time.Minute, "login_requests", 1)
	tbl, err := Build("contributor", &b.s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "1.500,00", rows[1][1])

	buf.Reset()
	require.NoError(t, tbl.WriteText(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Standar Deviasi (ms)")
	assert.Contains(t, lines[1], "SSO Login")
	assert.Equal(t, len(lines[0]), len(lines[1]), "columns are aligned")
}

func TestSave(t *testing.T) {
	ts := time.Date(2026, 10, 14, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, Files{
		CSV:  "load_test_results_20261014_130405.csv",
		Text: "load_test_results_word_20261014_130405.txt",
	}, FileNames("reader", ts))
	assert.Equal(t, "contributor_load_test_results_20261014_130405.csv", FileNames("contributor", ts).CSV)

	dir := filepath.Join(t.TempDir(), "out")
	tbl := &Table{Scenario: "reader", Rows: []Row{{Label: "Melihat Unit"}}}
	files, err := tbl.Save(dir, ts)
	require.NoError(t, err)
	data, err := os.ReadFile(files.CSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Melihat Unit,N/A,N/A,N/A,N/A,\"0,0\",N/A")
	_, err = os.Stat(files.Text)
	assert.NoError(t, err)
}

type fakePutter struct {
	mu   sync.Mutex
	objs map[string][]byte
	cts  map[string]string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objs[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.cts[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestPublisher(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "load_test_results_x.csv")
	txtPath := filepath.Join(dir, "load_test_results_word_x.txt")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(txtPath, []byte("a b\n"), 0o644))

	fake := &fakePutter{objs: map[string][]byte{}, cts: map[string]string{}}
	p := &Publisher{client: fake, bucket: "reports", prefix: "/runs/2026-10-14/", logger: zap.NewNop()}

	keys, err := p.Publish(context.Background(), csvPath, txtPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/2026-10-14/load_test_results_x.csv", "runs/2026-10-14/load_test_results_word_x.txt"}, keys)
	assert.Equal(t, []byte("a,b\n"), fake.objs["reports/runs/2026-10-14/load_test_results_x.csv"])
	assert.Equal(t, "text/csv", fake.cts[keys[0]])

	_, err = p.Publish(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestNewPublisher_RequiresBucket(t *testing.T) {
	_, err := NewPublisher(context.Background(), S3Config{}, nil)
	assert.Error(t, err)

	p, err := NewPublisher(context.Background(), S3Config{Bucket: "b", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", p.bucket)
}
