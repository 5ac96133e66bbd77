// internal/results/reader.go
package results

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/metrics"
)

// maxLine bounds a single NDJSON line.
const maxLine = 1 << 20

// Point is one decoded sample.
type Point struct {
	Metric string
	Time   time.Time
	Value  float64
	Tags   map[string]string
}

// Stream is a decoded results file.
type Stream struct {
	Points  []Point
	Kinds   map[string]metrics.Kind
	Skipped int
}

// Metric returns the points of one metric in file order.
func (s *Stream) Metric(name string) []Point {
	var out []Point
	for _, p := range s.Points {
		if p.Metric == name {
			out = append(out, p)
		}
	}
	return out
}

// Span returns the first and last point times.
func (s *Stream) Span() (first, last time.Time) {
	for i, p := range s.Points {
		if i == 0 || p.Time.Before(first) {
			first = p.Time
		}
		if i == 0 || p.Time.After(last) {
			last = p.Time
		}
	}
	return first, last
}

// Load reads a results file, decompressing it when it ends in .zst.
func Load(path string, logger *zap.Logger) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if Compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return Decode(r, logger)
}

// Decode reads NDJSON lines from r. Malformed lines are logged and skipped.
func Decode(r io.Reader, logger *zap.Logger) (*Stream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stream{Kinds: make(map[string]metrics.Kind)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLine)

	n := 0
	for sc.Scan() {
		n++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := s.decodeLine(raw); err != nil {
			s.Skipped++
			logger.Warn("skipping malformed results line", zap.Int("line", n), zap.Error(err))
		}
	}
	if err := sc.Err(); err != nil {
		return s, fmt.Errorf("read results: %w", err)
	}
	return s, nil
}

func (s *Stream) decodeLine(raw []byte) error {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return err
	}
	if l.Metric == "" {
		return errors.New("missing metric")
	}
	switch l.Type {
	case TypeMetric:
		var md metricData
		if err := json.Unmarshal(l.Data, &md); err != nil {
			return err
		}
		s.Kinds[l.Metric] = md.Type
	case TypePoint:
		var pd pointData
		if err := json.Unmarshal(l.Data, &pd); err != nil {
			return err
		}
		s.Points = append(s.Points, Point{Metric: l.Metric, Time: pd.Time, Value: pd.Value, Tags: pd.Tags})
	default:
		return fmt.Errorf("unknown line type %q", l.Type)
	}
	return nil
}
