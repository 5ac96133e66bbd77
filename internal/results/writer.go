// Package results writes and reads the NDJSON sample stream of a run, in
// the line format k6 uses for its JSON output.
package results

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/FairForge/heritageload/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Line types.
const (
	TypeMetric = "Metric"
	TypePoint  = "Point"
)

type line struct {
	Type   string              `json:"type"`
	Metric string              `json:"metric"`
	Data   jsoniter.RawMessage `json:"data"`
}

type metricData struct {
	Type     metrics.Kind `json:"type"`
	Contains string       `json:"contains"`
}

type pointData struct {
	Time  time.Time         `json:"time"`
	Value float64           `json:"value"`
	Tags  map[string]string `json:"tags"`
}

// Compressed reports whether path selects zstd compression.
func Compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// Writer is a metrics.Sink. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *zstd.Encoder
	closer io.Closer
	seen   map[string]bool
}

// Create opens path for writing, compressing when it ends in .zst.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}
	w, err := newWriter(f, Compressed(path))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes plain NDJSON to w.
func NewWriter(w io.Writer) *Writer {
	out, _ := newWriter(w, false)
	return out
}

func newWriter(w io.Writer, compress bool) (*Writer, error) {
	out := &Writer{seen: make(map[string]bool)}
	if compress {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		out.enc = enc
		w = enc
	}
	out.buf = bufio.NewWriterSize(w, 64<<10)
	return out, nil
}

// Write implements metrics.Sink.
func (w *Writer) Write(s metrics.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.seen[s.Metric] {
		contains := "default"
		if s.Kind == metrics.KindTrend {
			contains = "time"
		}
		if err := w.emit(TypeMetric, s.Metric, metricData{Type: s.Kind, Contains: contains}); err != nil {
			return err
		}
		w.seen[s.Metric] = true
	}
	tags := map[string]string(s.Tags)
	if tags == nil {
		tags = map[string]string{}
	}
	return w.emit(TypePoint, s.Metric, pointData{Time: s.Time, Value: s.Value, Tags: tags})
}

func (w *Writer) emit(typ, metric string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", typ, metric, err)
	}
	b, err := json.Marshal(line{Type: typ, Metric: metric, Data: raw})
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", typ, metric, err)
	}
	if _, err := w.buf.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write %s %s: %w", typ, metric, err)
	}
	return nil
}

// Close flushes buffered lines and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return fmt.Errorf("close zstd encoder: %w", err)
		}
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
