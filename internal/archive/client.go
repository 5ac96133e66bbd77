// Package archive is the HTTP client for the UI Heritage content-archive API.
// Every call returns a typed *FetchError on failure. The caller decides what
// a failure means for the journey it is scripting.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultBaseURL is the production API base path.
const DefaultBaseURL = "https://backend.ui-heritage.me/api/v1"

// Per-call timeouts used by the upload paths.
const (
	SmallUploadTimeout = 120 * time.Second
	InitiateTimeout    = 60 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout applies to calls that do not carry their own.
	Timeout time.Duration

	// MaxRPS caps the client's request rate. Zero means uncapped.
	MaxRPS float64

	// MaxIdleConns sizes the shared transport pool.
	MaxIdleConns int

	// Transport replaces the default tuned transport, mainly for tests.
	Transport http.RoundTripper

	Observer Observer
	Logger   *zap.Logger
}

// RequestInfo describes one finished HTTP exchange.
type RequestInfo struct {
	Method   string
	Name     string
	Status   int
	Duration time.Duration
	Err      error
}

// Failed reports whether the exchange counts as a failed request: a
// transport error or a status of 400 and above.
func (r RequestInfo) Failed() bool {
	return r.Err != nil || r.Status >= 400
}

// Observer is notified after every HTTP exchange.
type Observer interface {
	ObserveRequest(ctx context.Context, info RequestInfo)
}

// Client is safe for concurrent use by every virtual user of a run.
type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger
}

// New creates a client. It never fails; a bad base URL surfaces as a
// transport error on the first call.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConns,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		http:     &http.Client{Transport: transport},
		observer: cfg.Observer,
		logger:   cfg.Logger.Named("archive"),
	}
	if cfg.MaxRPS > 0 {
		burst := int(cfg.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}
	return c
}

// BaseURL returns the normalized base path.
func (c *Client) BaseURL() string { return c.baseURL }

type call struct {
	op          string
	name        string
	method      string
	path        string
	token       string
	apiKey      bool
	body        []byte
	contentType string
	timeout     time.Duration
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, cl call) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Op: cl.op, Kind: KindTransport, Err: err}
		}
	}

	timeout := cl.timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, &FetchError{Op: cl.op, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if cl.apiKey {
		req.Header.Set("X-DEV-API-KEY", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	var raw []byte
	if err == nil {
		raw, err = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}
	info := RequestInfo{Method: cl.method, Name: cl.name, Duration: time.Since(start), Err: err}
	if resp != nil {
		info.Status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveRequest(ctx, info)
	}

	if err != nil {
		c.logger.Debug("request failed",
			zap.String("op", cl.op),
			zap.String("path", cl.path),
			zap.Error(err))
		return nil, &FetchError{Op: cl.op, Kind: KindTransport, Err: err}
	}
	return &response{status: resp.StatusCode, body: raw}, nil
}

// expect returns a status error unless the response carries one of ok.
func (r *response) expect(op string, ok ...int) error {
	for _, s := range ok {
		if r.status == s {
			return nil
		}
	}
	return &FetchError{Op: op, Kind: KindStatus, Status: r.status, Err: errors.New(snippet(r.body))}
}

// envelope decodes the {"data": ...} wrapper into v. A missing or null data
// member is a missing-field error.
func (r *response) envelope(op string, v interface{}) error {
	var env struct {
		Data jsoniter.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.body, &env); err != nil {
		return &FetchError{Op: op, Kind: KindDecode, Status: r.status, Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &FetchError{Op: op, Kind: KindMissingField, Status: r.status, Field: "data"}
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &FetchError{Op: op, Kind: KindDecode, Status: r.status, Err: err}
	}
	return nil
}

func missing(op string, status int, field string) error {
	return &FetchError{Op: op, Kind: KindMissingField, Status: status, Field: field}
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func jsonBody(op string, v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}
	return b, nil
}
