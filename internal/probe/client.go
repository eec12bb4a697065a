package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Ceiling bounds every request, including reading the body.
const Ceiling = 5 * time.Second

// Response is what came back for a request.
type Response struct {
	Status      int
	Reason      string
	ContentType string
	Header      http.Header
	Body        []byte
	Elapsed     time.Duration
}

// Result is handed to the Send callback.
type Result struct {
	ID       string
	Request  *Request
	Response *Response
	Err      error
}

// Client sends probe requests. Send may be called while an earlier request
// is still running; the earlier result is then dropped.
type Client struct {
	http    *http.Client
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	latest string
	wg     sync.WaitGroup
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	transport  http.RoundTripper
	registerer prometheus.Registerer
	logger     *slog.Logger
	timeout    time.Duration
}

// WithTransport replaces http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.transport = rt }
}

// WithRegisterer registers the latency histogram with reg. Without it the
// histogram lives in a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *clientConfig) { c.registerer = reg }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithTimeout lowers the per request ceiling. Values above Ceiling are
// clamped.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// NewClient returns a probe client.
func NewClient(opts ...Option) *Client {
	cfg := clientConfig{transport: http.DefaultTransport, timeout: Ceiling}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.registerer == nil {
		cfg.registerer = prometheus.NewRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.timeout <= 0 || cfg.timeout > Ceiling {
		cfg.timeout = Ceiling
	}
	return &Client{
		http:    &http.Client{Transport: newTransport(cfg.transport, cfg.registerer)},
		logger:  cfg.logger,
		timeout: cfg.timeout,
	}
}

// Send dispatches req in the background and returns its id. cb runs on the
// request goroutine, and only if no later Send happened in the meantime.
func (c *Client) Send(ctx context.Context, req *Request, cb func(Result)) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.latest = id
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.roundTrip(ctx, req)
		c.mu.Lock()
		current := c.latest == id
		c.mu.Unlock()
		if !current {
			c.logger.Debug("dropping superseded probe result", "id", id, "request", req.String())
			return
		}
		cb(Result{ID: id, Request: req, Response: resp, Err: err})
	}()
	return id
}

// Wait blocks until every request started by Send has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Do sends req and waits for the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.roundTrip(ctx, req)
}

func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for _, h := range req.Header {
		hr.Header.Set(h.Key, h.Value)
	}

	start := time.Now()
	c.logger.Debug("sending probe", "method", req.Method, "url", req.URL)
	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.String(), err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", req.String(), err)
	}
	out := &Response{
		Status:      resp.StatusCode,
		Reason:      http.StatusText(resp.StatusCode),
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        raw,
		Elapsed:     time.Since(start),
	}
	c.logger.Debug("probe answered", "status", out.Status, "elapsed", out.Elapsed)
	return out, nil
}
