// Package openapi bridges API documents and OpenAPI: it reads OpenAPI 3 and
// Swagger 2 descriptions from files or URLs, imports them as documents and
// exports documents as OpenAPI 3.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/okapi-tools/okapi/internal/apidoc"
)

// fetchConfig controls how a description and its external refs are read.
type fetchConfig struct {
	timeout       time.Duration
	attempts      int
	backoff       time.Duration
	allowFileRefs bool
	transport     http.RoundTripper
}

var defaultFetch = fetchConfig{
	timeout:  10 * time.Second,
	attempts: 3,
	backoff:  200 * time.Millisecond,
}

// WithAllowFileRefs lets a description fetched from a URL reference local
// files. A local description always may.
func WithAllowFileRefs(allow bool) ImportOption {
	return func(c *importConfig) { c.fetch.allowFileRefs = allow }
}

// WithHTTPTimeout bounds each HTTP request.
func WithHTTPTimeout(d time.Duration) ImportOption {
	return func(c *importConfig) { c.fetch.timeout = d }
}

// WithRetries sets how many times a download is attempted when it fails
// transiently (network error, 429 or 5xx), and the first pause between
// attempts. The pause doubles after each attempt.
func WithRetries(attempts int, backoff time.Duration) ImportOption {
	return func(c *importConfig) { c.fetch.attempts, c.fetch.backoff = attempts, backoff }
}

// WithTransport replaces the HTTP transport used for downloads.
func WithTransport(rt http.RoundTripper) ImportOption {
	return func(c *importConfig) { c.fetch.transport = rt }
}

// ImportFrom reads an OpenAPI 3 or Swagger 2 description from a file path or
// an http(s) URL and imports it as a document. Swagger 2 is converted to
// OpenAPI 3 first. Failures are *Error values naming the stage that failed.
func ImportFrom(ctx context.Context, input string, opts ...ImportOption) (*apidoc.Document, error) {
	cfg := newImportConfig(opts)
	src, err := cfg.read(ctx, input)
	if err != nil {
		return nil, err
	}
	spec, err := cfg.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	d, err := importSpec(spec, cfg)
	if err != nil {
		return nil, stageErr(StageImport, src.location, err)
	}
	cfg.log.Debug("description imported", "location", src.location, "document", d.Name,
		"models", d.Models.Len(), "endpoints", len(d.EndpointRefs()))
	return d, nil
}

// source is a description as read, before parsing.
type source struct {
	location string   // absolute path or URL
	url      *url.URL // nil for local files
	raw      []byte
}

func (c *importConfig) read(ctx context.Context, input string) (*source, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, stageErr(StageInput, "", errors.New("no input given"))
	}
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		switch scheme := strings.ToLower(u.Scheme); {
		case scheme == "file":
			return nil, stageErr(StageInput, input, errors.New("file:// URLs are not accepted, pass the path"))
		case u.Host == "":
			// a bare path, or a drive letter
		case scheme != "http" && scheme != "https":
			return nil, stageErr(StageInput, input, fmt.Errorf("unsupported URL scheme %q (only http and https)", u.Scheme))
		default:
			raw, err := c.fetch.download(ctx, input, c.log)
			if err != nil {
				return nil, stageErr(StageFetch, input, err)
			}
			return &source{location: input, url: u, raw: raw}, nil
		}
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, stageErr(StageInput, input, err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, stageErr(StageInput, abs, err)
	}
	return &source{location: abs, raw: raw}, nil
}

func (c *importConfig) parse(ctx context.Context, src *source) (*openapi3.T, error) {
	major, err := majorVersion(src.raw)
	if err != nil {
		return nil, stageErr(StageParse, src.location, err)
	}
	base := src.url
	if base == nil {
		base = &url.URL{Path: src.location}
	}
	loader := c.fetch.loader(ctx, src.url == nil)

	var spec *openapi3.T
	if major == 3 {
		if spec, err = loader.LoadFromDataWithPath(src.raw, base); err != nil {
			return nil, validationErr(err, src.location)
		}
	} else {
		if spec, err = fromSwagger2(src.raw, c.log); err != nil {
			return nil, stageErr(StageConvert, src.location, err)
		}
		if err := loader.ResolveRefsIn(spec, base); err != nil {
			c.log.Warn("unresolved refs after conversion", "location", src.location, "error", err)
		}
	}

	if err := spec.Validate(ctx); err != nil {
		if !tolerable(err) {
			return nil, validationErr(err, src.location)
		}
		c.log.Warn("importing despite validation errors", "location", src.location, "error", err)
	}
	return spec, nil
}

// majorVersion reads the top-level openapi or swagger field: 3 for
// OpenAPI 3.x, 2 for Swagger 2.0.
func majorVersion(raw []byte) (int, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return 0, err
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return 0, errors.New("description is not a YAML or JSON object")
	}
	top := root.Content[0].Content
	for i := 0; i+1 < len(top); i += 2 {
		v := strings.TrimSpace(top[i+1].Value)
		switch top[i].Value {
		case "openapi":
			if strings.HasPrefix(v, "3.") {
				return 3, nil
			}
		case "swagger":
			if strings.HasPrefix(v, "2.") {
				return 2, nil
			}
		}
	}
	return 0, errors.New("missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func (f fetchConfig) client() *http.Client {
	return &http.Client{Timeout: f.timeout, Transport: f.transport}
}

// loader reads external refs through the same client. File refs are only
// followed from local descriptions unless allowFileRefs is set.
func (f fetchConfig) loader(ctx context.Context, local bool) *openapi3.Loader {
	l := openapi3.NewLoader()
	l.Context = ctx
	l.IsExternalRefsAllowed = true
	client := f.client()
	files := local || f.allowFileRefs
	l.ReadFromURIFunc = func(_ *openapi3.Loader, ref *url.URL) ([]byte, error) {
		switch strings.ToLower(ref.Scheme) {
		case "", "file":
			if !files {
				return nil, fmt.Errorf("file ref %s not allowed from a remote description", ref)
			}
			path := ref.Path
			if path == "" {
				path = ref.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			body, _, err := get(ctx, client, ref.String())
			return body, err
		}
		return nil, fmt.Errorf("unsupported ref scheme %q", ref.Scheme)
	}
	return l
}

// download fetches rawURL, retrying transient failures.
func (f fetchConfig) download(ctx context.Context, rawURL string, log *slog.Logger) ([]byte, error) {
	client := f.client()
	pause := f.backoff
	if pause <= 0 {
		pause = defaultFetch.backoff
	}
	for attempt := 1; ; attempt++ {
		body, transient, err := get(ctx, client, rawURL)
		if err == nil || !transient || attempt >= f.attempts {
			return body, err
		}
		log.Debug("download failed, retrying", "url", rawURL, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pause):
		}
		pause *= 2
	}
}

// get performs one GET. transient reports whether trying again may help.
func get(ctx context.Context, client *http.Client, rawURL string) (body []byte, transient bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode < 300:
		body, err = io.ReadAll(resp.Body)
		return body, false, err
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("http %d", resp.StatusCode)
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}
