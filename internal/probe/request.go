// Package probe sends test requests to a documented API. A request is built
// from an endpoint and user supplied values, then dispatched in the
// background; only the newest request reports back.
package probe

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/synth"
)

var (
	// ErrMissingValue is returned when a required parameter has no value.
	ErrMissingValue = errors.New("missing required value")
	// ErrInvalidValue is returned when a value does not fit its parameter.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownParameter is returned for values the endpoint does not take.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrNoAddress is returned when the document has no base address.
	ErrNoAddress = errors.New("document has no address")
)

const formURLEncoded = "application/x-www-form-urlencoded"

// ParamError names the parameter a value was rejected for.
type ParamError struct {
	Key    string
	Source string
	Err    error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s parameter %q: %v", e.Source, e.Key, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// Request is a ready to send HTTP request.
type Request struct {
	Method apidoc.Method
	URL    string
	Header []pathutil.Header
	Body   string
}

func (r *Request) String() string {
	return string(r.Method) + " " + r.URL
}

// Parameters are visited in this order when a request is built.
var sourceOrder = []string{
	apidoc.SourcePath,
	apidoc.SourceQuery,
	apidoc.SourceBody,
	apidoc.SourceFormData,
	apidoc.SourceHeader,
}

// Build assembles the request for the endpoint (method, uri) of d. Values
// are keyed by parameter name; empty values count as absent. Document
// headers come first and header parameters override them.
func Build(d *apidoc.Document, method apidoc.Method, uri string, values map[string]string) (*Request, error) {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return nil, fmt.Errorf("endpoint %s %s: %w", method, uri, apidoc.ErrNotFound)
	}
	if strings.TrimSpace(d.Address) == "" {
		return nil, ErrNoAddress
	}
	for key := range values {
		if !ep.Params.Has(key) {
			return nil, &ParamError{Key: key, Source: "request", Err: ErrUnknownParameter}
		}
	}

	req := &Request{Method: method}
	for k, v := range d.Headers.All() {
		req.setHeader(k, v)
	}
	path := uri
	var query, form []string

	for _, source := range sourceOrder {
		for _, el := range ep.ParamsBySource(source) {
			key, p := el.Key, el.Value
			val := values[key]
			if val == "" {
				if p.Required {
					return nil, &ParamError{Key: key, Source: source, Err: ErrMissingValue}
				}
				continue
			}
			if err := checkValue(d, p, val); err != nil {
				return nil, &ParamError{Key: key, Source: source, Err: err}
			}
			switch source {
			case apidoc.SourcePath:
				path = pathutil.SubstitutePathItem(path, key, url.PathEscape(val))
			case apidoc.SourceQuery:
				query = append(query, url.QueryEscape(key)+"="+url.QueryEscape(val))
			case apidoc.SourceBody:
				req.Body = val
				if p.ContentType != "" {
					req.setHeader("Content-Type", p.ContentType)
				}
			case apidoc.SourceFormData:
				form = append(form, url.QueryEscape(key)+"="+url.QueryEscape(val))
			case apidoc.SourceHeader:
				req.setHeader(key, val)
			}
		}
	}
	if len(form) > 0 {
		req.Body = strings.Join(form, "&")
		req.setHeader("Content-Type", formURLEncoded)
	}

	req.URL = pathutil.NormalizeAddress(d.Address) + path
	if len(query) > 0 {
		req.URL += "?" + strings.Join(query, "&")
	}
	return req, nil
}

// setHeader replaces an existing header regardless of case, keeping its
// position.
func (r *Request) setHeader(key, val string) {
	for i := range r.Header {
		if strings.EqualFold(r.Header[i].Key, key) {
			r.Header[i].Value = val
			return
		}
	}
	r.Header = append(r.Header, pathutil.Header{Key: key, Value: val})
}

// HeaderValue returns the value of the named header, matched without case.
func (r *Request) HeaderValue(key string) (string, bool) {
	for _, h := range r.Header {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// checkValue accepts any string for string parameters. Models, objects and
// arrays take JSON text; the other primitives must parse as their type.
func checkValue(d *apidoc.Document, p *apidoc.Parameter, val string) error {
	if len(p.Values) > 0 && !slices.Contains(p.Values, val) {
		return fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, val, strings.Join(p.Values, ", "))
	}
	base, isArray := apidoc.ParseType(p.Type)
	isArray = isArray || p.IsArray
	switch {
	case isArray || d.Models.Has(base) || p.ContentType == "application/json":
		if !jsoniter.Valid([]byte(val)) {
			return fmt.Errorf("%w: expected JSON text", ErrInvalidValue)
		}
	case apidoc.IsPrimitive(base):
		if _, err := synth.Coerce(base, val); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	return nil
}
