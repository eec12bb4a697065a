// Package apidoc is the in-memory API document: metadata, models and
// endpoints keyed by method then URI. Every collection keeps insertion
// order, which is what makes generated output reproducible.
package apidoc

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Method is an upper-case HTTP method.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists the supported methods.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions}

// ParseMethod normalizes s and reports whether it names a supported method.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return m, false
}

// Primitive attribute and parameter types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeDecimal = "decimal"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// Primitives in display order.
var Primitives = []string{TypeString, TypeInteger, TypeDecimal, TypeBoolean, TypeObject}

// Parameter sources.
const (
	SourcePath     = "path"
	SourceQuery    = "query"
	SourceBody     = "body"
	SourceFormData = "form-data"
	SourceHeader   = "header"
)

// Sources lists the accepted parameter sources.
var Sources = []string{SourcePath, SourceQuery, SourceBody, SourceFormData, SourceHeader}

// BodyKey is the key used for an unnamed body parameter.
const BodyKey = "body"

// ContentTypes offered for parameters and responses.
var ContentTypes = []string{
	"application/json",
	"application/xml",
	"image/gif",
	"image/jpg",
	"image/png",
	"text/css",
	"text/csv",
	"text/html",
	"text/javascript",
	"text/plain",
}

// ParseType splits a declared type into its base type and array flag.
// "array[integer]" yields ("integer", true); "bool" is read as "boolean".
func ParseType(t string) (string, bool) {
	t = strings.TrimSpace(t)
	isArray := false
	if strings.HasPrefix(t, "array[") && strings.HasSuffix(t, "]") {
		t = strings.TrimSuffix(strings.TrimPrefix(t, "array["), "]")
		isArray = true
	}
	if t == "bool" {
		t = TypeBoolean
	}
	return t, isArray
}

// IsPrimitive reports whether t (after ParseType) is a primitive type.
func IsPrimitive(t string) bool {
	base, _ := ParseType(t)
	for _, p := range Primitives {
		if base == p {
			return true
		}
	}
	return false
}

// Document is one API description.
type Document struct {
	Name      string                                                          `json:"name"`
	Version   string                                                          `json:"version"`
	Info      string                                                          `json:"info"`
	Address   string                                                          `json:"address"`
	Headers   *sequencedmap.Map[string, string]                               `json:"headers"`
	Auth      Auth                                                            `json:"auth"`
	Models    *sequencedmap.Map[string, *Model]                               `json:"models"`
	Endpoints *sequencedmap.Map[Method, *sequencedmap.Map[string, *Endpoint]] `json:"endpoints"`
}

// Auth describes the authentication scheme. It is carried through load and
// save but not interpreted by the generators.
type Auth struct {
	Type   string                            `json:"type"`
	Params *sequencedmap.Map[string, string] `json:"params"`
}

// Model is a named record type.
type Model struct {
	Info       string                                `json:"info"`
	Attributes *sequencedmap.Map[string, *Attribute] `json:"attributes"`
}

// Attribute is one field of a Model. Type is a primitive or a model name.
type Attribute struct {
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	IsArray  bool     `json:"is_array,omitempty"`
	Values   []string `json:"values,omitempty"`
	Example  string   `json:"example,omitempty"`
	Info     string   `json:"info"`
}

// Endpoint is identified by (Method, URI) in the owning Document.
type Endpoint struct {
	Summary   string                                `json:"summary"`
	Info      string                                `json:"info"`
	Params    *sequencedmap.Map[string, *Parameter] `json:"params"`
	Responses *sequencedmap.Map[string, *Response]  `json:"response"`
}

// Parameter is one request input.
type Parameter struct {
	Type        string   `json:"type"`
	Source      string   `json:"source"`
	Required    bool     `json:"required"`
	IsArray     bool     `json:"is_array,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Values      []string `json:"values,omitempty"`
	Info        string   `json:"info,omitempty"`
}

// Response is keyed by status code in its Endpoint.
type Response struct {
	Summary     string                            `json:"summary"`
	ContentType string                            `json:"content_type,omitempty"`
	Example     string                            `json:"example,omitempty"`
	Model       string                            `json:"model,omitempty"`
	Headers     *sequencedmap.Map[string, string] `json:"headers,omitempty"`
	Info        string                            `json:"info,omitempty"`
}

// EndpointRef names an endpoint.
type EndpointRef struct {
	Method Method
	URI    string
}

func (r EndpointRef) String() string { return string(r.Method) + " " + r.URI }

// ParseEndpointRef parses "METHOD URI".
func ParseEndpointRef(s string) (EndpointRef, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return EndpointRef{}, fmt.Errorf("endpoint %q: expected \"METHOD URI\"", s)
	}
	m, ok := ParseMethod(fields[0])
	if !ok {
		return EndpointRef{}, fmt.Errorf("endpoint %q: unknown method %q", s, fields[0])
	}
	return EndpointRef{Method: m, URI: fields[1]}, nil
}

// New returns an empty document with all collections allocated.
func New(name, version string) *Document {
	return &Document{
		Name:      name,
		Version:   version,
		Headers:   sequencedmap.New[string, string](),
		Auth:      Auth{Params: sequencedmap.New[string, string]()},
		Models:    sequencedmap.New[string, *Model](),
		Endpoints: sequencedmap.New[Method, *sequencedmap.Map[string, *Endpoint]](),
	}
}

// NewModel returns a model without attributes.
func NewModel(info string) *Model {
	return &Model{Info: info, Attributes: sequencedmap.New[string, *Attribute]()}
}

// NewEndpoint returns an endpoint without parameters or responses.
func NewEndpoint(summary string) *Endpoint {
	return &Endpoint{
		Summary:   summary,
		Params:    sequencedmap.New[string, *Parameter](),
		Responses: sequencedmap.New[string, *Response](),
	}
}

// NewResponse returns a response without headers.
func NewResponse(summary string) *Response {
	return &Response{Summary: summary, Headers: sequencedmap.New[string, string]()}
}

// Body returns the endpoint's body parameter, if any.
func (e *Endpoint) Body() (string, *Parameter, bool) {
	for key, p := range e.Params.All() {
		if p.Source == SourceBody {
			return key, p, true
		}
	}
	return "", nil, false
}

// ParamsBySource returns the keys and parameters with the given source in
// declaration order.
func (e *Endpoint) ParamsBySource(source string) []*sequencedmap.Element[string, *Parameter] {
	var out []*sequencedmap.Element[string, *Parameter]
	for key, p := range e.Params.All() {
		if p.Source == source {
			out = append(out, sequencedmap.NewElem(key, p))
		}
	}
	return out
}

// PreferredResponse picks the response the generators describe as the
// success case: "200" if declared, otherwise the first 2xx.
func (e *Endpoint) PreferredResponse() (string, *Response, bool) {
	if r, ok := e.Responses.Get("200"); ok {
		return "200", r, true
	}
	for code, r := range e.Responses.All() {
		if strings.HasPrefix(code, "2") {
			return code, r, true
		}
	}
	return "", nil, false
}
