package openapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	jsoniter "github.com/json-iterator/go"
	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"gopkg.in/yaml.v3"
)

// ImportOption configures Import and ImportFrom.
type ImportOption func(*importConfig)

type importConfig struct {
	fetch       fetchConfig
	name        string
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[apidoc.Method]struct{}
	pathRes     []*regexp.Regexp
	log         *slog.Logger
}

// WithName overrides the document name taken from info.title.
func WithName(name string) ImportOption {
	return func(c *importConfig) { c.name = strings.TrimSpace(name) }
}

// WithIncludeTags keeps only operations that have at least one of the tags.
func WithIncludeTags(tags []string) ImportOption {
	return func(c *importConfig) { c.includeTags = tagSet(c.includeTags, tags) }
}

// WithExcludeTags drops operations that have any of the tags.
func WithExcludeTags(tags []string) ImportOption {
	return func(c *importConfig) { c.excludeTags = tagSet(c.excludeTags, tags) }
}

func tagSet(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the methods.
func WithMethods(methods []apidoc.Method) ImportOption {
	return func(c *importConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[apidoc.Method]struct{}, len(methods))
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only paths matching at least one of the regular
// expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) ImportOption {
	return func(c *importConfig) {
		for _, p := range patterns {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// WithLogger receives notes about constructs that could not be imported.
func WithLogger(l *slog.Logger) ImportOption {
	return func(c *importConfig) { c.log = l }
}

func (c *importConfig) allow(method apidoc.Method, path string, tags []string) bool {
	if len(c.methods) > 0 {
		if _, ok := c.methods[method]; !ok {
			return false
		}
	}
	if len(c.pathRes) > 0 && !slices.ContainsFunc(c.pathRes, func(re *regexp.Regexp) bool { return re.MatchString(path) }) {
		return false
	}
	if len(c.includeTags) > 0 && !slices.ContainsFunc(tags, func(t string) bool { _, ok := c.includeTags[t]; return ok }) {
		return false
	}
	return !slices.ContainsFunc(tags, func(t string) bool { _, ok := c.excludeTags[t]; return ok })
}

// Import converts an OpenAPI 3 document. OpenAPI maps carry no order, so
// models, attributes, paths and responses are imported sorted by name;
// methods follow GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS.
//
// Constructs the document model cannot express (cookie parameters, schemas
// that are not objects, non numeric response codes) are skipped and logged.
// The result is not validated.
func Import(doc *openapi3.T, opts ...ImportOption) (*apidoc.Document, error) {
	return importSpec(doc, newImportConfig(opts))
}

func newImportConfig(opts []ImportOption) *importConfig {
	cfg := &importConfig{fetch: defaultFetch, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func importSpec(doc *openapi3.T, cfg *importConfig) (*apidoc.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil description")
	}

	name, version := cfg.name, "1"
	d := apidoc.New("", "")
	if doc.Info != nil {
		if name == "" {
			name = strings.TrimSpace(doc.Info.Title)
		}
		if v := strings.TrimSpace(doc.Info.Version); v != "" {
			version = v
		}
		d.Info = strings.TrimSpace(doc.Info.Description)
	}
	if name == "" {
		name = "Imported API"
	}
	d.Name, d.Version = name, version
	for _, s := range doc.Servers {
		if s != nil && s.URL != "" {
			d.Address = pathutil.NormalizeAddress(s.URL)
			break
		}
	}
	im := &importer{doc: d, log: cfg.log}
	im.extensions(doc.Extensions)

	if doc.Components != nil {
		for _, name := range sortedKeys(doc.Components.Schemas) {
			im.model(name, doc.Components.Schemas[name])
		}
	}

	for _, path := range sortedKeys(doc.Paths) {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		ops := []struct {
			m apidoc.Method
			o *openapi3.Operation
		}{
			{apidoc.MethodGet, item.Get},
			{apidoc.MethodPost, item.Post},
			{apidoc.MethodPut, item.Put},
			{apidoc.MethodDelete, item.Delete},
			{apidoc.MethodPatch, item.Patch},
			{apidoc.MethodHead, item.Head},
			{apidoc.MethodOptions, item.Options},
		}
		if item.Trace != nil {
			cfg.log.Info("skipping unsupported method", "method", "TRACE", "path", path)
		}
		for _, pair := range ops {
			if pair.o == nil || !cfg.allow(pair.m, path, pair.o.Tags) {
				continue
			}
			if err := im.endpoint(pair.m, path, item.Parameters, pair.o); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

type importer struct {
	doc *apidoc.Document
	log *slog.Logger
}

func (im *importer) extensions(ext map[string]interface{}) {
	if n := extensionNode(ext[ExtHeaders]); n != nil {
		eachPair(n, func(k string, v *yaml.Node) { im.doc.SetHeader(k, v.Value) })
	}
	if n := extensionNode(ext[ExtAuth]); n != nil {
		eachPair(n, func(k string, v *yaml.Node) {
			switch k {
			case "type":
				im.doc.Auth.Type = v.Value
			case "params":
				eachPair(v, func(pk string, pv *yaml.Node) { im.doc.Auth.Params.Set(pk, pv.Value) })
			}
		})
	}
}

// extensionNode reads an extension value as YAML so that the key order of
// a raw JSON value survives.
func extensionNode(v any) *yaml.Node {
	var raw []byte
	switch v := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		var err error
		if raw, err = jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v); err != nil {
			return nil
		}
	}
	var n yaml.Node
	if err := yaml.Unmarshal(raw, &n); err != nil || len(n.Content) == 0 {
		return nil
	}
	return n.Content[0]
}

func eachPair(n *yaml.Node, fn func(string, *yaml.Node)) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		fn(n.Content[i].Value, n.Content[i+1])
	}
}

func (im *importer) model(name string, ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil {
		return
	}
	s := ref.Value
	if s.Type != "object" && len(s.Properties) == 0 {
		im.log.Info("skipping schema that is not an object", "schema", name, "type", s.Type)
		return
	}
	if err := im.doc.AddModel(name, apidoc.NewModel(strings.TrimSpace(s.Description))); err != nil {
		im.log.Warn("skipping schema", "schema", name, "error", err)
		return
	}
	for _, attr := range sortedKeys(s.Properties) {
		prop := s.Properties[attr]
		typ, isArray := typeOf(prop)
		a := &apidoc.Attribute{
			Type:     typ,
			IsArray:  isArray,
			Required: slices.Contains(s.Required, attr),
		}
		if prop != nil && prop.Value != nil && prop.Ref == "" {
			a.Info = strings.TrimSpace(prop.Value.Description)
			a.Values = enumValues(prop.Value)
			a.Example = exampleText(prop.Value.Example)
		}
		if err := im.doc.AddAttribute(name, attr, a); err != nil {
			im.log.Warn("skipping property", "schema", name, "property", attr, "error", err)
		}
	}
}

func (im *importer) endpoint(method apidoc.Method, path string, shared openapi3.Parameters, op *openapi3.Operation) error {
	summary := strings.TrimSpace(op.Summary)
	if summary == "" {
		summary = op.OperationID
	}
	ep := apidoc.NewEndpoint(summary)
	ep.Info = strings.TrimSpace(op.Description)
	if err := im.doc.AddEndpoint(method, path, ep); err != nil {
		return err
	}
	at := string(method) + " " + path

	for _, pref := range mergeParameters(shared, op.Parameters) {
		p := pref.Value
		switch p.In {
		case openapi3.ParameterInPath, openapi3.ParameterInQuery, openapi3.ParameterInHeader:
		default:
			im.log.Info("skipping parameter", "endpoint", at, "name", p.Name, "in", p.In)
			continue
		}
		schema := p.Schema
		if schema == nil {
			if mt := preferredMedia(p.Content); mt != nil {
				schema = mt.Schema
			}
		}
		typ, isArray := typeOf(schema)
		param := &apidoc.Parameter{
			Type:     typ,
			Source:   p.In,
			Required: p.Required,
			IsArray:  isArray,
			Info:     strings.TrimSpace(p.Description),
		}
		if schema != nil && schema.Value != nil {
			param.Values = enumValues(schema.Value)
		}
		im.addParameter(method, path, p.Name, param)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		im.requestBody(method, path, op.RequestBody.Value)
	}

	for _, code := range sortedKeys(op.Responses) {
		rref := op.Responses[code]
		if rref == nil || rref.Value == nil {
			continue
		}
		if !pathutil.ValidateHTTPStatusCode(code) {
			im.log.Info("skipping response", "endpoint", at, "code", code)
			continue
		}
		if err := im.doc.AddResponse(method, path, code, im.response(code, rref.Value)); err != nil {
			im.log.Warn("skipping response", "endpoint", at, "code", code, "error", err)
		}
	}
	return nil
}

func (im *importer) addParameter(method apidoc.Method, path, key string, p *apidoc.Parameter) {
	if err := im.doc.AddParameter(method, path, key, p); err != nil {
		im.log.Warn("skipping parameter", "endpoint", string(method)+" "+path, "name", key, "error", err)
	}
}

// requestBody imports form encoded bodies as form-data parameters and any
// other body as one body parameter.
func (im *importer) requestBody(method apidoc.Method, path string, rb *openapi3.RequestBody) {
	for _, ct := range []string{formURLEncoded, "multipart/form-data"} {
		mt := rb.Content[ct]
		if mt == nil || mt.Schema == nil || mt.Schema.Value == nil || len(mt.Schema.Value.Properties) == 0 {
			continue
		}
		s := mt.Schema.Value
		for _, key := range sortedKeys(s.Properties) {
			typ, isArray := typeOf(s.Properties[key])
			im.addParameter(method, path, key, &apidoc.Parameter{
				Type:     typ,
				Source:   apidoc.SourceFormData,
				Required: slices.Contains(s.Required, key),
				IsArray:  isArray,
			})
		}
		return
	}
	ct, mt := preferredContent(rb.Content)
	if mt == nil {
		return
	}
	typ, isArray := typeOf(mt.Schema)
	im.addParameter(method, path, apidoc.BodyKey, &apidoc.Parameter{
		Type:        typ,
		Source:      apidoc.SourceBody,
		Required:    rb.Required,
		IsArray:     isArray,
		ContentType: ct,
		Info:        strings.TrimSpace(rb.Description),
	})
}

func (im *importer) response(code string, r *openapi3.Response) *apidoc.Response {
	summary := ""
	if r.Description != nil {
		summary = strings.TrimSpace(*r.Description)
	}
	if summary == "" {
		summary = statusSummary(code)
	}
	out := apidoc.NewResponse(summary)
	if ct, mt := preferredContent(r.Content); mt != nil {
		out.ContentType = ct
		if mt.Schema != nil && mt.Schema.Ref != "" {
			if name := refName(mt.Schema.Ref); im.doc.Models.Has(name) {
				out.Model = name
			}
		}
		if out.Model == "" {
			out.Example = exampleText(mt.Example)
		}
	}
	for _, name := range sortedKeys(r.Headers) {
		value := ""
		if h := r.Headers[name]; h != nil && h.Value != nil {
			value = exampleText(h.Value.Example)
			if value == "" && h.Value.Schema != nil && h.Value.Schema.Value != nil {
				value = exampleText(h.Value.Schema.Value.Example)
			}
		}
		out.Headers.Set(name, value)
	}
	return out
}

// mergeParameters lets operation parameters override path item parameters
// with the same location and name.
func mergeParameters(shared, own openapi3.Parameters) []*openapi3.ParameterRef {
	var out []*openapi3.ParameterRef
	index := map[string]int{}
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, pref := range list {
			if pref == nil || pref.Value == nil {
				continue
			}
			key := pref.Value.In + ":" + pref.Value.Name
			if i, ok := index[key]; ok {
				out[i] = pref
				continue
			}
			index[key] = len(out)
			out = append(out, pref)
		}
	}
	return out
}

// typeOf maps a schema to a declared type. References name their model;
// nested arrays collapse to their innermost element type.
func typeOf(ref *openapi3.SchemaRef) (string, bool) {
	if ref == nil {
		return apidoc.TypeString, false
	}
	if ref.Ref != "" {
		return refName(ref.Ref), false
	}
	s := ref.Value
	if s == nil {
		return apidoc.TypeString, false
	}
	switch s.Type {
	case "array":
		t, _ := typeOf(s.Items)
		return t, true
	case "integer":
		return apidoc.TypeInteger, false
	case "number":
		return apidoc.TypeDecimal, false
	case "boolean":
		return apidoc.TypeBoolean, false
	case "object":
		return apidoc.TypeObject, false
	case "":
		if len(s.Properties) > 0 {
			return apidoc.TypeObject, false
		}
	}
	return apidoc.TypeString, false
}

func refName(ref string) string {
	return ref[strings.LastIndexByte(ref, '/')+1:]
}

func enumValues(s *openapi3.Schema) []string {
	var out []string
	for _, v := range s.Enum {
		out = append(out, exampleText(v))
	}
	return out
}

// exampleText renders an example value the way documents store it: strings
// verbatim, everything else as JSON.
func exampleText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func preferredMedia(c openapi3.Content) *openapi3.MediaType {
	_, mt := preferredContent(c)
	return mt
}

// preferredContent picks application/json when present, otherwise the
// first content type in sorted order.
func preferredContent(c openapi3.Content) (string, *openapi3.MediaType) {
	if mt := c[jsonType]; mt != nil {
		return jsonType, mt
	}
	for _, ct := range sortedKeys(c) {
		if c[ct] != nil {
			return ct, c[ct]
		}
	}
	return "", nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// statusSummary names a response that has no description.
func statusSummary(code string) string {
	if n, err := strconv.Atoi(code); err == nil {
		if s := http.StatusText(n); s != "" {
			return s
		}
	}
	return "Response " + code
}
