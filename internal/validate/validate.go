// Package validate checks API documents before they are saved or turned into
// artifacts. Checks never stop at the first problem; every finding is
// collected into a Report.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/synth"
)

// RFC 7230 token.
var headerNameRe = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+.^_`|~-]+$")

// Document runs every check over d.
func Document(d *apidoc.Document) *Report {
	return Selection(d, nil)
}

// Selection checks the document fields, the models and the given endpoints;
// nil selects every endpoint. Refs not in d are ignored.
func Selection(d *apidoc.Document, refs []apidoc.EndpointRef) *Report {
	r := Metadata(d.Name, d.Version, d.Address)
	for key := range d.Headers.Keys() {
		checkHeaderName(r, "headers."+key, key)
	}
	for name, m := range d.Models.All() {
		r.merge(Model(d, name, m))
	}
	for _, name := range cycles(d) {
		r.addWarning("models."+name, fmt.Sprintf("model %q is part of a reference cycle; examples stop at the repeated model", name))
	}
	if refs == nil {
		refs = d.EndpointRefs()
	}
	for _, ref := range refs {
		if ep, ok := d.Endpoint(ref.Method, ref.URI); ok {
			r.merge(Endpoint(d, ref.Method, ref.URI, ep))
		}
	}
	return r
}

// Metadata checks the document level fields.
func Metadata(name, version, address string) *Report {
	r := &Report{}
	if strings.TrimSpace(name) == "" {
		r.addError("name", "name is required", withField("name"))
	}
	switch {
	case strings.TrimSpace(version) == "":
		r.addError("version", "version is required", withField("version"))
	case !pathutil.ValidateVersion(version):
		r.addWarning("version", fmt.Sprintf("version %q is not of the form 1, 1.2 or 1.2.3", version),
			withField("version"), withValue(version))
	}
	if address != "" && !validAddress(address) {
		r.addWarning("address", fmt.Sprintf("address %q is not an http(s) URL", address),
			withField("address"), withValue(address))
	}
	return r
}

func validAddress(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func checkHeaderName(r *Report, path, name string) {
	if !headerNameRe.MatchString(name) {
		r.addError(path, fmt.Sprintf("invalid header name %q", name), withValue(name))
	}
}

// Model checks one model and its attributes.
func Model(d *apidoc.Document, name string, m *apidoc.Model) *Report {
	r := &Report{}
	path := "models." + name
	if !pathutil.ValidateIdentifier(name) {
		r.addError(path, fmt.Sprintf("model name %q must start with a letter and contain only letters, digits, '-' or '_'", name),
			withValue(name))
	}
	if base, _ := apidoc.ParseType(name); apidoc.IsPrimitive(base) {
		r.addError(path, fmt.Sprintf("model name %q collides with a primitive type", name), withValue(name))
	}
	if m.Attributes.Len() == 0 {
		r.addWarning(path, "model has no attributes")
	}
	for attr, a := range m.Attributes.All() {
		r.merge(Attribute(d, name, attr, a))
	}
	return r
}

// Attribute checks one model attribute.
func Attribute(d *apidoc.Document, model, name string, a *apidoc.Attribute) *Report {
	r := &Report{}
	path := "models." + model + ".attributes." + name
	if !pathutil.ValidateIdentifier(name) {
		r.addError(path, fmt.Sprintf("attribute name %q must start with a letter and contain only letters, digits, '-' or '_'", name),
			withValue(name))
	}
	base, _ := apidoc.ParseType(a.Type)
	if !knownType(d, base) {
		r.addError(path, fmt.Sprintf("unknown type %q", a.Type), withField("type"), withValue(a.Type))
		return r
	}
	if !apidoc.IsPrimitive(base) {
		return r
	}
	if a.Example != "" {
		if _, err := synth.Coerce(base, a.Example); err != nil {
			r.addWarning(path, fmt.Sprintf("example %q is not a valid %s", a.Example, base),
				withField("example"), withValue(a.Example))
		}
	}
	checkValues(r, path, base, a.Values)
	return r
}

func checkValues(r *Report, path, base string, values []string) {
	if base == apidoc.TypeString || base == apidoc.TypeObject {
		return
	}
	for _, v := range values {
		if _, err := synth.Coerce(base, v); err != nil {
			r.addWarning(path, fmt.Sprintf("allowed value %q is not a valid %s", v, base),
				withField("values"), withValue(v))
		}
	}
}

func knownType(d *apidoc.Document, base string) bool {
	return apidoc.IsPrimitive(base) || d.Models.Has(base)
}

// Endpoint checks one endpoint with its parameters and responses.
func Endpoint(d *apidoc.Document, method apidoc.Method, uri string, ep *apidoc.Endpoint) *Report {
	r := &Report{}
	path := fmt.Sprintf("endpoints.%s.%s", method, uri)

	if _, ok := apidoc.ParseMethod(string(method)); !ok {
		r.addError(path, fmt.Sprintf("unsupported method %q", method), withField("method"), withValue(string(method)))
	}
	if !strings.HasPrefix(uri, "/") || !pathutil.ValidateURI(uri, false, true) {
		r.addError(path, fmt.Sprintf("invalid URI %q: expected /segment/{placeholder}/... of word characters", uri),
			withField("uri"), withValue(uri))
	}

	items := pathutil.ExtractPathItems(uri)
	seen := map[string]bool{}
	for _, item := range items {
		if seen[item] {
			r.addError(path, fmt.Sprintf("placeholder {%s} appears more than once", item), withField("uri"), withValue(item))
		}
		seen[item] = true
		p, ok := ep.Params.Get(item)
		if !ok || p.Source != apidoc.SourcePath {
			r.addError(path, fmt.Sprintf("placeholder {%s} has no path parameter", item), withField("uri"), withValue(item))
		}
	}
	bodies := 0
	for key, p := range ep.Params.All() {
		if p.Source == apidoc.SourcePath && !slices.Contains(items, key) {
			r.addError(path+".params."+key, fmt.Sprintf("path parameter %q has no {%s} placeholder in the URI", key, key),
				withField("source"))
		}
		if p.Source == apidoc.SourceBody {
			bodies++
		}
		r.merge(Parameter(d, path, key, p))
	}
	if bodies > 1 {
		r.addError(path, fmt.Sprintf("endpoint has %d body parameters, at most one is allowed", bodies), withField("params"))
	}
	for code, resp := range ep.Responses.All() {
		r.merge(Response(d, path, code, resp))
	}
	return r
}

// Parameter checks one parameter. at is the owning endpoint's path.
func Parameter(d *apidoc.Document, at, key string, p *apidoc.Parameter) *Report {
	r := &Report{}
	path := at + ".params." + key
	if !pathutil.ValidateIdentifier(key) {
		r.addError(path, fmt.Sprintf("parameter name %q must start with a letter and contain only letters, digits, '-' or '_'", key),
			withValue(key))
	}
	if !slices.Contains(apidoc.Sources, p.Source) {
		r.addError(path, fmt.Sprintf("unknown source %q", p.Source), withField("source"), withValue(p.Source))
	}
	if p.Source == apidoc.SourcePath && !p.Required {
		r.addError(path, "path parameters are always required", withField("required"))
	}
	if p.Source == apidoc.SourceHeader {
		checkHeaderName(r, path, key)
	}
	base, _ := apidoc.ParseType(p.Type)
	if !knownType(d, base) {
		r.addError(path, fmt.Sprintf("unknown type %q", p.Type), withField("type"), withValue(p.Type))
		return r
	}
	if apidoc.IsPrimitive(base) {
		checkValues(r, path, base, p.Values)
	}
	return r
}

// Response checks one response. at is the owning endpoint's path.
func Response(d *apidoc.Document, at, code string, resp *apidoc.Response) *Report {
	r := &Report{}
	path := at + ".response." + code
	if !pathutil.ValidateHTTPStatusCode(code) {
		r.addError(path, fmt.Sprintf("invalid HTTP status code %q", code), withValue(code))
	}
	if strings.TrimSpace(resp.Summary) == "" {
		r.addError(path, "response summary is required", withField("summary"))
	}
	if resp.Model != "" && !d.Models.Has(resp.Model) {
		r.addError(path, fmt.Sprintf("unknown model %q", resp.Model), withField("model"), withValue(resp.Model))
	}
	for key := range resp.Headers.Keys() {
		checkHeaderName(r, path+".headers."+key, key)
	}
	return r
}

// cycles returns the models that reach themselves through attribute types,
// in document order.
func cycles(d *apidoc.Document) []string {
	var out []string
	for name := range d.Models.Keys() {
		if reaches(d, name, name, map[string]bool{}) {
			out = append(out, name)
		}
	}
	return out
}

func reaches(d *apidoc.Document, from, target string, visited map[string]bool) bool {
	m, ok := d.Models.Get(from)
	if !ok || visited[from] {
		return false
	}
	visited[from] = true
	for _, a := range m.Attributes.All() {
		base, _ := apidoc.ParseType(a.Type)
		if base == target || reaches(d, base, target, visited) {
			return true
		}
	}
	return false
}
