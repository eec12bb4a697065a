package apidoc

import (
	"fmt"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// rekey returns a copy of m where old is replaced by (key, v) at the same
// position. sequencedmap.Set appends, so in-place updates go through here.
func rekey[K comparable, V any](m *sequencedmap.Map[K, V], old, key K, v V) *sequencedmap.Map[K, V] {
	out := sequencedmap.NewWithCapacity[K, V](m.Len())
	for k, cur := range m.All() {
		if k == old {
			out.Set(key, v)
			continue
		}
		out.Set(k, cur)
	}
	return out
}

func modelPath(name string) string             { return "models." + name }
func endpointPath(m Method, uri string) string { return fmt.Sprintf("endpoints.%s.%s", m, uri) }

// SetHeader adds or replaces a document level request header.
func (d *Document) SetHeader(key, value string) {
	if d.Headers.Has(key) {
		d.Headers = rekey(d.Headers, key, key, value)
		return
	}
	d.Headers.Set(key, value)
}

// DeleteHeader removes a document level header.
func (d *Document) DeleteHeader(key string) error {
	if !d.Headers.Has(key) {
		return opErr("delete header", "headers."+key, ErrNotFound)
	}
	d.Headers.Delete(key)
	return nil
}

// Model looks up a model by name.
func (d *Document) Model(name string) (*Model, bool) {
	return d.Models.Get(name)
}

// AddModel creates a model.
func (d *Document) AddModel(name string, m *Model) error {
	if d.Models.Has(name) {
		return opErr("add model", modelPath(name), ErrDuplicate)
	}
	d.Models.Set(name, normModel(m))
	return nil
}

// UpdateModel replaces the contents of an existing model, keeping its
// position.
func (d *Document) UpdateModel(name string, m *Model) error {
	cur, ok := d.Models.Get(name)
	if !ok {
		return opErr("update model", modelPath(name), ErrNotFound)
	}
	*cur = *normModel(m)
	return nil
}

// RenameModel renames a model in place and rewrites every reference to it.
func (d *Document) RenameModel(old, name string) error {
	cur, ok := d.Models.Get(old)
	if !ok {
		return opErr("rename model", modelPath(old), ErrNotFound)
	}
	if old == name {
		return nil
	}
	if d.Models.Has(name) {
		return opErr("rename model", modelPath(name), ErrDuplicate)
	}
	d.Models = rekey(d.Models, old, name, cur)

	retype := func(t string) string {
		base, isArray := ParseType(t)
		if base != old {
			return t
		}
		if isArray {
			return "array[" + name + "]"
		}
		return name
	}
	for _, m := range d.Models.All() {
		for _, a := range m.Attributes.All() {
			a.Type = retype(a.Type)
		}
	}
	for _, uris := range d.Endpoints.All() {
		for _, ep := range uris.All() {
			for _, p := range ep.Params.All() {
				p.Type = retype(p.Type)
			}
			for _, r := range ep.Responses.All() {
				if r.Model == old {
					r.Model = name
				}
			}
		}
	}
	return nil
}

// DeleteModel removes a model. References from other models or endpoints are
// left dangling; validation reports them.
func (d *Document) DeleteModel(name string) error {
	if !d.Models.Has(name) {
		return opErr("delete model", modelPath(name), ErrNotFound)
	}
	d.Models.Delete(name)
	return nil
}

// AddAttribute appends an attribute to a model.
func (d *Document) AddAttribute(model, name string, a *Attribute) error {
	m, ok := d.Models.Get(model)
	if !ok {
		return opErr("add attribute", modelPath(model), ErrNotFound)
	}
	path := modelPath(model) + ".attributes." + name
	if m.Attributes.Has(name) {
		return opErr("add attribute", path, ErrDuplicate)
	}
	cp := *a
	m.Attributes.Set(name, &cp)
	return nil
}

// UpdateAttribute replaces an attribute, keeping its position.
func (d *Document) UpdateAttribute(model, name string, a *Attribute) error {
	m, ok := d.Models.Get(model)
	if !ok {
		return opErr("update attribute", modelPath(model), ErrNotFound)
	}
	cur, ok := m.Attributes.Get(name)
	if !ok {
		return opErr("update attribute", modelPath(model)+".attributes."+name, ErrNotFound)
	}
	*cur = *a
	return nil
}

// DeleteAttribute removes an attribute from a model.
func (d *Document) DeleteAttribute(model, name string) error {
	m, ok := d.Models.Get(model)
	if !ok {
		return opErr("delete attribute", modelPath(model), ErrNotFound)
	}
	if !m.Attributes.Has(name) {
		return opErr("delete attribute", modelPath(model)+".attributes."+name, ErrNotFound)
	}
	m.Attributes.Delete(name)
	return nil
}

// Endpoint looks up an endpoint.
func (d *Document) Endpoint(method Method, uri string) (*Endpoint, bool) {
	uris, ok := d.Endpoints.Get(method)
	if !ok {
		return nil, false
	}
	return uris.Get(uri)
}

// AddEndpoint creates an endpoint. Parameters already present on ep go
// through the same rules as AddParameter.
func (d *Document) AddEndpoint(method Method, uri string, ep *Endpoint) error {
	if _, ok := d.Endpoint(method, uri); ok {
		return opErr("add endpoint", endpointPath(method, uri), ErrDuplicate)
	}
	ep, err := normEndpoint(ep, endpointPath(method, uri))
	if err != nil {
		return err
	}
	uris, ok := d.Endpoints.Get(method)
	if !ok {
		uris = sequencedmap.New[string, *Endpoint]()
		d.Endpoints.Set(method, uris)
	}
	uris.Set(uri, ep)
	return nil
}

// UpdateEndpoint replaces an endpoint's contents, keeping its position.
func (d *Document) UpdateEndpoint(method Method, uri string, ep *Endpoint) error {
	cur, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("update endpoint", endpointPath(method, uri), ErrNotFound)
	}
	ep, err := normEndpoint(ep, endpointPath(method, uri))
	if err != nil {
		return err
	}
	*cur = *ep
	return nil
}

// MoveEndpoint changes an endpoint's method and/or URI. A URI change under
// the same method keeps the endpoint's position; a method change appends it
// under the new method.
func (d *Document) MoveEndpoint(method Method, uri string, newMethod Method, newURI string) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("move endpoint", endpointPath(method, uri), ErrNotFound)
	}
	if method == newMethod && uri == newURI {
		return nil
	}
	if _, ok := d.Endpoint(newMethod, newURI); ok {
		return opErr("move endpoint", endpointPath(newMethod, newURI), ErrDuplicate)
	}
	if method == newMethod {
		uris, _ := d.Endpoints.Get(method)
		d.Endpoints = rekey(d.Endpoints, method, method, rekey(uris, uri, newURI, ep))
		return nil
	}
	if err := d.DeleteEndpoint(method, uri); err != nil {
		return err
	}
	return d.AddEndpoint(newMethod, newURI, ep)
}

// DeleteEndpoint removes an endpoint; an emptied method is removed as well.
func (d *Document) DeleteEndpoint(method Method, uri string) error {
	uris, ok := d.Endpoints.Get(method)
	if !ok || !uris.Has(uri) {
		return opErr("delete endpoint", endpointPath(method, uri), ErrNotFound)
	}
	uris.Delete(uri)
	if uris.Len() == 0 {
		d.Endpoints.Delete(method)
	}
	return nil
}

// AddParameter adds a request parameter. An empty key on a body parameter
// becomes "body"; path parameters are always required; only one body
// parameter is allowed.
func (d *Document) AddParameter(method Method, uri, key string, p *Parameter) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("add parameter", endpointPath(method, uri), ErrNotFound)
	}
	return addParam(ep, endpointPath(method, uri), key, p)
}

func addParam(ep *Endpoint, at, key string, p *Parameter) error {
	cp := normParam(p)
	if key == "" && cp.Source == SourceBody {
		key = BodyKey
	}
	path := at + ".params." + key
	if ep.Params.Has(key) {
		return opErr("add parameter", path, ErrDuplicate)
	}
	if cp.Source == SourceBody {
		if other, _, ok := ep.Body(); ok {
			return opErr("add parameter", path, fmt.Errorf("body parameter %q %w", other, ErrDuplicate))
		}
	}
	ep.Params.Set(key, cp)
	return nil
}

// UpdateParameter replaces a parameter, keeping its position.
func (d *Document) UpdateParameter(method Method, uri, key string, p *Parameter) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("update parameter", endpointPath(method, uri), ErrNotFound)
	}
	path := endpointPath(method, uri) + ".params." + key
	cur, ok := ep.Params.Get(key)
	if !ok {
		return opErr("update parameter", path, ErrNotFound)
	}
	cp := normParam(p)
	if cp.Source == SourceBody {
		if other, _, ok := ep.Body(); ok && other != key {
			return opErr("update parameter", path, fmt.Errorf("body parameter %q %w", other, ErrDuplicate))
		}
	}
	*cur = *cp
	return nil
}

// DeleteParameter removes a parameter.
func (d *Document) DeleteParameter(method Method, uri, key string) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("delete parameter", endpointPath(method, uri), ErrNotFound)
	}
	if !ep.Params.Has(key) {
		return opErr("delete parameter", endpointPath(method, uri)+".params."+key, ErrNotFound)
	}
	ep.Params.Delete(key)
	return nil
}

// AddResponse adds a response under a status code.
func (d *Document) AddResponse(method Method, uri, code string, r *Response) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("add response", endpointPath(method, uri), ErrNotFound)
	}
	if ep.Responses.Has(code) {
		return opErr("add response", endpointPath(method, uri)+".response."+code, ErrDuplicate)
	}
	ep.Responses.Set(code, normResponse(r))
	return nil
}

// UpdateResponse replaces a response, keeping its position.
func (d *Document) UpdateResponse(method Method, uri, code string, r *Response) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("update response", endpointPath(method, uri), ErrNotFound)
	}
	cur, ok := ep.Responses.Get(code)
	if !ok {
		return opErr("update response", endpointPath(method, uri)+".response."+code, ErrNotFound)
	}
	*cur = *normResponse(r)
	return nil
}

// DeleteResponse removes a response.
func (d *Document) DeleteResponse(method Method, uri, code string) error {
	ep, ok := d.Endpoint(method, uri)
	if !ok {
		return opErr("delete response", endpointPath(method, uri), ErrNotFound)
	}
	if !ep.Responses.Has(code) {
		return opErr("delete response", endpointPath(method, uri)+".response."+code, ErrNotFound)
	}
	ep.Responses.Delete(code)
	return nil
}

// EndpointRefs lists all endpoints, methods in insertion order and URIs in
// insertion order within each method.
func (d *Document) EndpointRefs() []EndpointRef {
	var refs []EndpointRef
	for m, uris := range d.Endpoints.All() {
		for uri := range uris.Keys() {
			refs = append(refs, EndpointRef{Method: m, URI: uri})
		}
	}
	return refs
}

// MaxMethodLen is the length of the longest method that has endpoints.
func (d *Document) MaxMethodLen() int {
	n := 0
	for m := range d.Endpoints.Keys() {
		n = max(n, len(m))
	}
	return n
}

// MaxURILen is the length of the longest endpoint URI.
func (d *Document) MaxURILen() int {
	n := 0
	for _, uris := range d.Endpoints.All() {
		for uri := range uris.Keys() {
			n = max(n, len(uri))
		}
	}
	return n
}

// ModelReferences lists the locations that refer to the named model.
func (d *Document) ModelReferences(name string) []string {
	var refs []string
	for mname, m := range d.Models.All() {
		for aname, a := range m.Attributes.All() {
			if base, _ := ParseType(a.Type); base == name {
				refs = append(refs, modelPath(mname)+".attributes."+aname)
			}
		}
	}
	for method, uris := range d.Endpoints.All() {
		for uri, ep := range uris.All() {
			for key, p := range ep.Params.All() {
				if base, _ := ParseType(p.Type); base == name {
					refs = append(refs, endpointPath(method, uri)+".params."+key)
				}
			}
			for code, r := range ep.Responses.All() {
				if r.Model == name {
					refs = append(refs, endpointPath(method, uri)+".response."+code)
				}
			}
		}
	}
	return refs
}

func normModel(m *Model) *Model {
	cp := &Model{Info: m.Info, Attributes: sequencedmap.New[string, *Attribute]()}
	for k, a := range m.Attributes.All() {
		ac := *a
		cp.Attributes.Set(k, &ac)
	}
	return cp
}

func normParam(p *Parameter) *Parameter {
	cp := *p
	if cp.Source == "" {
		cp.Source = SourceQuery
	}
	if cp.Type == "" {
		cp.Type = TypeString
	}
	if cp.Source == SourcePath {
		cp.Required = true
	}
	return &cp
}

func normResponse(r *Response) *Response {
	cp := *r
	headers := sequencedmap.New[string, string]()
	for k, v := range r.Headers.All() {
		headers.Set(k, v)
	}
	cp.Headers = headers
	return &cp
}

func normEndpoint(ep *Endpoint, at string) (*Endpoint, error) {
	out := NewEndpoint(ep.Summary)
	out.Info = ep.Info
	for key, p := range ep.Params.All() {
		if err := addParam(out, at, key, p); err != nil {
			return nil, err
		}
	}
	for code, r := range ep.Responses.All() {
		out.Responses.Set(code, normResponse(r))
	}
	return out, nil
}
