package apidoc

import (
	"slices"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Clone returns a deep copy. Generation runs work on a clone so the caller
// may keep editing the original.
func (d *Document) Clone() *Document {
	out := New(d.Name, d.Version)
	out.Info = d.Info
	out.Address = d.Address
	out.Headers = cloneStrings(d.Headers)
	out.Auth = Auth{Type: d.Auth.Type, Params: cloneStrings(d.Auth.Params)}

	for name, m := range d.Models.All() {
		out.Models.Set(name, m.clone())
	}
	for method, uris := range d.Endpoints.All() {
		cp := sequencedmap.NewWithCapacity[string, *Endpoint](uris.Len())
		for uri, ep := range uris.All() {
			cp.Set(uri, ep.clone())
		}
		out.Endpoints.Set(method, cp)
	}
	return out
}

func (m *Model) clone() *Model {
	out := NewModel(m.Info)
	for name, a := range m.Attributes.All() {
		ac := *a
		ac.Values = slices.Clone(a.Values)
		out.Attributes.Set(name, &ac)
	}
	return out
}

func (e *Endpoint) clone() *Endpoint {
	out := NewEndpoint(e.Summary)
	out.Info = e.Info
	for key, p := range e.Params.All() {
		pc := *p
		pc.Values = slices.Clone(p.Values)
		out.Params.Set(key, &pc)
	}
	for code, r := range e.Responses.All() {
		rc := *r
		rc.Headers = cloneStrings(r.Headers)
		out.Responses.Set(code, &rc)
	}
	return out
}

func cloneStrings(m *sequencedmap.Map[string, string]) *sequencedmap.Map[string, string] {
	out := sequencedmap.NewWithCapacity[string, string](m.Len())
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}
