package openapi

import (
	"bytes"
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/synth"
	"gopkg.in/yaml.v3"
)

// Extension keys carrying document data OpenAPI has no field for.
const (
	ExtHeaders = "x-okapi-headers"
	ExtAuth    = "x-okapi-auth"
)

const (
	schemaPrefix   = "#/components/schemas/"
	formURLEncoded = "application/x-www-form-urlencoded"
	jsonType       = "application/json"
)

// Export converts d into a validated OpenAPI 3 document limited to the
// given endpoints; nil selects all of them.
func Export(ctx context.Context, d *apidoc.Document, refs []apidoc.EndpointRef) (*openapi3.T, error) {
	t := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       d.Name,
			Version:     d.Version,
			Description: d.Info,
		},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	if d.Address != "" {
		t.Servers = openapi3.Servers{{URL: d.Address}}
	}
	if d.Headers.Len() > 0 || d.Auth.Type != "" {
		t.Extensions = map[string]interface{}{}
	}
	if d.Headers.Len() > 0 {
		t.Extensions[ExtHeaders] = d.Headers
	}
	if d.Auth.Type != "" {
		t.Extensions[ExtAuth] = map[string]any{"type": d.Auth.Type, "params": d.Auth.Params}
	}

	x := &exporter{doc: d, schemas: t.Components.Schemas}
	x.models()
	if refs == nil {
		refs = d.EndpointRefs()
	}
	for _, r := range refs {
		ep, ok := d.Endpoint(r.Method, r.URI)
		if !ok {
			return nil, fmt.Errorf("%s: endpoint not found", r)
		}
		item := t.Paths[r.URI]
		if item == nil {
			item = &openapi3.PathItem{}
			t.Paths[r.URI] = item
		}
		item.SetOperation(string(r.Method), x.operation(r, ep))
	}

	if err := t.Validate(ctx); err != nil {
		return nil, fmt.Errorf("exported description is invalid: %w", err)
	}
	return t, nil
}

// MarshalYAML renders t as block style YAML with two space indentation.
func MarshalYAML(t *openapi3.T) ([]byte, error) {
	raw, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	plain(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// plain drops the flow and quoting styles JSON input leaves on the nodes.
func plain(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plain(c)
	}
}

type exporter struct {
	doc     *apidoc.Document
	schemas openapi3.Schemas
}

// models registers one schema per model before filling any of them, so
// references between models, cycles included, point at shared values.
func (x *exporter) models() {
	for name, m := range x.doc.Models.All() {
		x.schemas[name] = openapi3.NewSchemaRef("", &openapi3.Schema{Type: "object", Description: m.Info})
	}
	for name, m := range x.doc.Models.All() {
		s := x.schemas[name].Value
		s.Properties = openapi3.Schemas{}
		for attr, a := range m.Attributes.All() {
			s.Properties[attr] = x.schema(a.Type, a.IsArray, a.Info, a.Values, a.Example)
			if a.Required {
				s.Required = append(s.Required, attr)
			}
		}
	}
}

// schema builds the schema of a declared type. Model types become
// references; primitives carry description, allowed values and example.
// Values or examples that do not fit the type are left out.
func (x *exporter) schema(typ string, isArray bool, info string, values []string, example string) *openapi3.SchemaRef {
	base, arr := apidoc.ParseType(typ)
	var ref *openapi3.SchemaRef
	if m, ok := x.schemas[base]; ok {
		ref = openapi3.NewSchemaRef(schemaPrefix+base, m.Value)
	} else {
		s := &openapi3.Schema{Type: primitiveType(base)}
		if !arr && !isArray {
			s.Description = info
		}
		allowed := map[string]bool{}
		for _, v := range values {
			if cv, err := synth.Coerce(base, v); err == nil && base != apidoc.TypeObject {
				s.Enum = append(s.Enum, native(cv))
				allowed[v] = true
			}
		}
		if example != "" && (len(s.Enum) == 0 || allowed[example]) {
			if ev, err := synth.Coerce(base, example); err == nil {
				s.Example = native(ev)
			}
		}
		ref = openapi3.NewSchemaRef("", s)
	}
	if arr || isArray {
		return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "array", Items: ref, Description: info})
	}
	return ref
}

func primitiveType(base string) string {
	switch base {
	case apidoc.TypeInteger:
		return "integer"
	case apidoc.TypeDecimal:
		return "number"
	case apidoc.TypeBoolean:
		return "boolean"
	case apidoc.TypeObject:
		return "object"
	default:
		return "string"
	}
}

func (x *exporter) operation(r apidoc.EndpointRef, ep *apidoc.Endpoint) *openapi3.Operation {
	op := &openapi3.Operation{
		Summary:     ep.Summary,
		Description: ep.Info,
		OperationID: pathutil.FunctionSymbol(string(r.Method), r.URI),
		Responses:   openapi3.Responses{},
	}

	var form *openapi3.Schema
	for key, p := range ep.Params.All() {
		switch p.Source {
		case apidoc.SourcePath, apidoc.SourceQuery, apidoc.SourceHeader:
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
				Name:        key,
				In:          p.Source,
				Description: p.Info,
				Required:    p.Required,
				Schema:      x.schema(p.Type, p.IsArray, "", p.Values, ""),
			}})
		case apidoc.SourceFormData:
			if form == nil {
				form = &openapi3.Schema{Type: "object", Properties: openapi3.Schemas{}}
			}
			form.Properties[key] = x.schema(p.Type, p.IsArray, p.Info, p.Values, "")
			if p.Required {
				form.Required = append(form.Required, key)
			}
		}
	}

	content := openapi3.Content{}
	required := false
	if _, body, ok := ep.Body(); ok {
		ct := body.ContentType
		if ct == "" {
			ct = jsonType
		}
		content[ct] = &openapi3.MediaType{Schema: x.schema(body.Type, body.IsArray, "", body.Values, "")}
		required = body.Required
	}
	if form != nil {
		content[formURLEncoded] = &openapi3.MediaType{Schema: openapi3.NewSchemaRef("", form)}
		required = required || len(form.Required) > 0
	}
	if len(content) > 0 {
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Description: ep.Info,
			Required:    required,
			Content:     content,
		}}
	}

	for code, resp := range ep.Responses.All() {
		op.Responses[code] = &openapi3.ResponseRef{Value: x.response(resp)}
	}
	if len(op.Responses) == 0 {
		desc := "No response documented"
		op.Responses["default"] = &openapi3.ResponseRef{Value: &openapi3.Response{Description: &desc}}
	}
	return op
}

func (x *exporter) response(resp *apidoc.Response) *openapi3.Response {
	desc := resp.Summary
	out := &openapi3.Response{Description: &desc}
	if resp.Headers.Len() > 0 {
		out.Headers = openapi3.Headers{}
		for k, v := range resp.Headers.All() {
			s := &openapi3.Schema{Type: "string"}
			if v != "" {
				s.Example = v
			}
			out.Headers[k] = &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
				Schema: openapi3.NewSchemaRef("", s),
			}}}
		}
	}

	ct := resp.ContentType
	switch {
	case x.doc.Models.Has(resp.Model):
		if ct == "" {
			ct = jsonType
		}
		mt := &openapi3.MediaType{Schema: openapi3.NewSchemaRef(schemaPrefix+resp.Model, x.schemas[resp.Model].Value)}
		if v, err := synth.Synthesize(resp.Model, x.doc.Models); err == nil {
			mt.Example = native(v)
		}
		out.Content = openapi3.Content{ct: mt}
	case resp.Example != "":
		if ct == "" {
			ct = "text/plain"
		}
		out.Content = openapi3.Content{ct: &openapi3.MediaType{
			Schema:  openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string"}),
			Example: resp.Example,
		}}
	}
	return out
}

// native converts v to the values encoding/json produces, which is what
// schema example validation understands.
func native(v synth.Value) any {
	switch v.Kind() {
	case synth.KindNumber:
		return v.Number()
	case synth.KindArray:
		out := make([]any, 0, v.Len())
		for _, item := range v.Items() {
			out = append(out, native(item))
		}
		return out
	case synth.KindObject:
		out := make(map[string]any, v.Len())
		for k, f := range v.Fields() {
			out[k] = native(f)
		}
		return out
	}
	return v.Interface()
}
