package openapi

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	invyaml "github.com/invopop/yaml"
)

// fromSwagger2 converts a Swagger 2 description to OpenAPI 3. The YAML is
// read with invopop/yaml, the reader kin-openapi uses itself, so the JSON
// decoders of the openapi2 types run and $ref values survive.
func fromSwagger2(raw []byte, log *slog.Logger) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := invyaml.Unmarshal(raw, &v2); err != nil {
		return nil, err
	}
	if n := fitBodies(&v2); n > 0 {
		log.Debug("swagger 2 request bodies reshaped for conversion", "operations", n)
	}
	return openapi2conv.ToV3(&v2)
}

// fitBodies reshapes the operations openapi2conv refuses. Both shapes also
// break the document rule of one body per endpoint:
//   - several body parameters become one object body with a property each;
//   - a body parameter next to formData parameters becomes a form field.
//
// It returns the number of operations changed.
func fitBodies(doc *openapi2.T) int {
	changed := 0
	for _, item := range doc.Paths {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if fitOperation(op) {
				changed++
			}
		}
	}
	return changed
}

func fitOperation(op *openapi2.Operation) bool {
	var bodies []*openapi2.Parameter
	form := false
	for _, p := range op.Parameters {
		switch {
		case p == nil:
		case strings.EqualFold(p.In, "body"):
			bodies = append(bodies, p)
		case strings.EqualFold(p.In, "formData"):
			form = true
		}
	}
	if len(bodies) == 0 || len(bodies) == 1 && !form {
		return false
	}

	if form {
		for _, p := range bodies {
			asFormField(p)
		}
		if !slices.Contains(op.Consumes, "multipart/form-data") {
			op.Consumes = append(op.Consumes, "multipart/form-data")
		}
		return true
	}

	merged := &openapi2.Parameter{In: "body", Name: "body"}
	obj := openapi3.NewObjectSchema()
	params := openapi2.Parameters{merged}
	for _, p := range op.Parameters {
		if p == nil {
			continue
		}
		if !strings.EqualFold(p.In, "body") {
			params = append(params, p)
			continue
		}
		name := fieldName(p)
		obj.WithPropertyRef(name, paramSchema(p))
		if p.Required {
			obj.Required = append(obj.Required, name)
			merged.Required = true
		}
	}
	merged.Schema = openapi3.NewSchemaRef("", obj)
	op.Parameters = params
	return true
}

func fieldName(p *openapi2.Parameter) string {
	if p.Name == "" {
		return "field"
	}
	return p.Name
}

// paramSchema is the schema of a body parameter, or one built from the
// inline type of any other parameter. Untyped parameters are strings.
func paramSchema(p *openapi2.Parameter) *openapi3.SchemaRef {
	if p.Schema != nil {
		return p.Schema
	}
	if p.Type == "" {
		return openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	}
	return openapi3.NewSchemaRef("", &openapi3.Schema{Type: p.Type, Format: p.Format, Items: p.Items})
}

// asFormField turns a body parameter into a formData field in place. A form
// field cannot carry a referenced or object schema; those become strings.
func asFormField(p *openapi2.Parameter) {
	typ, format, items := openapi3.TypeString, "", (*openapi3.SchemaRef)(nil)
	if s := p.Schema; s != nil && s.Ref == "" && s.Value != nil && s.Value.Type != "" && s.Value.Type != openapi3.TypeObject {
		typ, format, items = s.Value.Type, s.Value.Format, s.Value.Items
	}
	p.In, p.Name, p.Schema = "formData", fieldName(p), nil
	p.Type, p.Format, p.Items = typ, format, items
}
