package openapi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitBodiesMergesBodyParameters(t *testing.T) {
	t.Parallel()
	op := &openapi2.Operation{Parameters: openapi2.Parameters{
		{In: "query", Name: "dry", Type: "boolean"},
		{In: "body", Name: "user", Required: true, Schema: openapi3.NewSchemaRef("#/definitions/User", nil)},
		{In: "body", Name: "note", Type: "string"},
	}}
	doc := &openapi2.T{Paths: map[string]*openapi2.PathItem{"/users": {Post: op}}}

	assert.Equal(t, 1, fitBodies(doc))
	require.Len(t, op.Parameters, 2)
	body := op.Parameters[0]
	assert.Equal(t, "body", body.In)
	assert.True(t, body.Required)
	obj := body.Schema.Value
	assert.Equal(t, openapi3.TypeObject, obj.Type)
	assert.Equal(t, []string{"user"}, obj.Required)
	assert.Equal(t, "#/definitions/User", obj.Properties["user"].Ref)
	assert.Equal(t, openapi3.TypeString, obj.Properties["note"].Value.Type)
	assert.Equal(t, "dry", op.Parameters[1].Name)
}

func TestFitBodiesTurnsBodyIntoFormField(t *testing.T) {
	t.Parallel()
	op := &openapi2.Operation{
		Consumes: []string{"application/x-www-form-urlencoded"},
		Parameters: openapi2.Parameters{
			{In: "formData", Name: "name", Type: "string"},
			{In: "body", Name: "meta", Schema: openapi3.NewSchemaRef("", openapi3.NewObjectSchema())},
			{In: "body", Name: "count", Schema: openapi3.NewSchemaRef("", openapi3.NewIntegerSchema())},
		},
	}
	doc := &openapi2.T{Paths: map[string]*openapi2.PathItem{"/upload": {Put: op}}}

	assert.Equal(t, 1, fitBodies(doc))
	meta, count := op.Parameters[1], op.Parameters[2]
	assert.Equal(t, "formData", meta.In)
	assert.Equal(t, openapi3.TypeString, meta.Type)
	assert.Nil(t, meta.Schema)
	assert.Equal(t, "formData", count.In)
	assert.Equal(t, openapi3.TypeInteger, count.Type)
	assert.Contains(t, op.Consumes, "multipart/form-data")
}

func TestFitBodiesLeavesConvertibleOperations(t *testing.T) {
	t.Parallel()
	one := &openapi2.Operation{Parameters: openapi2.Parameters{
		{In: "path", Name: "id", Type: "string", Required: true},
		{In: "body", Name: "pet", Schema: openapi3.NewSchemaRef("#/definitions/Pet", nil)},
	}}
	form := &openapi2.Operation{Parameters: openapi2.Parameters{
		{In: "formData", Name: "file", Type: "file"},
		nil,
	}}
	doc := &openapi2.T{Paths: map[string]*openapi2.PathItem{
		"/pets/{id}": {Put: one},
		"/files":     {Post: form},
		"/empty":     nil,
	}}
	assert.Zero(t, fitBodies(doc))
	assert.Equal(t, "#/definitions/Pet", one.Parameters[1].Schema.Ref)
}

func TestFromSwagger2KeepsRefs(t *testing.T) {
	t.Parallel()
	raw := []byte(`
swagger: "2.0"
info: {title: Refs, version: "1"}
definitions:
  Pet:
    type: object
    properties:
      name: {type: string}
paths:
  /pets:
    post:
      consumes: [application/json]
      parameters:
      - {in: body, name: pet, required: true, schema: {$ref: '#/definitions/Pet'}}
      - {in: body, name: tag, schema: {type: string}}
      responses:
        "201": {description: created}
`)
	spec, err := fromSwagger2(raw, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Contains(t, spec.Components.Schemas, "Pet")

	op := spec.Paths["/pets"].Post
	require.NotNil(t, op.RequestBody)
	mt := op.RequestBody.Value.Content.Get("application/json")
	require.NotNil(t, mt)
	assert.Equal(t, "#/components/schemas/Pet", mt.Schema.Value.Properties["pet"].Ref)
	assert.Equal(t, []string{"pet"}, mt.Schema.Value.Required)
}
