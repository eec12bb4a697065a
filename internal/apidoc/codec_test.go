package apidoc

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsOrder(t *testing.T) {
	d := New("Order API", "2.1")
	d.Address = "http://10.0.0.2"
	d.SetHeader("X-Key", "k")
	require.NoError(t, d.AddModel("Zeta", NewModel("last letter")))
	require.NoError(t, d.AddAttribute("Zeta", "z", &Attribute{Type: TypeString}))
	require.NoError(t, d.AddAttribute("Zeta", "a", &Attribute{Type: TypeInteger, Required: true, Values: []string{"1", "2"}}))
	require.NoError(t, d.AddModel("Alpha", NewModel("")))
	require.NoError(t, d.AddEndpoint(MethodPost, "/z", NewEndpoint("z")))
	require.NoError(t, d.AddParameter(MethodPost, "/z", "q2", &Parameter{Source: SourceQuery}))
	require.NoError(t, d.AddParameter(MethodPost, "/z", "q1", &Parameter{Source: SourceHeader}))
	require.NoError(t, d.AddResponse(MethodPost, "/z", "201", NewResponse("created")))
	require.NoError(t, d.AddResponse(MethodPost, "/z", "200", NewResponse("ok")))
	require.NoError(t, d.AddEndpoint(MethodGet, "/a", NewEndpoint("a")))

	raw, err := Encode(d)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "}\n"))
	assert.Contains(t, string(raw), "\n  \"name\": \"Order API\"")

	back, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha"}, slices.Collect(back.Models.Keys()))
	zeta, _ := back.Model("Zeta")
	assert.Equal(t, []string{"z", "a"}, slices.Collect(zeta.Attributes.Keys()))
	a, _ := zeta.Attributes.Get("a")
	assert.True(t, a.Required)
	assert.Equal(t, []string{"1", "2"}, a.Values)
	assert.Equal(t, d.EndpointRefs(), back.EndpointRefs())

	ep, _ := back.Endpoint(MethodPost, "/z")
	assert.Equal(t, []string{"q2", "q1"}, slices.Collect(ep.Params.Keys()))
	assert.Equal(t, []string{"201", "200"}, slices.Collect(ep.Responses.Keys()))

	again, err := Encode(back)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again))

	f1, err := Fingerprint(d)
	require.NoError(t, err)
	f2, err := Fingerprint(back)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	require.NoError(t, back.DeleteEndpoint(MethodGet, "/a"))
	f3, _ := Fingerprint(back)
	assert.NotEqual(t, f1, f3)
}

const legacyDoc = `{
  "name": "Legacy",
  "version": "0.1",
  "info": "",
  "address": "http://192.168.4.1",
  "headers": {},
  "auth": {"type": null, "params": {}},
  "models": {
    "Reading": {
      "info": "",
      "attributes": {
        "value": {"type": "decimal", "required": 1, "info": "", "example": 21.5},
        "tags": {"type": "array[string]", "required": 0, "info": ""}
      }
    }
  },
  "endpoints": {
    "get": {
      "/readings/{id}": {
        "summary": "Read one",
        "info": "",
        "params": {"id": {"type": "integer", "source": "path", "required": 1}},
        "response": {"200": {"summary": "ok", "model": "Reading", "headers": {"X-Sensor": "dht22"}}}
      }
    }
  },
  "extra": "ignored"
}`

func TestDecodeLegacyShapes(t *testing.T) {
	d, err := Decode([]byte(legacyDoc))
	require.NoError(t, err)
	assert.Equal(t, "Legacy", d.Name)
	assert.Equal(t, "", d.Auth.Type)

	m, ok := d.Model("Reading")
	require.True(t, ok)
	v, _ := m.Attributes.Get("value")
	assert.True(t, v.Required)
	assert.Equal(t, "21.5", v.Example)
	tags, _ := m.Attributes.Get("tags")
	assert.Equal(t, TypeString, tags.Type)
	assert.True(t, tags.IsArray)
	assert.False(t, tags.Required)

	ep, ok := d.Endpoint(MethodGet, "/readings/{id}")
	require.True(t, ok)
	id, _ := ep.Params.Get("id")
	assert.True(t, id.Required)
	r, _ := ep.Responses.Get("200")
	h, _ := r.Headers.Get("X-Sensor")
	assert.Equal(t, "dht22", h)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(""))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"models": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models: expected object")
	_, err = Decode([]byte(`{"models": {"M": {"attributes": {"a": {"required": "maybe"}}}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models.M.attributes.a.required")
	_, err = Decode([]byte(`{"name": `))
	assert.Error(t, err)
}

func TestDecodeNormalizesParameters(t *testing.T) {
	d, err := Decode([]byte(`{"name": "N", "version": "1", "endpoints": {"get": {"/users/{userId}": {
		"params": {"userId": {"type": "string", "source": "path", "required": false}, "q": {}}}}}}`))
	require.NoError(t, err)
	ep, ok := d.Endpoint(MethodGet, "/users/{userId}")
	require.True(t, ok)
	id, _ := ep.Params.Get("userId")
	assert.True(t, id.Required)
	q, _ := ep.Params.Get("q")
	assert.Equal(t, SourceQuery, q.Source)
	assert.Equal(t, TypeString, q.Type)

	_, err = Decode([]byte(`{"name": "N", "version": "1", "endpoints": {"post": {"/x": {
		"params": {"a": {"type": "string", "source": "body"}, "b": {"type": "string", "source": "body"}}}}}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "endpoints.POST./x.params.b")
}
