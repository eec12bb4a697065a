package clientemitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsDoc(t *testing.T) *apidoc.Document {
	t.Helper()
	d := apidoc.New("Shop API", "1")
	d.Address = "http://10.0.0.5"
	d.SetHeader("X-Shop", "main")
	require.NoError(t, d.AddModel("Item", apidoc.NewModel("")))
	require.NoError(t, d.AddAttribute("Item", "sku", &apidoc.Attribute{Type: apidoc.TypeString, Example: "A-1"}))
	require.NoError(t, d.AddAttribute("Item", "qty", &apidoc.Attribute{Type: apidoc.TypeInteger}))

	require.NoError(t, d.AddEndpoint(apidoc.MethodPost, "/items", apidoc.NewEndpoint("Create item")))
	require.NoError(t, d.AddParameter(apidoc.MethodPost, "/items", "", &apidoc.Parameter{Type: "Item", Source: apidoc.SourceBody}))
	require.NoError(t, d.AddResponse(apidoc.MethodPost, "/items", "201", apidoc.NewResponse("created")))

	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/items/{id}", apidoc.NewEndpoint("Read item")))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/items/{id}", "id", &apidoc.Parameter{Type: apidoc.TypeInteger, Source: apidoc.SourcePath}))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/items/{id}", "fields", &apidoc.Parameter{Source: apidoc.SourceQuery}))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/items/{id}", "verbose", &apidoc.Parameter{Source: apidoc.SourceQuery}))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/items/{id}", "X-Token", &apidoc.Parameter{Source: apidoc.SourceHeader}))
	ok := apidoc.NewResponse("ok")
	ok.Model = "Item"
	require.NoError(t, d.AddResponse(apidoc.MethodGet, "/items/{id}", "200", ok))

	require.NoError(t, d.AddEndpoint(apidoc.MethodDelete, "/items/{id}", apidoc.NewEndpoint("")))
	require.NoError(t, d.AddParameter(apidoc.MethodDelete, "/items/{id}", "id", &apidoc.Parameter{Source: apidoc.SourcePath}))
	return d
}

func generate(t *testing.T, d *apidoc.Document, opts emitter.Options) map[string]string {
	t.Helper()
	opts.OutDir = t.TempDir()
	opts.Name = "shop_api"
	res, err := New(d, opts).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.OutDir, "shop_api_client"), res.Path)

	out := map[string]string{}
	for _, pf := range res.Planned {
		raw, err := os.ReadFile(filepath.Join(opts.OutDir, pf.RelPath))
		require.NoError(t, err)
		out[pf.RelPath] = string(raw)
	}
	return out
}

func section(src, start string) string {
	i := strings.Index(src, start)
	if i < 0 {
		return ""
	}
	rest := src[i:]
	if j := strings.Index(rest, "\n}\n"); j >= 0 {
		return rest[:j+3]
	}
	return rest
}

func TestModelBodyBuildsJSONDocument(t *testing.T) {
	files := generate(t, itemsDoc(t), emitter.Options{})
	require.Len(t, files, 3)
	src := files["shop_api_client/api_calls.cpp"]
	fn := section(src, "bool POST_items(void)\n")
	require.NotEmpty(t, fn)

	doc := strings.Index(fn, "\tJsonDocument _doc;\n")
	sku := strings.Index(fn, "\t_doc[\"sku\"] = \"A-1\";\n")
	qty := strings.Index(fn, "\t_doc[\"qty\"] = 0;\n")
	ser := strings.Index(fn, "\tserializeJson(_doc, _body);\n")
	ct := strings.Index(fn, "\t_http.addHeader(\"Content-Type\", \"application/json\");\n")
	send := strings.Index(fn, "\tint _code = _http.POST(_body);\n")
	for _, i := range []int{doc, sku, qty, ser, ct, send} {
		require.GreaterOrEqual(t, i, 0, fn)
	}
	assert.Less(t, doc, sku)
	assert.Less(t, sku, qty)
	assert.Less(t, qty, ser)
	assert.Less(t, ser, send)
	assert.Less(t, ct, send)
	assert.Contains(t, fn, "\t_http.addHeader(\"X-Shop\", \"main\");\n")
	assert.Contains(t, fn, "Serial.println(\"! Error sending request (POST /items)\");")
}

func TestGetWithPathQueryAndResponseModel(t *testing.T) {
	files := generate(t, itemsDoc(t), emitter.Options{Comments: true})
	src := files["shop_api_client/api_calls.cpp"]
	assert.Contains(t, src, "#define API_HOST_ADDRESS \"http://10.0.0.5\"\n")

	fn := section(src, "bool GET_items_id(String id)\n")
	require.NotEmpty(t, fn)
	assert.Contains(t, fn, "\tString _url = String(API_HOST_ADDRESS \"/items/\") + id;\n")
	assert.Contains(t, fn, "\t_url += \"?fields=&verbose=\";\n")
	assert.Contains(t, fn, "\t_http.addHeader(\"X-Token\", \"\");\n")
	assert.Contains(t, fn, "\tint _code = _http.GET();\n")
	assert.Contains(t, fn, "\t\t// sku (string)\n\t\t// qty (integer)\n")
	assert.Contains(t, fn, "deserializeJson(_respDoc, _resp)")

	assert.Contains(t, src, "/*\n * Read item\n */\nbool GET_items_id(String id)\n")
	assert.Contains(t, src, "\tint _code = _http.sendRequest(\"DELETE\");\n")

	h := files["shop_api_client/api_calls.h"]
	assert.Contains(t, h, "bool POST_items(void);\nbool GET_items_id(String id);\nbool DELETE_items_id(String id);\n")
	assert.Contains(t, files["shop_api_client/shop_api_client.ino"], "#include \"api_calls.h\"")
}

func TestSubsetAndNoComments(t *testing.T) {
	d := itemsDoc(t)
	files := generate(t, d, emitter.Options{Endpoints: []apidoc.EndpointRef{{Method: apidoc.MethodDelete, URI: "/items/{id}"}}})
	src := files["shop_api_client/api_calls.cpp"]
	assert.NotContains(t, src, "POST_items")
	assert.NotContains(t, src, "/*")
	assert.Contains(t, src, "bool DELETE_items_id(String id)\n{\n")
}

func TestDeterministic(t *testing.T) {
	d := itemsDoc(t)
	a := generate(t, d, emitter.Options{Comments: true})
	b := generate(t, d.Clone(), emitter.Options{Comments: true})
	assert.Equal(t, a, b)
}

func TestPlaceholderKeepsCase(t *testing.T) {
	d := apidoc.New("Shop API", "1")
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/users/{userId}", apidoc.NewEndpoint("")))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/users/{userId}", "userId", &apidoc.Parameter{Source: apidoc.SourcePath}))
	files := generate(t, d, emitter.Options{})

	src := files["shop_api_client/api_calls.cpp"]
	assert.Contains(t, src, "bool GET_users_userid(String userId)\n{\n")
	assert.Contains(t, src, "\tString _url = String(API_HOST_ADDRESS \"/users/\") + userId;\n")
	assert.Contains(t, files["shop_api_client/api_calls.h"], "bool GET_users_userid(String userId);\n")
}

func TestPlaceholderNamedLikeLocal(t *testing.T) {
	d := apidoc.New("Shop API", "1")
	for _, uri := range []string{"/countries/{code}", "/http/{url}/{resp}"} {
		require.NoError(t, d.AddEndpoint(apidoc.MethodPost, uri, apidoc.NewEndpoint("")))
		for _, it := range strings.Split(strings.NewReplacer("{", "", "}", "").Replace(uri), "/")[2:] {
			require.NoError(t, d.AddParameter(apidoc.MethodPost, uri, it, &apidoc.Parameter{Source: apidoc.SourcePath}))
		}
		require.NoError(t, d.AddParameter(apidoc.MethodPost, uri, "", &apidoc.Parameter{Type: apidoc.TypeString, Source: apidoc.SourceBody}))
	}
	src := generate(t, d, emitter.Options{})["shop_api_client/api_calls.cpp"]

	fn := section(src, "bool POST_countries_code(String code)\n")
	require.NotEmpty(t, fn)
	assert.Contains(t, fn, "String(API_HOST_ADDRESS \"/countries/\") + code;\n")
	assert.Contains(t, fn, "\tint _code = _http.POST(_body);\n")
	assert.NotContains(t, fn, "int code")

	fn = section(src, "bool POST_http_url_resp(String url, String resp)\n")
	require.NotEmpty(t, fn)
	assert.Contains(t, fn, "+ url + \"/\" + resp;\n")
	for _, decl := range []string{"String url =", "HTTPClient http;", "String resp =", "String body"} {
		assert.NotContains(t, fn, decl)
	}
}
