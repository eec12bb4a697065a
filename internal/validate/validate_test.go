package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc(t *testing.T) *apidoc.Document {
	t.Helper()
	d := apidoc.New("Sensor API", "1.0")
	d.Address = "http://192.168.4.1"
	d.SetHeader("X-Device", "esp32")
	require.NoError(t, d.AddModel("Reading", apidoc.NewModel("")))
	require.NoError(t, d.AddAttribute("Reading", "value", &apidoc.Attribute{Type: apidoc.TypeDecimal, Example: "21.5"}))
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/readings/{id}", apidoc.NewEndpoint("read one")))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/readings/{id}", "id", &apidoc.Parameter{Type: apidoc.TypeInteger, Source: apidoc.SourcePath}))
	resp := apidoc.NewResponse("ok")
	resp.Model = "Reading"
	require.NoError(t, d.AddResponse(apidoc.MethodGet, "/readings/{id}", "200", resp))
	return d
}

func paths(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Path)
	}
	return out
}

func TestDocumentValid(t *testing.T) {
	r := Document(validDoc(t))
	assert.Empty(t, r.Issues)
	assert.True(t, r.Valid())
	assert.NoError(t, r.Err())
}

func TestMetadata(t *testing.T) {
	r := Metadata("", " ", "ftp://x")
	errs := r.Filter(SeverityError)
	assert.Equal(t, []string{"name", "version"}, paths(errs))
	warns := r.Filter(SeverityWarning)
	require.Len(t, warns, 1)
	assert.Equal(t, "address", warns[0].Path)

	r = Metadata("n", "1.2.x", "")
	assert.True(t, r.Valid())
	assert.Len(t, r.Filter(SeverityWarning), 1)
}

func TestPlaceholderBijection(t *testing.T) {
	d := validDoc(t)
	require.NoError(t, d.AddEndpoint(apidoc.MethodPut, "/a/{x}/{y}", apidoc.NewEndpoint("")))
	require.NoError(t, d.AddParameter(apidoc.MethodPut, "/a/{x}/{y}", "x", &apidoc.Parameter{Source: apidoc.SourcePath}))
	require.NoError(t, d.AddParameter(apidoc.MethodPut, "/a/{x}/{y}", "z", &apidoc.Parameter{Source: apidoc.SourcePath}))

	err := Document(d).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	msgs := make([]string, 0, len(verr.Issues))
	for _, i := range verr.Issues {
		msgs = append(msgs, i.Message)
	}
	joined := strings.Join(msgs, "\n")
	assert.Contains(t, joined, "placeholder {y} has no path parameter")
	assert.Contains(t, joined, `path parameter "z" has no {z} placeholder`)
}

func TestDuplicatePlaceholder(t *testing.T) {
	d := validDoc(t)
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/p/{id}/q/{id}", apidoc.NewEndpoint("")))
	require.NoError(t, d.AddParameter(apidoc.MethodGet, "/p/{id}/q/{id}", "id", &apidoc.Parameter{Source: apidoc.SourcePath}))
	errs := Document(d).Filter(SeverityError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "more than once")
}

func TestEndpointChecks(t *testing.T) {
	d := validDoc(t)
	ep := apidoc.NewEndpoint("")
	ep.Params.Set("a", &apidoc.Parameter{Type: "Nope", Source: apidoc.SourceBody})
	ep.Params.Set("b", &apidoc.Parameter{Type: apidoc.TypeString, Source: apidoc.SourceBody})
	ep.Params.Set("c", &apidoc.Parameter{Type: apidoc.TypeString, Source: "cookie"})
	ep.Params.Set("1d", &apidoc.Parameter{Type: apidoc.TypeString, Source: apidoc.SourceQuery})
	ep.Responses.Set("299", &apidoc.Response{Summary: ""})
	ep.Responses.Set("201", &apidoc.Response{Summary: "made", Model: "Ghost"})

	r := Endpoint(d, apidoc.MethodPost, "items", ep)
	got := r.Filter(SeverityError)
	assert.ElementsMatch(t, []string{
		"endpoints.POST.items",
		"endpoints.POST.items",
		"endpoints.POST.items.params.a",
		"endpoints.POST.items.params.c",
		"endpoints.POST.items.params.1d",
		"endpoints.POST.items.response.299",
		"endpoints.POST.items.response.299",
		"endpoints.POST.items.response.201",
	}, paths(got))
}

func TestPathParameterMustBeRequired(t *testing.T) {
	d := validDoc(t)
	ep, _ := d.Endpoint(apidoc.MethodGet, "/readings/{id}")
	p, _ := ep.Params.Get("id")
	p.Required = false
	errs := Document(d).Filter(SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].Field)
}

func TestModelChecks(t *testing.T) {
	d := validDoc(t)
	require.NoError(t, d.AddModel("string", apidoc.NewModel("")))
	require.NoError(t, d.AddModel("Box", apidoc.NewModel("")))
	require.NoError(t, d.AddAttribute("Box", "n", &apidoc.Attribute{Type: apidoc.TypeInteger, Example: "many", Values: []string{"1", "two"}}))
	require.NoError(t, d.AddAttribute("Box", "x", &apidoc.Attribute{Type: "Missing"}))

	r := Document(d)
	errs := r.Filter(SeverityError)
	assert.Equal(t, []string{"models.string", "models.Box.attributes.x"}, paths(errs))
	warns := r.Filter(SeverityWarning)
	assert.Equal(t, []string{"models.string", "models.Box.attributes.n", "models.Box.attributes.n"}, paths(warns))
	assert.Equal(t, "example", warns[1].Field)
	assert.Equal(t, "two", warns[2].Value)
}

func TestCycleIsWarning(t *testing.T) {
	d := validDoc(t)
	require.NoError(t, d.AddModel("A", apidoc.NewModel("")))
	require.NoError(t, d.AddModel("B", apidoc.NewModel("")))
	require.NoError(t, d.AddAttribute("A", "b", &apidoc.Attribute{Type: "B"}))
	require.NoError(t, d.AddAttribute("B", "a", &apidoc.Attribute{Type: "A", IsArray: true}))

	r := Document(d)
	assert.True(t, r.Valid())
	assert.Equal(t, []string{"models.A", "models.B"}, paths(r.Filter(SeverityWarning)))
}

func TestHeaderNames(t *testing.T) {
	d := validDoc(t)
	d.SetHeader("Bad Header", "v")
	errs := Document(d).Filter(SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, "headers.Bad Header", errs[0].Path)
}

func TestIssueString(t *testing.T) {
	assert.Equal(t, "✗ name: name is required", Issue{Path: "name", Message: "name is required"}.String())
	assert.Equal(t, "⚠ x: y", Issue{Path: "x", Message: "y", Severity: SeverityWarning}.String())
	assert.Equal(t, "warning", SeverityWarning.String())
}

func TestSelectionSkipsOtherEndpoints(t *testing.T) {
	d := validDoc(t)
	require.NoError(t, d.AddEndpoint(apidoc.MethodGet, "/status", apidoc.NewEndpoint("status")))
	require.NoError(t, d.DeleteModel("Reading"))

	assert.False(t, Document(d).Valid())
	r := Selection(d, []apidoc.EndpointRef{{Method: apidoc.MethodGet, URI: "/status"}})
	assert.True(t, r.Valid(), r.Issues)
}
