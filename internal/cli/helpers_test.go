package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/store"
)

// runCLI executes the root command and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func sensorDoc(t *testing.T, address string) *apidoc.Document {
	t.Helper()
	d := apidoc.New("Sensor API", "1.0")
	d.Address = address
	d.SetHeader("X-Device", "esp32")
	must(t, d.AddModel("Reading", apidoc.NewModel("one sample")))
	must(t, d.AddAttribute("Reading", "value", &apidoc.Attribute{Type: apidoc.TypeDecimal, Example: "21.5", Required: true}))

	must(t, d.AddEndpoint(apidoc.MethodGet, "/readings/{id}", apidoc.NewEndpoint("read one")))
	must(t, d.AddParameter(apidoc.MethodGet, "/readings/{id}", "id", &apidoc.Parameter{Type: apidoc.TypeInteger, Source: apidoc.SourcePath}))
	one := apidoc.NewResponse("ok")
	one.Model = "Reading"
	must(t, d.AddResponse(apidoc.MethodGet, "/readings/{id}", "200", one))

	must(t, d.AddEndpoint(apidoc.MethodGet, "/readings", apidoc.NewEndpoint("list")))
	must(t, d.AddParameter(apidoc.MethodGet, "/readings", "limit", &apidoc.Parameter{Type: apidoc.TypeInteger, Source: apidoc.SourceQuery}))
	all := apidoc.NewResponse("ok")
	all.Example = "[]"
	all.ContentType = "application/json"
	must(t, d.AddResponse(apidoc.MethodGet, "/readings", "200", all))

	must(t, d.AddEndpoint(apidoc.MethodPost, "/readings", apidoc.NewEndpoint("add")))
	must(t, d.AddParameter(apidoc.MethodPost, "/readings", "", &apidoc.Parameter{Type: "Reading", Source: apidoc.SourceBody, ContentType: "application/json", Required: true}))
	must(t, d.AddResponse(apidoc.MethodPost, "/readings", "201", apidoc.NewResponse("created")))
	return d
}

// seed stores d below baseDir.
func seed(t *testing.T, baseDir string, d *apidoc.Document) string {
	t.Helper()
	st, err := store.Open(baseDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	path, err := st.Save(d)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
