// Package clientemitter renders an ESP32 Arduino sketch with one HTTPClient
// call function per endpoint.
//
// Layout:
//
//	<name>_client/
//	  <name>_client.ino   WiFi setup and entry points
//	  api_calls.h         function declarations
//	  api_calls.cpp       function bodies and API_HOST_ADDRESS
package clientemitter

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/emitter/firmware"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/synth"
)

// Suffix is appended to the artifact base name.
const Suffix = "_client"

// Emitter renders the firmware client.
type Emitter struct {
	doc  *apidoc.Document
	opts emitter.Options
}

// New returns a firmware client emitter for d.
func New(d *apidoc.Document, opts emitter.Options) emitter.Emitter {
	return &Emitter{doc: d, opts: opts}
}

// Generate writes the <name>_client directory.
func (e *Emitter) Generate(ctx context.Context) (*emitter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := emitter.Selected(e.doc, e.opts.Endpoints)
	if err != nil {
		return nil, err
	}
	dir := e.opts.Name + Suffix
	files := map[string][]byte{
		path.Join(dir, dir+".ino"):      e.sketch(),
		path.Join(dir, "api_calls.h"):   e.header(refs),
		path.Join(dir, "api_calls.cpp"): e.source(refs),
	}

	res := &emitter.Result{Path: filepath.Join(e.opts.OutDir, dir), Planned: emitter.Plan(files)}
	if e.opts.DryRun {
		return res, nil
	}
	if _, err := emitter.WriteFiles(e.opts.OutDir, files); err != nil {
		return nil, err
	}
	e.opts.Log().Debug("firmware client written", "path", res.Path, "endpoints", len(refs))
	return res, nil
}

func (e *Emitter) includes(b *strings.Builder) {
	b.WriteString("#include <WiFi.h>\n#include <HTTPClient.h>\n")
	if e.doc.Models.Len() > 0 {
		b.WriteString("#include <ArduinoJson.h>\n")
	}
}

func (e *Emitter) sketch() []byte {
	var b strings.Builder
	e.includes(&b)
	b.WriteString("#include \"api_calls.h\"\n\n")
	b.WriteString(firmware.Credentials)
	b.WriteByte('\n')
	b.WriteString(firmware.WiFiSetup)
	b.WriteString("\nvoid setup()\n{\n")
	b.WriteString("\tSerial.begin(115200);\n")
	b.WriteString("\twifi_setup();\n\n")
	b.WriteString("\t// Call the functions declared in api_calls.h from here.\n")
	b.WriteString("}\n\nvoid loop() {}\n")
	return []byte(b.String())
}

func (e *Emitter) header(refs []apidoc.EndpointRef) []byte {
	var b strings.Builder
	b.WriteString("#ifndef API_CALLS_H\n#define API_CALLS_H 1\n\n")
	e.includes(&b)
	b.WriteByte('\n')
	for _, r := range refs {
		b.WriteString(signature(r))
		b.WriteString(";\n")
	}
	b.WriteString("\n#endif\n")
	return []byte(b.String())
}

func (e *Emitter) source(refs []apidoc.EndpointRef) []byte {
	var b strings.Builder
	b.WriteString("#include \"api_calls.h\"\n\n")
	fmt.Fprintf(&b, "#define API_HOST_ADDRESS \"%s\"\n", pathutil.CString(e.doc.Address))
	for _, r := range refs {
		ep, _ := e.doc.Endpoint(r.Method, r.URI)
		b.WriteByte('\n')
		e.function(&b, r, ep)
	}
	return []byte(b.String())
}

// signature declares the call function; path placeholders become String
// arguments in URI order.
func signature(r apidoc.EndpointRef) string {
	items := pathutil.ExtractPathItems(r.URI)
	args := "void"
	if len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, "String "+pathutil.LocalSymbol(it))
		}
		args = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("bool %s(%s)", pathutil.FunctionSymbol(string(r.Method), r.URI), args)
}

// urlExpr concatenates the host, the literal URI parts and the placeholder
// arguments.
func urlExpr(uri string) string {
	items := pathutil.ExtractPathItems(uri)
	parts := strings.Split(pathutil.StripPathItemNames(uri), "{}")
	var b strings.Builder
	fmt.Fprintf(&b, "String(API_HOST_ADDRESS \"%s\")", pathutil.CString(parts[0]))
	for i, it := range items {
		b.WriteString(" + ")
		b.WriteString(pathutil.LocalSymbol(it))
		if i+1 < len(parts) && parts[i+1] != "" {
			fmt.Fprintf(&b, " + \"%s\"", pathutil.CString(parts[i+1]))
		}
	}
	return b.String()
}

func queryString(ep *apidoc.Endpoint, source string) string {
	var keys []string
	for _, el := range ep.ParamsBySource(source) {
		keys = append(keys, el.Key+"=")
	}
	return strings.Join(keys, "&")
}

func (e *Emitter) function(b *strings.Builder, r apidoc.EndpointRef, ep *apidoc.Endpoint) {
	if e.opts.Comments {
		b.WriteString(firmware.BlockComment("", ep.Summary, ep.Info))
	}
	b.WriteString(signature(r))
	b.WriteString("\n{\n")

	fmt.Fprintf(b, "\tString _url = %s;\n", urlExpr(r.URI))
	if r.Method == apidoc.MethodGet {
		if q := queryString(ep, apidoc.SourceQuery); q != "" {
			fmt.Fprintf(b, "\t_url += \"?%s\";\n", q)
		}
	}
	b.WriteString("\tHTTPClient _http;\n")
	b.WriteString("\t_http.begin(_url);\n\n")

	headers := 0
	for k, v := range e.doc.Headers.All() {
		fmt.Fprintf(b, "\t_http.addHeader(\"%s\", \"%s\");\n", pathutil.CString(k), pathutil.CString(v))
		headers++
	}
	for _, el := range ep.ParamsBySource(apidoc.SourceHeader) {
		fmt.Fprintf(b, "\t_http.addHeader(\"%s\", \"\");\n", pathutil.CString(el.Key))
		headers++
	}
	if headers > 0 {
		b.WriteByte('\n')
	}

	hasBody := e.body(b, r, ep)
	e.send(b, r, hasBody)
	e.receive(b, r, ep)

	b.WriteString("\t_http.end();\n")
	b.WriteString("\treturn _code >= 200 && _code <= 299;\n")
	b.WriteString("}\n")
}

// body writes the request payload into a String named _body. A model body
// is built as a JsonDocument from the model's example.
func (e *Emitter) body(b *strings.Builder, r apidoc.EndpointRef, ep *apidoc.Endpoint) bool {
	_, p, ok := ep.Body()
	if ok {
		base, isArray := apidoc.ParseType(p.Type)
		isArray = isArray || p.IsArray
		if e.doc.Models.Has(base) {
			if e.opts.Comments {
				fmt.Fprintf(b, "\t// Model \"%s\"\n", base)
			}
			v := firmware.Example(e.doc, base, e.opts.Log())
			if isArray {
				v = synth.Array(v)
			}
			b.WriteString(firmware.JSONDocument("\t", "_doc", v))
			b.WriteString("\tString _body;\n")
			b.WriteString("\tserializeJson(_doc, _body);\n")
			b.WriteString("\t_http.addHeader(\"Content-Type\", \"application/json\");\n\n")
			return true
		}
		ct := p.ContentType
		if ct == "" {
			ct = "text/plain"
		}
		lit := "{}"
		if base != apidoc.TypeObject {
			lit = firmware.Literal(synth.Default(base))
		}
		fmt.Fprintf(b, "\tString _body = %s;\n", bodyLiteral(lit))
		fmt.Fprintf(b, "\t_http.addHeader(\"Content-Type\", \"%s\");\n\n", pathutil.CString(ct))
		return true
	}
	if r.Method == apidoc.MethodGet {
		return false
	}
	if q := queryString(ep, apidoc.SourceFormData); q != "" {
		fmt.Fprintf(b, "\tString _body = \"%s\";\n", q)
		b.WriteString("\t_http.addHeader(\"Content-Type\", \"application/x-www-form-urlencoded\");\n\n")
		return true
	}
	return false
}

// bodyLiteral turns a scalar default into something a String can hold.
func bodyLiteral(lit string) string {
	if strings.HasPrefix(lit, `"`) {
		return lit
	}
	return `"` + lit + `"`
}

func (e *Emitter) send(b *strings.Builder, r apidoc.EndpointRef, hasBody bool) {
	m := string(r.Method)
	switch {
	case r.Method == apidoc.MethodGet && !hasBody:
		b.WriteString("\tint _code = _http.GET();\n")
	case r.Method == apidoc.MethodPost || r.Method == apidoc.MethodPut || r.Method == apidoc.MethodPatch:
		arg := `""`
		if hasBody {
			arg = "_body"
		}
		fmt.Fprintf(b, "\tint _code = _http.%s(%s);\n", m, arg)
	case hasBody:
		fmt.Fprintf(b, "\tint _code = _http.sendRequest(\"%s\", _body);\n", m)
	default:
		fmt.Fprintf(b, "\tint _code = _http.sendRequest(\"%s\");\n", m)
	}
	b.WriteString("\tif (_code <= 0) {\n")
	fmt.Fprintf(b, "\t\tSerial.println(\"! Error sending request (%s %s)\");\n", m, pathutil.CString(r.URI))
	b.WriteString("\t\tSerial.println(_http.errorToString(_code));\n")
	b.WriteString("\t\t_http.end();\n")
	b.WriteString("\t\treturn false;\n")
	b.WriteString("\t}\n\n")
}

// receive reads the payload. A 200 response with a model gets a
// deserialization block to complete; other non-2xx codes are logged.
func (e *Emitter) receive(b *strings.Builder, r apidoc.EndpointRef, ep *apidoc.Endpoint) {
	b.WriteString("\tString _resp = _http.getString();\n")
	if r200, ok := ep.Responses.Get("200"); ok && e.doc.Models.Has(r200.Model) {
		b.WriteString("\tif (_code == 200) {\n")
		fmt.Fprintf(b, "\t\t// Response model \"%s\"\n", r200.Model)
		b.WriteString(firmware.ModelComment(e.doc, r200.Model, "\t\t"))
		b.WriteString("\t\tJsonDocument _respDoc;\n")
		b.WriteString("\t\tDeserializationError _error = deserializeJson(_respDoc, _resp);\n")
		b.WriteString("\t\tif (_error) {\n")
		b.WriteString("\t\t\tSerial.print(\"deserializeJson(): \");\n")
		b.WriteString("\t\t\tSerial.println(_error.c_str());\n")
		b.WriteString("\t\t}\n")
		b.WriteString("\t} else if (_code < 200 || _code > 299) {\n")
	} else {
		b.WriteString("\tif (_code < 200 || _code > 299) {\n")
	}
	b.WriteString("\t\tSerial.print(\"! Unexpected status \");\n")
	b.WriteString("\t\tSerial.println(_code);\n")
	b.WriteString("\t\tSerial.println(_resp);\n")
	b.WriteString("\t}\n\n")
}
