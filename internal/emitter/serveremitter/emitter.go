// Package serveremitter renders an ESP32 ESPAsyncWebServer sketch that
// registers one route per endpoint.
//
// Routes with path placeholders are regular expressions, which the library
// only matches when built with -DASYNCWEBSERVER_REGEX=1.
package serveremitter

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
)

// Suffix is appended to the artifact base name.
const Suffix = "_server"

// Width of wrapped example literals.
const exampleWidth = 60

// Emitter renders the firmware server.
type Emitter struct {
	doc  *apidoc.Document
	opts emitter.Options
}

// New returns a firmware server emitter for d.
func New(d *apidoc.Document, opts emitter.Options) emitter.Emitter {
	return &Emitter{doc: d, opts: opts}
}

// Generate writes <name>_server/<name>_server.ino.
func (e *Emitter) Generate(ctx context.Context) (*emitter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := emitter.Selected(e.doc, e.opts.Endpoints)
	if err != nil {
		return nil, err
	}
	dir := e.opts.Name + Suffix
	files := map[string][]byte{path.Join(dir, dir+".ino"): e.sketch(refs)}

	res := &emitter.Result{Path: filepath.Join(e.opts.OutDir, dir), Planned: emitter.Plan(files)}
	if e.opts.DryRun {
		return res, nil
	}
	if _, err := emitter.WriteFiles(e.opts.OutDir, files); err != nil {
		return nil, err
	}
	e.opts.Log().Debug("firmware server written", "path", res.Path, "routes", len(refs))
	return res, nil
}

// RoutePattern returns the route for uri and the placeholder names in
// capture order. URIs without placeholders are used literally.
func RoutePattern(uri string) (string, []string) {
	items := pathutil.ExtractPathItems(uri)
	if len(items) == 0 {
		return uri, nil
	}
	var b strings.Builder
	b.WriteByte('^')
	for _, seg := range pathutil.Segments(pathutil.StripPathItemNames(uri)) {
		b.WriteString(`\/`)
		if seg == "{}" {
			b.WriteString(`([^\/]+)`)
			continue
		}
		b.WriteString(seg)
	}
	b.WriteByte('$')
	return b.String(), items
}

func (e *Emitter) sketch(refs []apidoc.EndpointRef) []byte {
	var b strings.Builder
	b.WriteString("#include <Arduino.h>\n#include <WiFi.h>\n#include <AsyncTCP.h>\n#include <ESPAsyncWebServer.h>\n")
	if e.doc.Models.Len() > 0 {
		b.WriteString("#include <ArduinoJson.h>\n")
	}
	b.WriteByte('\n')
	for _, r := range refs {
		if len(pathutil.ExtractPathItems(r.URI)) > 0 {
			b.WriteString("// Path parameters are matched with regular expressions:\n")
			b.WriteString("// build with -DASYNCWEBSERVER_REGEX=1.\n\n")
			break
		}
	}
	b.WriteString(firmware.Credentials)
	b.WriteString("\nAsyncWebServer server(80);\n\n")
	b.WriteString(firmware.WiFiSetup)

	b.WriteString("\nvoid setup_routing()\n{\n")
	for _, r := range refs {
		ep, _ := e.doc.Endpoint(r.Method, r.URI)
		e.route(&b, r, ep)
	}
	b.WriteString("\tserver.onNotFound([](AsyncWebServerRequest *_request) {\n")
	b.WriteString("\t\t_request->send(404, \"text/plain\", \"Not found\");\n")
	b.WriteString("\t});\n")
	b.WriteString("}\n\n")

	b.WriteString("void setup(void)\n{\n")
	b.WriteString("\tSerial.begin(115200);\n")
	b.WriteString("\twifi_setup();\n")
	b.WriteString("\tsetup_routing();\n")
	b.WriteString("\tserver.begin();\n\n")
	b.WriteString("\tSerial.print(\"Listening at \");\n")
	b.WriteString("\tSerial.print(WiFi.localIP());\n")
	b.WriteString("\tSerial.println(\":80 ...\");\n")
	b.WriteString("}\n\nvoid loop() {}\n")
	return []byte(b.String())
}

func (e *Emitter) route(b *strings.Builder, r apidoc.EndpointRef, ep *apidoc.Endpoint) {
	if e.opts.Comments {
		b.WriteString(firmware.LineComment("\t", ep.Summary, ep.Info))
	}
	pattern, items := RoutePattern(r.URI)
	fmt.Fprintf(b, "\tserver.on(\"%s\", HTTP_%s,\n", pathutil.CString(pattern), r.Method)
	if _, body, ok := ep.Body(); ok {
		e.bodyCallback(b, ep, body, items)
	} else {
		e.defaultCallback(b, ep, items)
	}
	b.WriteString("\t);\n")
	fmt.Fprintf(b, "\tSerial.println(\". Setup %s %s\");\n\n", r.Method, pathutil.CString(r.URI))
}

const in = "\t\t\t"

func (e *Emitter) defaultCallback(b *strings.Builder, ep *apidoc.Endpoint, items []string) {
	b.WriteString("\t\t[](AsyncWebServerRequest *_request) {\n")
	e.inputs(b, ep, items)
	e.respond(b, ep)
	b.WriteString("\t\t}\n")
}

// bodyCallback buffers the chunks handed to the body handler in the
// request's _tempObject, which the request frees, and handles the request
// once the last chunk arrived.
func (e *Emitter) bodyCallback(b *strings.Builder, ep *apidoc.Endpoint, body *apidoc.Parameter, items []string) {
	b.WriteString("\t\t[](AsyncWebServerRequest *_request) {},\n")
	b.WriteString("\t\tNULL,\n")
	b.WriteString("\t\t[](AsyncWebServerRequest *_request, uint8_t *_data, size_t _len, size_t _index, size_t _total) {\n")
	b.WriteString(in + "if (_index == 0) {\n")
	b.WriteString(in + "\t_request->_tempObject = malloc(_total + 1);\n")
	b.WriteString(in + "}\n")
	b.WriteString(in + "if (_request->_tempObject == NULL) {\n")
	b.WriteString(in + "\t_request->send(500, \"text/plain\", \"Out of memory\");\n")
	b.WriteString(in + "\treturn;\n")
	b.WriteString(in + "}\n")
	b.WriteString(in + "memcpy((uint8_t *)_request->_tempObject + _index, _data, _len);\n")
	b.WriteString(in + "if (_index + _len != _total) {\n")
	b.WriteString(in + "\treturn;\n")
	b.WriteString(in + "}\n")
	b.WriteString(in + "((char *)_request->_tempObject)[_total] = '\\0';\n\n")

	e.inputs(b, ep, items)

	base, _ := apidoc.ParseType(body.Type)
	if e.doc.Models.Has(base) {
		fmt.Fprintf(b, in+"// Reading model \"%s\"\n", base)
		if e.opts.Comments {
			b.WriteString(firmware.ModelComment(e.doc, base, in))
		}
	}
	b.WriteString(in + "JsonDocument _body;\n")
	b.WriteString(in + "DeserializationError _error = deserializeJson(_body, (const char *)_request->_tempObject, _total);\n")
	b.WriteString(in + "if (_error) {\n")
	b.WriteString(in + "\tSerial.print(\"deserializeJson(): \");\n")
	b.WriteString(in + "\tSerial.println(_error.c_str());\n")
	b.WriteString(in + "\t_request->send(400, \"text/plain\", \"Invalid JSON body\");\n")
	b.WriteString(in + "\treturn;\n")
	b.WriteString(in + "}\n\n")
	e.respond(b, ep)
	b.WriteString("\t\t}\n")
}

// inputs binds path captures positionally, then headers, then query and
// form parameters. A missing required input answers 400.
func (e *Emitter) inputs(b *strings.Builder, ep *apidoc.Endpoint, items []string) {
	for i, it := range items {
		fmt.Fprintf(b, in+"String %s = _request->pathArg(%d);\n", pathutil.LocalSymbol(it), i)
	}
	if len(items) > 0 {
		b.WriteByte('\n')
	}
	for _, el := range ep.ParamsBySource(apidoc.SourceHeader) {
		read(b, el.Key, el.Value.Required, "Header", "")
	}
	for key, p := range ep.Params.All() {
		switch p.Source {
		case apidoc.SourceQuery:
			read(b, key, p.Required, "Param", "")
		case apidoc.SourceFormData:
			read(b, key, p.Required, "Param", ", true")
		}
	}
}

func read(b *strings.Builder, key string, required bool, kind, extra string) {
	name := pathutil.LocalSymbol(key)
	k := pathutil.CString(key)
	label := strings.ToLower(kind)
	if label == "param" {
		label = "parameter"
	}
	if required {
		fmt.Fprintf(b, in+"if (!_request->has%s(\"%s\"%s)) {\n", kind, k, extra)
		fmt.Fprintf(b, in+"\t_request->send(400, \"text/plain\", \"Missing %s %s\");\n", label, k)
		b.WriteString(in + "\treturn;\n")
		b.WriteString(in + "}\n")
		fmt.Fprintf(b, in+"String %s = _request->get%s(\"%s\"%s)->value();\n\n", name, kind, k, extra)
		return
	}
	fmt.Fprintf(b, in+"String %s;\n", name)
	fmt.Fprintf(b, in+"if (_request->has%s(\"%s\"%s)) {\n", kind, k, extra)
	fmt.Fprintf(b, in+"\t%s = _request->get%s(\"%s\"%s)->value();\n", name, kind, k, extra)
	b.WriteString(in + "}\n\n")
}

// respond answers with the preferred success response: a serialized model
// example when it names a model, otherwise its example text.
func (e *Emitter) respond(b *strings.Builder, ep *apidoc.Endpoint) {
	code, resp, ok := ep.PreferredResponse()
	if !ok {
		b.WriteString(in + "_request->send(200);\n")
		return
	}
	if e.doc.Models.Has(resp.Model) {
		b.WriteString(in + "AsyncResponseStream *_response = _request->beginResponseStream(\"application/json\");\n")
		if code != "200" {
			fmt.Fprintf(b, in+"_response->setCode(%s);\n", code)
		}
		v := firmware.Example(e.doc, resp.Model, e.opts.Log())
		b.WriteString(firmware.JSONDocument(in, "_doc", v))
		b.WriteString(in + "serializeJson(_doc, *_response);\n")
	} else {
		ct := resp.ContentType
		if ct == "" {
			ct = "text/plain"
		}
		b.WriteString(in + "AsyncWebServerResponse *_response =\n")
		fmt.Fprintf(b, in+"\t_request->beginResponse(%s, \"%s\",\n", code, pathutil.CString(ct))
		b.WriteString(exampleLiteral(resp.Example, in+"\t\t"))
		b.WriteString(");\n")
	}
	for k, v := range resp.Headers.All() {
		fmt.Fprintf(b, in+"_response->addHeader(\"%s\", \"%s\");\n", pathutil.CString(k), pathutil.CString(v))
	}
	b.WriteString(in + "_request->send(_response);\n")
}

// exampleLiteral wraps the example into adjacent C string literals, one per
// line. The last line has no newline so the caller can close the call.
func exampleLiteral(example, indent string) string {
	lines := emitter.Wrap(example, exampleWidth)
	if len(lines) == 0 {
		return indent + `"TODO"`
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		if i < len(lines)-1 {
			l += " "
		}
		parts[i] = indent + `"` + pathutil.CString(l) + `"`
	}
	return strings.Join(parts, "\n")
}
