// Package htmlemitter renders a document as a single static HTML page.
// Text is escaped with html.EscapeString; the page is documentation, not a
// sanitizer.
package htmlemitter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/synth"
)

// Suffix is appended to the artifact base name.
const Suffix = ".html"

const prefix = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; margin: 20px; padding: 20px; background-color: #f9f9f9; }
    h1 { color: #333; margin: 0; }
    h2, h3, h4 { color: #333; margin: 0 0 10px 0; }
    .box { margin-bottom: 20px; padding: 5px 10px 10px 10px; border: 1px solid #ccc; border-radius: 5px; background-color: #fff; }
    .boxh { color: #3a3a3a; font-family: monospace; font-weight: bold; font-size: 20px; }
    .boxh2 { color: #444; font-family: monospace; font-size: 17px; }
    table { font-family: monospace; border-collapse: collapse; margin-bottom: 10px; }
    th, td { border: 1px solid #ddd; padding: 5px 8px 5px 8px; text-align: left; }
    th { color: #111; background-color: #f9f9f9; font-weight: bold; }
    pre { background-color: #f4f4f4; padding: 8px; }
    b { color: #333; }
  </style>
</head>
<body>
`

// esc escapes text and attribute values alike.
func esc(s string) string { return html.EscapeString(s) }

// Emitter renders the HTML documentation.
type Emitter struct {
	doc  *apidoc.Document
	opts emitter.Options
}

// New returns an HTML emitter for d.
func New(d *apidoc.Document, opts emitter.Options) emitter.Emitter {
	return &Emitter{doc: d, opts: opts}
}

// Generate writes <name>.html.
func (e *Emitter) Generate(ctx context.Context) (*emitter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := emitter.Selected(e.doc, e.opts.Endpoints)
	if err != nil {
		return nil, err
	}
	rel := e.opts.Name + Suffix
	files := map[string][]byte{rel: Render(e.doc, refs, e.opts.Log())}

	res := &emitter.Result{Path: filepath.Join(e.opts.OutDir, rel), Planned: emitter.Plan(files)}
	if e.opts.DryRun {
		return res, nil
	}
	if _, err := emitter.WriteFiles(e.opts.OutDir, files); err != nil {
		return nil, err
	}
	e.opts.Log().Debug("html documentation written", "path", res.Path, "endpoints", len(refs))
	return res, nil
}

// Render produces the page for the given endpoints.
func Render(d *apidoc.Document, refs []apidoc.EndpointRef, log *slog.Logger) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, prefix, esc(d.Name))
	writeHeader(&b, d)
	writeModels(&b, d, log)
	writeEndpoints(&b, d, refs)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, d *apidoc.Document) {
	b.WriteString("  <h1>API Documentation</h1>\n  <hr>\n  <p>\n")
	fmt.Fprintf(b, "    <b>Api Name</b>: %s<br>\n", esc(d.Name))
	fmt.Fprintf(b, "    <b>Version</b>: %s<br>\n", esc(d.Version))
	fmt.Fprintf(b, "    <b>Address</b>: <a href=\"%s\">%s</a>\n", esc(d.Address), esc(d.Address))
	b.WriteString("  </p>\n")
	if d.Info != "" {
		fmt.Fprintf(b, "  <p>%s</p>\n", esc(d.Info))
	}
	if d.Headers.Len() > 0 {
		b.WriteString("  <table>\n    <tr><th>Header</th><th>Value</th></tr>\n")
		for k, v := range d.Headers.All() {
			row(b, "    ", k, v)
		}
		b.WriteString("  </table>\n")
	}
	b.WriteByte('\n')
}

func row(b *strings.Builder, indent string, cells ...string) {
	b.WriteString(indent)
	b.WriteString("<tr>")
	for _, c := range cells {
		b.WriteString("<td>")
		b.WriteString(esc(c))
		b.WriteString("</td>")
	}
	b.WriteString("</tr>\n")
}

func typeLabel(typ string, isArray bool) string {
	base, arr := apidoc.ParseType(typ)
	if arr || isArray {
		return "array[" + base + "]"
	}
	return base
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func writeModels(b *strings.Builder, d *apidoc.Document, log *slog.Logger) {
	b.WriteString("  <h2>Models</h2>\n")
	for name, m := range d.Models.All() {
		b.WriteString("  <div class=\"box\">\n")
		fmt.Fprintf(b, "    <span class=\"boxh\">%s</span>\n", esc(name))
		if m.Info != "" {
			fmt.Fprintf(b, "    <p>%s</p>\n", esc(m.Info))
		}
		b.WriteString("    <table>\n")
		b.WriteString("      <tr><th>Attribute</th><th>Type</th><th>Required</th><th>Values</th><th>Info</th></tr>\n")
		for attr, a := range m.Attributes.All() {
			row(b, "      ", attr, typeLabel(a.Type, a.IsArray), yesNo(a.Required), strings.Join(a.Values, ", "), a.Info)
		}
		b.WriteString("    </table>\n")

		v, err := synth.Synthesize(name, d.Models)
		if err != nil {
			log.Warn("example synthesis incomplete", "model", name, "error", err)
		}
		if text, err := v.Indent("  "); err == nil {
			fmt.Fprintf(b, "    <pre>%s</pre>\n", esc(text))
		}
		b.WriteString("  </div>\n")
	}
	b.WriteByte('\n')
}

func writeEndpoints(b *strings.Builder, d *apidoc.Document, refs []apidoc.EndpointRef) {
	b.WriteString("  <h2>Endpoints</h2>\n")
	for _, r := range refs {
		ep, _ := d.Endpoint(r.Method, r.URI)
		b.WriteString("  <div class=\"box\">\n")
		fmt.Fprintf(b, "    <span class=\"boxh\">%s</span>\n", r.Method)
		fmt.Fprintf(b, "    <span class=\"boxh2\">%s</span>\n", esc(r.URI))
		b.WriteString("    <br>\n")
		if ep.Summary != "" {
			fmt.Fprintf(b, "    <p><b>%s</b></p>\n", esc(ep.Summary))
		}
		if ep.Info != "" {
			fmt.Fprintf(b, "    <p>%s</p>\n", esc(ep.Info))
		}

		if ep.Params.Len() > 0 {
			b.WriteString("    <h4>Parameters</h4>\n    <table>\n")
			b.WriteString("      <tr><th>Name</th><th>Source</th><th>Type</th><th>Required</th><th>Values</th><th>Info</th></tr>\n")
			for key, p := range ep.Params.All() {
				row(b, "      ", key, p.Source, typeLabel(p.Type, p.IsArray), yesNo(p.Required), strings.Join(p.Values, ", "), p.Info)
			}
			b.WriteString("    </table>\n")
		}

		if ep.Responses.Len() > 0 {
			b.WriteString("    <h4>Responses</h4>\n    <table>\n")
			b.WriteString("      <tr><th>Status</th><th>Content-Type</th><th>Model</th><th>Headers</th><th>Summary</th></tr>\n")
			for code, resp := range ep.Responses.All() {
				var headers []string
				for k := range resp.Headers.Keys() {
					headers = append(headers, k)
				}
				row(b, "      ", code, resp.ContentType, resp.Model, strings.Join(headers, ", "), resp.Summary)
			}
			b.WriteString("    </table>\n")
		}
		b.WriteString("  </div>\n")
	}
}
