// Package textemitter renders a document as fixed-width plain text.
package textemitter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/synth"
)

// Suffix is appended to the artifact base name.
const Suffix = ".txt"

const width = 85

// Emitter renders the text documentation.
type Emitter struct {
	doc  *apidoc.Document
	opts emitter.Options
}

// New returns a text emitter for d.
func New(d *apidoc.Document, opts emitter.Options) emitter.Emitter {
	return &Emitter{doc: d, opts: opts}
}

// Generate writes <name>.txt.
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
	e.opts.Log().Debug("text documentation written", "path", res.Path, "endpoints", len(refs))
	return res, nil
}

// Render produces the document text for the given endpoints.
func Render(d *apidoc.Document, refs []apidoc.EndpointRef, log *slog.Logger) []byte {
	var b strings.Builder
	writeHeader(&b, d)
	writeIndex(&b, d, refs)
	writeModels(&b, d, log)
	writeEndpoints(&b, d, refs)
	return []byte(b.String())
}

func heading(b *strings.Builder, title string) {
	fmt.Fprintf(b, " %s\n %s\n\n", title, strings.Repeat("~", len(title)))
}

func writeHeader(b *strings.Builder, d *apidoc.Document) {
	heading(b, "API DOCUMENTATION")
	if d.Info != "" {
		b.WriteString(emitter.WrapIndent(d.Info, " ", width-1))
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, " Name:    %s\n", d.Name)
	fmt.Fprintf(b, " Version: %s\n", d.Version)
	fmt.Fprintf(b, " Address: %s\n", d.Address)
	if d.Headers.Len() > 0 {
		b.WriteString(" Headers:\n")
		for k, v := range d.Headers.All() {
			fmt.Fprintf(b, "   %s: %s\n", k, v)
		}
	}
	b.WriteString("\n\n")
}

// writeIndex lists the endpoints with methods and URIs aligned across the
// whole document, so the columns line up even for partial exports.
func writeIndex(b *strings.Builder, d *apidoc.Document, refs []apidoc.EndpointRef) {
	if len(refs) == 0 {
		return
	}
	heading(b, "INDEX")
	mw, uw := d.MaxMethodLen(), d.MaxURILen()
	for _, r := range refs {
		ep, _ := d.Endpoint(r.Method, r.URI)
		line := fmt.Sprintf(" %-*s  %-*s  %s", mw, r.Method, uw, r.URI, ep.Summary)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	b.WriteString("\n\n")
}

func typeLabel(typ string, isArray bool) string {
	base, arr := apidoc.ParseType(typ)
	if arr || isArray {
		return "[" + base + "]"
	}
	return base
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeModels(b *strings.Builder, d *apidoc.Document, log *slog.Logger) {
	if d.Models.Len() == 0 {
		return
	}
	heading(b, "MODELS")
	for name, m := range d.Models.All() {
		fmt.Fprintf(b, " %s\n", name)
		if m.Info != "" {
			b.WriteString(emitter.WrapIndent(m.Info, "   ", width-16))
		}
		b.WriteByte('\n')

		t := emitter.NewTable("   ", "Attribute", "Type", "Required", "Values", "Info").Floor(10, 4)
		for attr, a := range m.Attributes.All() {
			t.Add(attr, typeLabel(a.Type, a.IsArray), yesNo(a.Required), strings.Join(a.Values, ", "), a.Info)
		}
		b.WriteString(t.String())
		b.WriteByte('\n')

		writeExample(b, d, name, log)
	}
	b.WriteByte('\n')
}

func writeExample(b *strings.Builder, d *apidoc.Document, model string, log *slog.Logger) {
	v, err := synth.Synthesize(model, d.Models)
	if err != nil {
		log.Warn("example synthesis incomplete", "model", model, "error", err)
	}
	text, err := v.Indent("  ")
	if err != nil {
		return
	}
	b.WriteString("   Example\n\n")
	for _, l := range strings.Split(text, "\n") {
		b.WriteString("     ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func writeEndpoints(b *strings.Builder, d *apidoc.Document, refs []apidoc.EndpointRef) {
	heading(b, "ENDPOINTS")
	for _, r := range refs {
		ep, _ := d.Endpoint(r.Method, r.URI)
		fmt.Fprintf(b, " %s %s\n\n", r.Method, r.URI)

		if ep.Summary != "" {
			b.WriteString(emitter.WrapIndent(ep.Summary, "   ", width-16))
			b.WriteByte('\n')
		}
		if ep.Info != "" {
			b.WriteString(emitter.WrapIndent(ep.Info, "   ", width-16))
			b.WriteByte('\n')
		}

		if ep.Params.Len() > 0 {
			b.WriteString("   Parameters\n\n")
			t := emitter.NewTable("     ", "Name", "Source", "Type", "Required", "Values", "Info").Floor(4, 6, 4)
			for key, p := range ep.Params.All() {
				t.Add(key, p.Source, typeLabel(p.Type, p.IsArray), yesNo(p.Required), strings.Join(p.Values, ", "), p.Info)
			}
			b.WriteString(t.String())
			b.WriteByte('\n')
		}

		if ep.Responses.Len() > 0 {
			b.WriteString("   Responses\n\n")
			t := emitter.NewTable("     ", "Status", "Content-Type", "Model", "Headers", "Summary").Floor(6, 12, 5)
			for code, r := range ep.Responses.All() {
				headers := strings.Join(keys(r), ", ")
				t.Add(code, orDash(r.ContentType), orDash(r.Model), orDash(headers), r.Summary)
			}
			b.WriteString(t.String())
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
}

func keys(r *apidoc.Response) []string {
	out := make([]string, 0, r.Headers.Len())
	for k := range r.Headers.Keys() {
		out = append(out, k)
	}
	return out
}
