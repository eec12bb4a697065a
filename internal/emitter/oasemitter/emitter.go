// Package oasemitter writes the document as an OpenAPI 3 description.
package oasemitter

import (
	"context"
	"path/filepath"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/openapi"
)

// Suffix is appended to the artifact base name.
const Suffix = ".openapi.yaml"

type Emitter struct {
	doc  *apidoc.Document
	opts emitter.Options
}

// New returns an OpenAPI emitter for d.
func New(d *apidoc.Document, opts emitter.Options) emitter.Emitter {
	return &Emitter{doc: d, opts: opts}
}

// Generate writes <name>.openapi.yaml.
func (e *Emitter) Generate(ctx context.Context) (*emitter.Result, error) {
	refs, err := emitter.Selected(e.doc, e.opts.Endpoints)
	if err != nil {
		return nil, err
	}
	desc, err := openapi.Export(ctx, e.doc, refs)
	if err != nil {
		return nil, err
	}
	out, err := openapi.MarshalYAML(desc)
	if err != nil {
		return nil, err
	}

	name := e.opts.Name + Suffix
	files := map[string][]byte{name: out}
	res := &emitter.Result{Path: filepath.Join(e.opts.OutDir, name), Planned: emitter.Plan(files)}
	if e.opts.DryRun {
		return res, nil
	}
	if _, err := emitter.WriteFiles(e.opts.OutDir, files); err != nil {
		return nil, err
	}
	e.opts.Log().Debug("openapi description written", "path", res.Path, "paths", len(desc.Paths))
	return res, nil
}
