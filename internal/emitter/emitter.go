// Package emitter holds the contract shared by the artifact generators and
// the helpers they have in common: endpoint selection, file planning and
// writing, text wrapping and fixed-width tables.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/okapi-tools/okapi/internal/apidoc"
)

// ErrUnknownEndpoint is returned when a selected endpoint is not in the
// document.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Emitter renders one artifact from a document snapshot.
type Emitter interface {
	Generate(ctx context.Context) (*Result, error)
}

// Options controls a single emitter run.
type Options struct {
	OutDir    string // existing directory the artifact is written into
	Name      string // artifact base name, e.g. "sensor_api"
	Comments  bool   // emit descriptive comments in firmware sources
	Endpoints []apidoc.EndpointRef
	DryRun    bool // plan only
	Logger    *slog.Logger
}

// Log returns the configured logger or one that discards.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// PlannedFile describes a file the emitter writes.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result is the outcome of an emitter run.
type Result struct {
	Path    string // the file or directory created under OutDir
	Planned []PlannedFile
}

// Selected resolves an endpoint subset against d. An empty subset selects
// every endpoint. The result always follows document order: methods in
// insertion order, then URIs in insertion order.
func Selected(d *apidoc.Document, refs []apidoc.EndpointRef) ([]apidoc.EndpointRef, error) {
	all := d.EndpointRefs()
	if len(refs) == 0 {
		return all, nil
	}
	for _, r := range refs {
		if _, ok := d.Endpoint(r.Method, r.URI); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, r)
		}
	}
	out := make([]apidoc.EndpointRef, 0, len(refs))
	for _, r := range all {
		if slices.Contains(refs, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
