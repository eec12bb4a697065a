// Package codegen runs the artifact generators. It resolves the target,
// checks the output directory, gates on validation and hands the emitter a
// private snapshot of the document.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/emitter"
	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/validate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownTarget is returned for a target name nobody registered.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrOutputDir is returned when the output directory is missing or not
	// a directory.
	ErrOutputDir = errors.New("invalid output directory")
	// ErrUnknownEndpoint is returned when a selected endpoint is not in the
	// document.
	ErrUnknownEndpoint = emitter.ErrUnknownEndpoint
)

const tracerName = "github.com/okapi-tools/okapi/internal/codegen"

// Options selects what to generate and where.
type Options struct {
	Target    string
	OutDir    string
	Comments  bool
	Endpoints []apidoc.EndpointRef // empty means all
	DryRun    bool
	Logger    *slog.Logger
}

// Result describes a finished run.
type Result struct {
	Target string
	Path   string
	Files  []emitter.PlannedFile
}

// OutputName is the file or directory name a target produces for a
// document, e.g. ("Sensor API", "server") -> "sensor_api_server".
func OutputName(docName, target string) (string, error) {
	t, ok := Lookup(target)
	if !ok {
		return "", unknownTarget(target)
	}
	return pathutil.OutputBaseName(docName) + t.Suffix, nil
}

func unknownTarget(name string) error {
	return fmt.Errorf("%w %q (known: %s)", ErrUnknownTarget, name, strings.Join(Targets(), ", "))
}

// Generate renders one target. The document must pass validation for the
// selected endpoints; warnings do not block. d itself is never modified.
func Generate(ctx context.Context, d *apidoc.Document, opts Options) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "codegen.Generate", trace.WithAttributes(
		attribute.String("okapi.target", opts.Target),
		attribute.String("okapi.document", d.Name),
		attribute.Int("okapi.endpoints.selected", len(opts.Endpoints)),
	))
	defer span.End()

	res, err := generate(ctx, d, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("okapi.files", len(res.Files)))
	return res, nil
}

func generate(ctx context.Context, d *apidoc.Document, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	t, ok := Lookup(opts.Target)
	if !ok {
		return nil, unknownTarget(opts.Target)
	}
	info, err := os.Stat(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrOutputDir, opts.OutDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w %q: not a directory", ErrOutputDir, opts.OutDir)
	}
	if _, err := emitter.Selected(d, opts.Endpoints); err != nil {
		return nil, err
	}
	report := validate.Selection(d, opts.Endpoints)
	if err := report.Err(); err != nil {
		return nil, err
	}
	for _, w := range report.Filter(validate.SeverityWarning) {
		log.Warn("validation warning", "target", opts.Target, "issue", w.String())
	}

	snap := d.Clone()
	e := t.New(snap, emitter.Options{
		OutDir:    opts.OutDir,
		Name:      pathutil.OutputBaseName(snap.Name),
		Comments:  opts.Comments,
		Endpoints: opts.Endpoints,
		DryRun:    opts.DryRun,
		Logger:    log.With("target", opts.Target),
	})
	start := time.Now()
	r, err := e.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", opts.Target, err)
	}
	log.Info("artifact generated",
		"target", opts.Target,
		"path", r.Path,
		"files", len(r.Planned),
		"dry_run", opts.DryRun,
		"duration", time.Since(start))
	return &Result{Target: opts.Target, Path: r.Path, Files: r.Planned}, nil
}

// GenerateAll runs independent targets concurrently, each on its own
// snapshot. Results follow the order of runs; the first error cancels the
// remaining runs.
func GenerateAll(ctx context.Context, d *apidoc.Document, runs []Options) ([]*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "codegen.GenerateAll",
		trace.WithAttributes(attribute.Int("okapi.runs", len(runs))))
	defer span.End()

	// Snapshots are taken up front so no goroutine reads d.
	snaps := make([]*apidoc.Document, len(runs))
	for i := range runs {
		snaps[i] = d.Clone()
	}
	results := make([]*Result, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	for i, opts := range runs {
		g.Go(func() error {
			res, err := Generate(ctx, snaps[i], opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}
