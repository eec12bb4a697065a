package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/logging"
	"github.com/okapi-tools/okapi/internal/store"
	"github.com/okapi-tools/okapi/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

// app is what every command works with once the configuration is resolved.
type app struct {
	cfg     *Config
	log     *slog.Logger
	out     io.Writer
	closers []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, newUsageError(err.Error())
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log, done, err := logging.New(logging.Config{
		Level:       level,
		Format:      cfg.LogFormat,
		Output:      cmd.ErrOrStderr(),
		File:        cfg.LogFile,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, out: cmd.OutOrStdout(), closers: []func(){done}}
	if cfg.Trace {
		shutdown, err := tracing.Init(cmd.ErrOrStderr())
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("flush spans", "error", err)
			}
		})
	}
	log.Debug("configuration resolved", "basedir", cfg.BaseDir, "config", cfg.ConfigPath)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) store() (*store.Store, error) {
	return store.Open(a.cfg.BaseDir, store.WithLogger(a.log))
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// loadDocument loads a stored document by name, or a document file when
// file is set. Exactly one of the two must be given.
func (a *app) loadDocument(name, file string) (*apidoc.Document, error) {
	name, file = strings.TrimSpace(name), strings.TrimSpace(file)
	switch {
	case name == "" && file == "":
		return nil, newUsageError("a document NAME or --file is required")
	case name != "" && file != "":
		return nil, newUsageError("give either a document NAME or --file, not both")
	case file != "":
		return store.Load(file)
	}
	st, err := a.store()
	if err != nil {
		return nil, err
	}
	return st.LoadByName(name)
}

// withApp adapts a command body to cobra, resolving the app first and
// closing it afterwards.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, a, cmd, args)
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
