// Package logging builds the process logger: a console handler, an optional
// log file and an optional Sentry handler, fanned out with slog-multi.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Formats accepted by Config.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const sentryFlushTimeout = 2 * time.Second

// Config selects the handlers of the logger.
type Config struct {
	Level     slog.Level
	Format    string    // FormatText (default) or FormatJSON
	Output    io.Writer // console destination, os.Stderr when nil
	File      string    // JSON lines appended here when set
	AddSource bool

	// Sentry receives warnings and errors when SentryDSN is set.
	SentryDSN   string
	Environment string
	Release     string
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// New builds the logger described by c. The returned func flushes Sentry and
// closes the log file; call it before exit.
func New(c Config) (*slog.Logger, func(), error) {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.Level, AddSource: c.AddSource}

	var console slog.Handler
	switch c.Format {
	case "", FormatText:
		console = slog.NewTextHandler(out, opts)
	case FormatJSON:
		console = slog.NewJSONHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q (want %s or %s)", c.Format, FormatText, FormatJSON)
	}
	handlers := []slog.Handler{console}
	var closers []func()

	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closers = append(closers, func() { _ = f.Close() })
	}

	if c.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         c.SentryDSN,
			Environment: c.Environment,
			Release:     c.Release,
		})
		if err != nil {
			for _, fn := range closers {
				fn()
			}
			return nil, nil, fmt.Errorf("init sentry: %w", err)
		}
		handlers = append(handlers, slogsentry.Option{
			Level:     slog.LevelWarn,
			AddSource: c.AddSource,
		}.NewSentryHandler())
		closers = append(closers, func() { sentry.Flush(sentryFlushTimeout) })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return slog.New(slogmulti.Fanout(handlers...)), cleanup, nil
}
