package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "loud")
}

func TestTextConsole(t *testing.T) {
	var buf bytes.Buffer
	log, done, err := New(Config{Level: slog.LevelInfo, Output: &buf})
	require.NoError(t, err)
	defer done()

	log.Debug("hidden")
	log.Info("artifact generated", "target", "client")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="artifact generated" target=client`)
}

func TestJSONConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "okapi.log")
	log, done, err := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf, File: file})
	require.NoError(t, err)

	log.Debug("document saved", "name", "Sensor API")
	done()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "document saved", rec["msg"])
	assert.Equal(t, "Sensor API", rec["name"])

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "\n"))
	assert.Contains(t, string(raw), `"msg":"document saved"`)
}

func TestRejectsBadConfig(t *testing.T) {
	_, _, err := New(Config{Format: "xml"})
	assert.ErrorContains(t, err, "xml")

	_, _, err = New(Config{Output: &bytes.Buffer{}, SentryDSN: "not a dsn"})
	assert.ErrorContains(t, err, "sentry")
}
