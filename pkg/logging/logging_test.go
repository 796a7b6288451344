package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "debug", Format: "json"}, &buf).Debug("resolved", "kind", "existing")
	require.Contains(t, buf.String(), `"kind":"existing"`)

	buf.Reset()
	New(Config{Level: "info"}, &buf).Info("resolved", "kind", "new")
	require.Contains(t, buf.String(), "kind=new")
}

func TestDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, ParseLevel("info"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelWarn, ParseLevel("bogus"))
}

func TestContext(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))

	logger := New(Config{}, &bytes.Buffer{})
	require.Same(t, logger, FromContext(NewContext(context.Background(), logger)))
}
