package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Level(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestNew_GatesInfoBehindVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)

	logger.Info("scan complete")
	assert.Empty(t, buf.String())

	logger = New(&buf, 1)
	logger.Info("scan complete")
	assert.Contains(t, buf.String(), "scan complete")
}

func TestNew_RendersCriticalLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)

	logger.Log(context.Background(), LevelCritical, "scanner failed", "code", 9)

	out := buf.String()
	assert.Contains(t, out, "level=CRITICAL")
	assert.Contains(t, out, "code=9")
}
