package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInitText(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	logger := Init(&buf, "WARN", "text")

	logger.Info("dropped")
	slog.Warn("kept", "pin", "GPIO16")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=kept")
	assert.Contains(t, out, "pin=GPIO16")
}

func TestInitJSON(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	Init(&buf, "debug", "JSON")
	slog.Debug("spi transfer", "rx", "F00000")

	out := strings.TrimSpace(buf.String())
	assert.Contains(t, out, `"msg":"spi transfer"`)
	assert.Contains(t, out, `"rx":"F00000"`)
}
