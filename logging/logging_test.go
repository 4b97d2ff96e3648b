package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWriterEmitsStructuredLines(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	var buf bytes.Buffer
	logger := SetupWriter(&buf, "purge-node", "test")
	logger.Info("block produced", "height", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "block produced", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "purge-node", line["service"])
	require.Equal(t, "test", line["env"])
	require.EqualValues(t, 7, line["height"])
	require.Contains(t, line, "timestamp")
}

func TestStdLoggerIsBridged(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	var buf bytes.Buffer
	SetupWriter(&buf, "purge-node", "")
	log.Printf("[rpc] listening on %s", ":8545")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "[rpc] listening on :8545", line["message"])
	require.NotContains(t, line, "env")
}

// TestSetupFileWritesRotatedLog verifies file logging lands in the target file.
func TestSetupFileWritesRotatedLog(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	path := filepath.Join(t.TempDir(), "node.log")
	logger, closer := SetupFile(path, "purge-node", "test")
	logger.Warn("queue full", "queue", "map_mint")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	require.Equal(t, "WARN", line["severity"])
	require.Equal(t, "map_mint", line["queue"])
}
