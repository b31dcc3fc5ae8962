package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracingWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	cleanup, err := EnableTracing(path)
	require.NoError(t, err)
	require.True(t, IsTracingEnabled())

	Trace(TraceEntry{Driver: "gemini", Endpoint: "models:generateContent", Method: "POST", Model: "gemini-2.5-flash"})
	Trace(TraceEntry{Driver: "gemini", Error: "boom"})
	cleanup()
	require.False(t, IsTracingEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "gemini-2.5-flash", entry.Model)
	require.False(t, entry.Timestamp.IsZero())
}

func TestTraceWithoutTracerIsNoop(t *testing.T) {
	DisableTracing()
	Trace(TraceEntry{Driver: "gemini"})
	require.False(t, IsTracingEnabled())
}
