package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.Record(Event{Endpoint: "chat.completions", Status: "ok", InputTokens: 5, OutputTokens: 1, At: time.Now()})
	sink.Record(Event{Endpoint: "responses", Status: "error", At: time.Now()})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "chat.completions", first.Endpoint)
	assert.Equal(t, "ok", first.Status)
}

func TestNopSink_DoesNotPanic(t *testing.T) {
	var s NopSink
	s.Record(Event{})
}
