package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// dataLinePrefix is the only SSE field this proxy cares about: the "event:"
// line is ignored, since the JSON body's own "type" field always duplicates
// it for Messages API streams.
const dataLinePrefix = "data: "

// sentinelDone is the terminal frame some upstreams send instead of closing
// the connection outright.
const sentinelDone = "[DONE]"

const (
	initialLineBuffer = 256 * 1024
	maxLineBuffer     = 1024 * 1024
)

// Reader pulls one Messages API event at a time off an upstream SSE body.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r in a line scanner sized for the long content_block_delta
// frames a streaming completion can emit.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)
	return &Reader{scanner: scanner}
}

// Next decodes the next data frame, skipping blank lines, comment lines,
// and anything that isn't valid JSON. It returns nil, io.EOF once the
// upstream sends its done sentinel or the body is exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" || !strings.HasPrefix(line, dataLinePrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataLinePrefix):])
		if payload == "" {
			continue
		}
		if payload == sentinelDone {
			return nil, io.EOF
		}

		var parsed map[string]any
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			continue
		}
		eventType, _ := parsed["type"].(string)
		return &Event{
			Type: eventType,
			Raw:  json.RawMessage(payload),
			Data: parsed,
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
