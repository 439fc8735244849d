package telemetry

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileSink appends one JSON line per event to a file, the masked-API-key
// stats module's nearest idiomatic equivalent: a line-oriented record any
// downstream tool (jq, a log shipper) can tail without parsing a framed
// format.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (creating if absent) path for appends.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

// Record writes ev as one JSON line. A marshal or write failure is logged
// and swallowed: telemetry must never fail the request it describes.
func (s *FileSink) Record(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Warn("telemetry: failed to marshal event")
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		logrus.WithError(err).Warn("telemetry: failed to write event")
	}
}

// Close releases the underlying file handle.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
