// Package telemetry writes an opt-in JSONL event log describing requests,
// tool executions and turn outcomes. Events carry sizes and timings, never
// prompt text or tool payloads.
package telemetry

import (
	"log/slog"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink appends events to <dir>/events.jsonl. A nil or disabled Sink drops
// every event, so callers never need to guard Emit.
type Sink struct {
	dir     string
	enabled bool
	log     *slog.Logger

	mu sync.Mutex
}

// New returns a sink rooted at dir (DefaultDir when empty).
func New(dir string, enabled bool, log *slog.Logger) *Sink {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{dir: dir, enabled: enabled, log: log}
}

// Enabled reports whether events are written.
func (s *Sink) Enabled() bool {
	return s != nil && s.enabled
}

// Emit writes a single JSON line when the sink is enabled.
// It augments fields with RFC3339Nano time and the event name.
func (s *Sink) Emit(name string, fields map[string]any) {
	if !s.Enabled() {
		return
	}

	// Shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := codec.Marshal(m)
	if err != nil {
		s.log.Warn("telemetry marshal failed", "event", name, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn("telemetry mkdir failed", "dir", s.dir, "error", err)
		return
	}

	path := s.Path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.log.Warn("telemetry open failed", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		s.log.Warn("telemetry write failed", "path", path, "error", err)
	}
}
