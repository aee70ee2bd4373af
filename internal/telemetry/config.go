package telemetry

import "path/filepath"

const (
	// DefaultDir is where events land when no artifacts directory is configured.
	DefaultDir = ".agent"
	// EventsFile is the JSONL file name inside the artifacts directory.
	EventsFile = "events.jsonl"
	// FeaturesVersion tags the shape of local_features payloads.
	FeaturesVersion = "1"
)

// Path returns the events file the sink appends to.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return filepath.Join(s.dir, EventsFile)
}
