package metrics

import "time"

// TurnStats accumulates per-operator-turn counters for the turn_complete event.
type TurnStats struct {
	Rounds       int
	ToolCalls    int
	ToolErrors   int
	InputBytes   int
	OutputBytes  int
	RemoteMillis int64
	started      time.Time
}

// StartTurn returns stats whose clock starts now.
func StartTurn() *TurnStats {
	return &TurnStats{started: time.Now()}
}

// AddRemote records one remote round trip.
func (s *TurnStats) AddRemote(d time.Duration) {
	s.Rounds++
	s.RemoteMillis += d.Milliseconds()
}

// AddTool records one dispatched tool call.
func (s *TurnStats) AddTool(inBytes, outBytes int, isError bool) {
	s.ToolCalls++
	s.InputBytes += inBytes
	s.OutputBytes += outBytes
	if isError {
		s.ToolErrors++
	}
}

// Fields renders the stats as event fields.
func (s *TurnStats) Fields() map[string]any {
	return map[string]any{
		"rounds":         s.Rounds,
		"tool_calls":     s.ToolCalls,
		"tool_errors":    s.ToolErrors,
		"tool_in_bytes":  s.InputBytes,
		"tool_out_bytes": s.OutputBytes,
		"remote_ms":      s.RemoteMillis,
		"elapsed_ms":     time.Since(s.started).Milliseconds(),
	}
}
