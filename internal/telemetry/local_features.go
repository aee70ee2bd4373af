package telemetry

import (
	"context"

	"github.com/petasbytes/code-agent/internal/metrics"
)

// EmitLocalFeatures records size features of an operator message without the text itself.
func (s *Sink) EmitLocalFeatures(ctx context.Context, user string) {
	if !s.Enabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	fields := map[string]any{
		"turn_id":          turnID,
		"features_version": FeaturesVersion,
		"user":             metrics.CountFeatures(user).Fields(),
	}
	if sid, ok := SessionIDFromContext(ctx); ok {
		fields["session_id"] = sid
	}
	s.Emit("local_features", fields)
}
