package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/petasbytes/code-agent/internal/safety"
	"github.com/petasbytes/code-agent/internal/telemetry"
)

// Dispatcher executes tool calls against a Registry. It never returns an
// error or panics outward: every failure becomes an error-flagged CallResult.
type Dispatcher struct {
	registry *Registry
	events   *telemetry.Sink
	log      *slog.Logger
}

// NewDispatcher returns a dispatcher over reg. events and log may be nil.
func NewDispatcher(reg *Registry, events *telemetry.Sink, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{registry: reg, events: events, log: log}
}

// Dispatch resolves, validates and runs a single call.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) CallResult {
	start := time.Now()
	res, class := d.run(ctx, call)
	elapsed := time.Since(start)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"turn_id":     turnID,
		"tool_name":   call.Name,
		"duration_ms": elapsed.Milliseconds(),
		"input_size":  len(call.Input),
		"output_size": len(res.Content),
		"error":       nil,
	}
	if class != "" {
		fields["error"] = class
	}
	d.events.Emit("tool_exec", fields)
	d.log.Debug("tool executed",
		"tool", call.Name,
		"call_id", call.ID,
		"duration", elapsed,
		"is_error", res.IsError,
		"error_class", class,
	)

	return CallResult{CallID: call.ID, Content: res.Content, IsError: res.IsError}
}

// DispatchAll runs calls one at a time in request order and returns one
// result per call, in the same order.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []Call) []CallResult {
	out := make([]CallResult, 0, len(calls))
	for _, c := range calls {
		out = append(out, d.Dispatch(ctx, c))
	}
	return out
}

// run returns the handler result plus a payload-free error class for telemetry.
func (d *Dispatcher) run(ctx context.Context, call Call) (res Result, class string) {
	def, ok := d.registry.Lookup(call.Name)
	if !ok {
		return Errorf("Unknown tool: %s", call.Name), "unknown_tool"
	}
	if err := validateInput(def.InputSchema, call.Input); err != nil {
		return Errorf("invalid input for %s: %v", call.Name, trimKind(err)), "invalid_input"
	}

	defer func() {
		if p := recover(); p != nil {
			d.log.Error("tool panicked", "tool", call.Name, "panic", p)
			res, class = Errorf("tool %s failed: %v", call.Name, p), "panic"
		}
	}()

	res = def.Function(ctx, call.Input)
	if res.IsError {
		return res, errorClass(res)
	}
	return res, ""
}

// errorClass maps a failed result to a coarse class without leaking content.
func errorClass(res Result) string {
	var te safety.ToolError
	if err := codec.UnmarshalFromString(res.Content, &te); err == nil && te.Code != "" {
		return te.Code
	}
	return "tool_error"
}

// trimKind drops the ErrInvalidInput prefix so the message reads once.
func trimKind(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}
