package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// HandlerFunc executes one tool call. Input is the raw JSON object sent by the
// model and has already been checked against the tool's schema.
type HandlerFunc func(ctx context.Context, input json.RawMessage) Result

// ToolDefinition describes a capability offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    HandlerFunc
}

// Schema is the exported, handler-free view of a definition.
type Schema struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// CallResult answers exactly one Call, matched by CallID.
type CallResult struct {
	CallID  string
	Content string
	IsError bool
}
