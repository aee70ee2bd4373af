package tools

import (
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrInvalidTool is returned for a definition without a name or handler.
	ErrInvalidTool = errors.New("invalid tool definition")
)

// Registry holds tool definitions in registration order. It is populated at
// startup and read on every request; late registration is safe.
type Registry struct {
	mu    sync.RWMutex
	tools *orderedmap.OrderedMap[string, ToolDefinition]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: orderedmap.New[string, ToolDefinition]()}
}

// NewDefaultRegistry returns a registry with the file tools wired for the agent.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(ReadFileDefinition)
	r.MustRegister(ListFilesDefinition)
	r.MustRegister(EditFileDefinition)
	return r
}

// Register adds def. Names are unique; re-registration is rejected.
func (r *Registry) Register(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if def.Function == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, def.Name)
	}
	if def.InputSchema == nil {
		def.InputSchema = GenerateSchema[struct{}]()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools.Get(def.Name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.tools.Set(def.Name, def)
	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(def ToolDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered under exactly name.
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.Get(name)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.Len()
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// ExportSchemas returns the advertised view of every tool in registration order.
func (r *Registry) ExportSchemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schema, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		out = append(out, Schema{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	return out
}

// Params converts ExportSchemas into the Messages API tool list.
func (r *Registry) Params() []anthropic.ToolUnionParam {
	schemas := r.ExportSchemas()
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		input := anthropic.ToolInputSchemaParam{}
		if s.InputSchema != nil {
			input.Properties = s.InputSchema.Properties
			input.Required = s.InputSchema.Required
			if s.InputSchema.AdditionalProperties == jsonschema.FalseSchema {
				input.ExtraFields = map[string]any{"additionalProperties": false}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        s.Name,
			Description: anthropic.String(s.Description),
			InputSchema: input,
		}})
	}
	return out
}
