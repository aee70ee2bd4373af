package tools

import "github.com/invopop/jsonschema"

// GenerateSchema reflects T into an inline object schema. Fields without
// omitempty are required; additional properties are rejected.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// schemaProperties returns the top-level property schemas keyed by name.
func schemaProperties(s *jsonschema.Schema) map[string]*jsonschema.Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	out := make(map[string]*jsonschema.Schema, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}
