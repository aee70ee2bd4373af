// Package tools defines the tool contract, the registry the agent advertises
// to the model, and the dispatcher that executes tool calls.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: ordered name → definition map, exported as wire schemas per request.
//   - Dispatcher: lookup, input validation, panic-safe invocation; never fails outward.
//   - File tools: read_file, list_files (non-recursive), edit_file.
package tools
