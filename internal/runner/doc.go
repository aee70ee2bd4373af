// Package runner drives the conversation between the operator and the model.
//
// One operator turn:
//
//	operator(text) -> assistant(tool_use...) -> tool_results -> ... -> assistant(text)
//
// Invariants:
//   - Every tool_use of an assistant turn that stopped for tools is answered by
//     exactly one tool_result in the next message, before the next request.
//   - A failed request or an exceeded round cap rolls the conversation back to
//     where it was before the operator turn started.
//   - Tool calls run one at a time, in the order the model listed them.
package runner
