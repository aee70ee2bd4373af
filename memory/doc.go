// Package memory holds the conversation state for one session.
//
// Model:
//   - A Conversation is an append-only list of turns: operator text, assistant
//     blocks (text and tool calls), and tool results.
//   - An assistant turn that stops for tool use must be answered by exactly one
//     tool-results turn covering every call, before anything else is appended.
//   - Checkpoint/Rollback drop everything after a point, so a failed operator
//     turn leaves no trace.
//
// State lives in memory only and ends with the process.
package memory
