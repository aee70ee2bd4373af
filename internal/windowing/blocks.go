// Package windowing guards and trims the transcript sent on each remote call.
// A tool_use message and the tool_result message answering it form one atomic
// group: they are validated together and dropped together.
package windowing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrOrphanedToolUse reports a tool_use block with no matching tool_result in
// the next message, or a tool_result that answers nothing.
var ErrOrphanedToolUse = errors.New("windowing: unpaired tool_use/tool_result")

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
type Group struct {
	Kind  GroupKind
	Start int // inclusive
	End   int // exclusive
}

// GroupBlocks groups messages into atomic units that preserve tool-use pairs.
//   - A pair is exactly two adjacent messages: assistant(tool_use...) then user(tool_result...).
//   - In the user message every tool_result block comes first; trailing text is allowed.
//   - Every tool_use id must be answered, and no result may answer an id that was not asked.
//   - Error results pair the same way as successful ones.
func GroupBlocks(msgs []anthropic.MessageParam) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if reason := pairAt(msgs, i); reason == "" {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
			i += 2
			continue
		} else if reason != reasonNoToolUse {
			debug("exclude pair", "reason", reason, "idx", i)
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// CheckPairs verifies that every assistant tool_use is immediately answered and
// that no tool_result appears outside such a pair.
func CheckPairs(msgs []anthropic.MessageParam) error {
	for i := 0; i < len(msgs); {
		reason := pairAt(msgs, i)
		switch {
		case reason == "":
			i += 2
			continue
		case reason != reasonNoToolUse:
			return fmt.Errorf("%w: message %d: %s", ErrOrphanedToolUse, i, reason)
		}
		if hasToolResult(msgs[i]) {
			return fmt.Errorf("%w: message %d: tool_result without preceding tool_use", ErrOrphanedToolUse, i)
		}
		i++
	}
	return nil
}

const (
	reasonNoToolUse      = "no_tool_use"
	reasonNotFollowed    = "not_followed_by_user"
	reasonOrdering       = "ordering_invalid"
	reasonMissingResults = "missing_results"
	reasonExtraResults   = "extra_results"
)

// pairAt returns "" when msgs[i], msgs[i+1] form a valid pair, otherwise the reason it does not.
func pairAt(msgs []anthropic.MessageParam, i int) string {
	m := msgs[i]
	if !isAssistant(m) {
		return reasonNoToolUse
	}
	useIDs := collectToolUseIDs(m)
	if len(useIDs) == 0 {
		return reasonNoToolUse
	}
	if i+1 >= len(msgs) || !isUser(msgs[i+1]) {
		return reasonNotFollowed
	}
	valid, resultIDs := leadingToolResultIDs(msgs[i+1])
	switch {
	case !valid:
		return reasonOrdering
	case !coversAll(resultIDs, useIDs):
		return reasonMissingResults
	case !coversAll(useIDs, resultIDs):
		return reasonExtraResults
	}
	return ""
}

func isAssistant(m anthropic.MessageParam) bool {
	return m.Role == anthropic.MessageParamRoleAssistant
}

func isUser(m anthropic.MessageParam) bool {
	return m.Role == anthropic.MessageParamRoleUser
}

func hasToolResult(m anthropic.MessageParam) bool {
	for _, blk := range m.Content {
		if blk.OfToolResult != nil {
			return true
		}
	}
	return false
}

// collectToolUseIDs returns the set of tool_use ids present in an assistant message.
func collectToolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingToolResultIDs collects ids from the leading tool_result segment of a
// user message; valid is false when a tool_result follows a non-result block.
func leadingToolResultIDs(m anthropic.MessageParam) (valid bool, resultIDs map[string]struct{}) {
	resultIDs = make(map[string]struct{})
	seenNonResult := false
	for _, blk := range m.Content {
		if tr := blk.OfToolResult; tr != nil {
			if seenNonResult {
				return false, resultIDs
			}
			if tr.ToolUseID != "" {
				resultIDs[tr.ToolUseID] = struct{}{}
			}
			continue
		}
		seenNonResult = true
	}
	return true, resultIDs
}

// coversAll checks that every id in required is present in have.
func coversAll(have, required map[string]struct{}) bool {
	for id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

func debug(msg string, args ...any) {
	slog.Default().Debug(msg, append([]any{"component", "windowing"}, args...)...)
}
