package windowing

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m anthropic.MessageParam) int
	CountGroup(g Group, all []anthropic.MessageParam) int
}

// HeuristicCounter is a deterministic rune-based estimator. Every block costs a
// fixed overhead plus the runes of its text, its tool_result text, or its
// tool_use name and raw input.
type HeuristicCounter struct{}

// Fixed per-block overhead; the counter tests pin it.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += countBlock(blk)
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []anthropic.MessageParam) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}

// Helpers

func countBlock(blk anthropic.ContentBlockParamUnion) int {
	if tb := blk.OfText; tb != nil {
		return utf8.RuneCountInString(tb.Text) + blockOverhead
	}

	if tr := blk.OfToolResult; tr != nil {
		if nested, ok := any(tr.Content).([]anthropic.ToolResultBlockParamContentUnion); ok {
			subtotal := 0
			for _, nb := range nested {
				if nt := nb.OfText; nt != nil {
					subtotal += utf8.RuneCountInString(nt.Text)
				}
			}
			return subtotal + blockOverhead
		}
		if s, ok := any(tr.Content).(string); ok {
			return utf8.RuneCountInString(s) + blockOverhead
		}

		debug("unsupported tool_result payload", "type", fmt.Sprintf("%T", tr.Content))
		return blockOverhead
	}

	// tool_use: name plus raw input size
	if tu := blk.OfToolUse; tu != nil {
		n := utf8.RuneCountInString(tu.Name) + blockOverhead
		if raw, ok := tu.Input.(json.RawMessage); ok {
			n += utf8.RuneCount(raw)
		}
		return n
	}

	return blockOverhead
}
