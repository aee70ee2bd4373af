package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/code-agent/tools"
)

// ErrUnpairedResults is returned when tool results do not answer the pending calls exactly.
var ErrUnpairedResults = errors.New("tool results do not match pending tool calls")

// Kind tags a Turn.
type Kind int

const (
	KindOperator Kind = iota
	KindAssistant
	KindToolResults
)

func (k Kind) String() string {
	switch k {
	case KindOperator:
		return "operator"
	case KindAssistant:
		return "assistant"
	case KindToolResults:
		return "tool_results"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Block is one element of an assistant turn: text, or a tool call when Call is set.
type Block struct {
	Text string
	Call *tools.Call
}

// Turn is one entry in the conversation. Which fields are set depends on Kind.
type Turn struct {
	Kind       Kind
	Text       string             // operator
	Blocks     []Block            // assistant
	StopReason string             // assistant
	Results    []tools.CallResult // tool_results

	param anthropic.MessageParam
}

// Calls returns the tool calls of an assistant turn in order.
func (t Turn) Calls() []tools.Call {
	var out []tools.Call
	for _, b := range t.Blocks {
		if b.Call != nil {
			out = append(out, *b.Call)
		}
	}
	return out
}

// AssistantText joins the text blocks of an assistant turn.
func (t Turn) AssistantText() string {
	var parts []string
	for _, b := range t.Blocks {
		if b.Call == nil && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// WantsTools reports whether the turn stopped to request tool execution and
// carries at least one call. A tool_use stop without calls is a final answer.
func (t Turn) WantsTools() bool {
	if t.Kind != KindAssistant || t.StopReason != string(anthropic.StopReasonToolUse) {
		return false
	}
	for _, b := range t.Blocks {
		if b.Call != nil {
			return true
		}
	}
	return false
}

// Conversation is the ordered transcript of one session. It is owned by a
// single runner and is not safe for concurrent use.
type Conversation struct {
	turns []Turn
}

// New returns an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// AppendOperator records operator text.
func (c *Conversation) AppendOperator(text string) Turn {
	t := Turn{
		Kind:  KindOperator,
		Text:  text,
		param: anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
	}
	c.turns = append(c.turns, t)
	return t
}

// AppendAssistant records a model reply. Tool calls are kept only when the
// reply stopped for tool use; otherwise they could never be answered. Empty
// text blocks are dropped since the API rejects them on the way back.
func (c *Conversation) AppendAssistant(msg *anthropic.Message) Turn {
	keepCalls := msg.StopReason == anthropic.StopReasonToolUse
	p := msg.ToParam()

	t := Turn{Kind: KindAssistant, StopReason: string(msg.StopReason)}
	content := make([]anthropic.ContentBlockParamUnion, 0, len(p.Content))
	for i, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text == "" {
				continue
			}
			t.Blocks = append(t.Blocks, Block{Text: v.Text})
		case anthropic.ToolUseBlock:
			if !keepCalls {
				continue
			}
			t.Blocks = append(t.Blocks, Block{Call: &tools.Call{
				ID:    v.ID,
				Name:  v.Name,
				Input: json.RawMessage(v.JSON.Input.Raw()),
			}})
		}
		if i < len(p.Content) {
			content = append(content, p.Content[i])
		}
	}
	p.Content = content
	t.param = p

	c.turns = append(c.turns, t)
	return t
}

// PendingCalls returns the calls of the last turn when it is an assistant turn
// awaiting tool results.
func (c *Conversation) PendingCalls() []tools.Call {
	if len(c.turns) == 0 {
		return nil
	}
	last := c.turns[len(c.turns)-1]
	if !last.WantsTools() {
		return nil
	}
	return last.Calls()
}

// AppendToolResults records the answers to the pending calls. Results must
// cover every pending call exactly once; order follows the slice given.
func (c *Conversation) AppendToolResults(results []tools.CallResult) error {
	pending := c.PendingCalls()
	if len(pending) == 0 {
		return fmt.Errorf("%w: no pending tool calls", ErrUnpairedResults)
	}
	if len(results) != len(pending) {
		return fmt.Errorf("%w: %d results for %d calls", ErrUnpairedResults, len(results), len(pending))
	}
	want := make(map[string]struct{}, len(pending))
	for _, call := range pending {
		want[call.ID] = struct{}{}
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		if _, ok := want[r.CallID]; !ok {
			return fmt.Errorf("%w: unexpected or repeated id %q", ErrUnpairedResults, r.CallID)
		}
		delete(want, r.CallID)
		blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Content, r.IsError))
	}

	c.turns = append(c.turns, Turn{
		Kind:    KindToolResults,
		Results: append([]tools.CallResult(nil), results...),
		param:   anthropic.NewUserMessage(blocks...),
	})
	return nil
}

// Checkpoint marks the current end of the conversation.
func (c *Conversation) Checkpoint() int {
	return len(c.turns)
}

// Rollback discards every turn appended after cp.
func (c *Conversation) Rollback(cp int) {
	if cp < 0 {
		cp = 0
	}
	if cp < len(c.turns) {
		clear(c.turns[cp:])
		c.turns = c.turns[:cp]
	}
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Turns returns a copy of the turns in order.
func (c *Conversation) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

// Messages returns the wire transcript. Assistant turns without content are
// omitted since the API rejects empty messages.
func (c *Conversation) Messages() []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(c.turns))
	for _, t := range c.turns {
		if len(t.param.Content) == 0 {
			continue
		}
		out = append(out, t.param)
	}
	return out
}
