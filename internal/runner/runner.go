package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/petasbytes/code-agent/internal/errorsx"
	"github.com/petasbytes/code-agent/internal/logging"
	"github.com/petasbytes/code-agent/internal/metrics"
	"github.com/petasbytes/code-agent/internal/provider"
	"github.com/petasbytes/code-agent/internal/telemetry"
	"github.com/petasbytes/code-agent/internal/ui"
	"github.com/petasbytes/code-agent/internal/windowing"
	"github.com/petasbytes/code-agent/memory"
	"github.com/petasbytes/code-agent/tools"
)

const (
	DefaultMaxTokens     int64 = 8096
	DefaultMaxToolRounds       = 25
)

// ErrToolRoundLimit is returned when the model keeps asking for tools past the round cap.
var ErrToolRoundLimit = errors.New("tool round limit reached")

// ErrOverBudget is returned when the current operator turn alone exceeds the token budget.
var ErrOverBudget = errors.New("current turn exceeds token budget")

// Runner owns one conversation and drives it turn by turn.
type Runner struct {
	client     *anthropic.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	conv       *memory.Conversation

	ui      Presenter
	events  *telemetry.Sink
	baseLog *slog.Logger
	log     *slog.Logger

	model       anthropic.Model
	maxTokens   int64
	system      string
	maxRounds   int
	tokenBudget int
	counter     windowing.TokenCounter

	state     State
	sessionID string
}

func New(client *anthropic.Client, registry *tools.Registry, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		registry:  registry,
		conv:      memory.New(),
		model:     provider.DefaultModel,
		maxTokens: DefaultMaxTokens,
		maxRounds: DefaultMaxToolRounds,
		counter:   windowing.HeuristicCounter{},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseLog == nil {
		r.baseLog = slog.Default()
	}
	if r.ui == nil {
		r.ui = ui.NewConsole(os.Stdout, os.Stderr, false)
	}
	r.log = logging.NewComponentLogger(r.baseLog, "runner")
	r.dispatcher = tools.NewDispatcher(registry, r.events, logging.NewComponentLogger(r.baseLog, "dispatcher"))
	return r
}

// State reports where the loop currently is.
func (r *Runner) State() State { return r.state }

// Turns returns a copy of the transcript.
func (r *Runner) Turns() []memory.Turn { return r.conv.Turns() }

func (r *Runner) setState(s State) {
	if r.state != s {
		r.log.Debug("state", "from", r.state.String(), "to", s.String())
	}
	r.state = s
}

// Run reads operator lines from in until exit/quit, end of input or ctx
// cancellation. Errors from individual turns are shown and the loop goes on.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	r.log.Info("session started", "session_id", r.sessionID, "model", string(r.model), "tools", r.registry.Len())
	defer r.setState(StateEnded)

	for {
		r.setState(StateAwaitingInput)
		r.ui.Prompt()

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			r.log.Info("session cancelled", "session_id", r.sessionID)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			default:
			}
			r.log.Info("end of input", "session_id", r.sessionID)
			return nil
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if isExit(text) {
			r.ui.Goodbye()
			return nil
		}
		if err := r.Submit(ctx, text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.ui.Error(err)
		}
	}
}

func isExit(text string) bool {
	return strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit")
}

// Submit runs one operator turn to completion: it sends the transcript,
// executes requested tools and repeats until the model answers without tools.
// On failure the transcript is restored to its state before the turn.
func (r *Runner) Submit(ctx context.Context, text string) error {
	turnID := uuid.NewString()
	ctx = telemetry.WithTurnID(telemetry.WithSessionID(ctx, r.sessionID), turnID)
	cp := r.conv.Checkpoint()
	stats := metrics.StartTurn()

	r.conv.AppendOperator(text)
	r.events.EmitLocalFeatures(ctx, text)

	err := r.loop(ctx, stats)
	if err != nil {
		r.conv.Rollback(cp)
	}
	r.finishTurn(turnID, stats, err)
	return err
}

func (r *Runner) loop(ctx context.Context, stats *metrics.TurnStats) error {
	for round := 0; ; round++ {
		msg, err := r.send(ctx, stats)
		if err != nil {
			return err
		}
		turn := r.conv.AppendAssistant(msg)

		if !turn.WantsTools() {
			r.setState(StatePresenting)
			for _, b := range turn.Blocks {
				if b.Text != "" {
					r.ui.AssistantText(b.Text)
				}
			}
			return nil
		}
		if r.maxRounds > 0 && round >= r.maxRounds {
			return errorsx.Wrap(fmt.Errorf("%w (%d rounds)", ErrToolRoundLimit, r.maxRounds), errorsx.ReasonToolRoundLimit)
		}

		r.setState(StateExecutingTools)
		results := make([]tools.CallResult, 0, len(turn.Blocks))
		for _, b := range turn.Blocks {
			if b.Call == nil {
				if b.Text != "" {
					r.ui.AssistantText(b.Text)
				}
				continue
			}
			r.ui.ToolCall(b.Call.Name, tools.SummarizeInput(b.Call.Input))
			res := r.dispatcher.Dispatch(ctx, *b.Call)
			stats.AddTool(len(b.Call.Input), len(res.Content), res.IsError)
			results = append(results, res)
		}
		if err := r.conv.AppendToolResults(results); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonTranscriptInvalid)
		}
	}
}

// send prepares the request window and performs one Messages call.
func (r *Runner) send(ctx context.Context, stats *metrics.TurnStats) (*anthropic.Message, error) {
	r.setState(StateCallingRemote)
	turnID, _ := telemetry.TurnIDFromContext(ctx)

	msgs := r.conv.Messages()
	if err := windowing.CheckPairs(msgs); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTranscriptInvalid)
	}

	window := msgs
	fields := map[string]any{
		"turn_id":  turnID,
		"model":    string(r.model),
		"messages": len(msgs),
	}
	if r.tokenBudget > 0 {
		var ws windowing.Stats
		window, ws = windowing.PrepareSendWindow(msgs, r.tokenBudget, r.counter)
		fields["budget"] = ws.Budget
		fields["total_estimated"] = ws.Total
		fields["included_groups"] = ws.IncludedGroups
		fields["skipped_groups"] = ws.SkippedGroups
		fields["realigned_groups"] = ws.Realigned
		fields["over_budget_newest"] = ws.OverBudgetNewest
		if ws.OverBudgetNewest || len(window) == 0 {
			r.events.Emit("request_prepared", fields)
			return nil, errorsx.Wrap(fmt.Errorf("%w (budget %d)", ErrOverBudget, r.tokenBudget), errorsx.ReasonTranscriptInvalid)
		}
	}
	fields["sent_messages"] = len(window)
	r.events.Emit("request_prepared", fields)

	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages:  window,
		Tools:     r.registry.Params(),
	}
	if r.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.system}}
	}

	stop := r.ui.Thinking()
	start := time.Now()
	msg, err := r.client.Messages.New(ctx, params)
	stop()
	stats.AddRemote(time.Since(start))

	if err != nil {
		err = provider.Classify(err)
		r.events.Emit("remote_error", map[string]any{
			"turn_id": turnID,
			"reason":  string(errorsx.Reason(err)),
		})
		r.log.Warn("remote call failed", "turn_id", turnID, "reason", errorsx.Reason(err), "err", err)
		return nil, fmt.Errorf("remote call: %w", err)
	}
	r.log.Debug("remote reply", "turn_id", turnID, "stop_reason", string(msg.StopReason), "blocks", len(msg.Content))
	return msg, nil
}

func (r *Runner) finishTurn(turnID string, stats *metrics.TurnStats, err error) {
	fields := stats.Fields()
	fields["turn_id"] = turnID
	fields["session_id"] = r.sessionID
	if err != nil {
		fields["outcome"] = "error"
		fields["reason"] = string(errorsx.Reason(err))
		r.log.Info("turn failed", "turn_id", turnID, "reason", errorsx.Reason(err))
	} else {
		fields["outcome"] = "ok"
		r.log.Info("turn complete", "turn_id", turnID, "rounds", stats.Rounds, "tool_calls", stats.ToolCalls)
	}
	r.events.Emit("turn_complete", fields)
}
