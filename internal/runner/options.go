package runner

import (
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/petasbytes/code-agent/internal/telemetry"
	"github.com/petasbytes/code-agent/internal/windowing"
)

// Presenter renders the conversation for the operator.
type Presenter interface {
	Prompt()
	AssistantText(text string)
	ToolCall(name, summary string)
	Error(err error)
	Goodbye()
	Thinking() (stop func())
}

// Option configures a Runner.
type Option func(*Runner)

func WithPresenter(p Presenter) Option {
	return func(r *Runner) { r.ui = p }
}

func WithEvents(s *telemetry.Sink) Option {
	return func(r *Runner) { r.events = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.baseLog = l }
}

func WithModel(m anthropic.Model) Option {
	return func(r *Runner) { r.model = m }
}

func WithMaxTokens(n int64) Option {
	return func(r *Runner) { r.maxTokens = n }
}

func WithSystemPrompt(s string) Option {
	return func(r *Runner) { r.system = s }
}

// WithMaxToolRounds caps tool rounds per operator turn; 0 means unlimited.
func WithMaxToolRounds(n int) Option {
	return func(r *Runner) { r.maxRounds = n }
}

// WithTokenBudget windows the transcript to budget estimated tokens; 0 sends everything.
func WithTokenBudget(budget int, c windowing.TokenCounter) Option {
	return func(r *Runner) {
		r.tokenBudget = budget
		if c != nil {
			r.counter = c
		}
	}
}
