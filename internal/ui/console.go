// Package ui renders the conversation on a terminal.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Console writes prompts, replies and tool activity to out and errors to errOut.
type Console struct {
	out    io.Writer
	errOut io.Writer
	live   bool // animate the thinking indicator

	prompt    *color.Color
	assistant *color.Color
	tool      *color.Color
	failure   *color.Color
	muted     *color.Color
}

// NewConsole returns a console. With plain set, output carries no ANSI
// sequences and the thinking indicator stays silent.
func NewConsole(out, errOut io.Writer, plain bool) *Console {
	c := &Console{
		out:       out,
		errOut:    errOut,
		live:      !plain && !color.NoColor,
		prompt:    color.New(color.FgGreen, color.Bold),
		assistant: color.New(color.FgCyan),
		tool:      color.New(color.FgYellow),
		failure:   color.New(color.FgRed),
		muted:     color.New(color.Faint),
	}
	if plain {
		for _, col := range []*color.Color{c.prompt, c.assistant, c.tool, c.failure, c.muted} {
			col.DisableColor()
		}
	}
	return c
}

// Greeting prints the ready line and the exit hint.
func (c *Console) Greeting() {
	fmt.Fprintln(c.out, "Code Editing Agent - Ready")
	c.muted.Fprintln(c.out, "Type 'exit' or 'quit' to end the conversation")
	fmt.Fprintln(c.out)
}

// Prompt prints the input marker without a newline.
func (c *Console) Prompt() {
	c.prompt.Fprint(c.out, "> ")
}

// AssistantText prints one text block from the model.
func (c *Console) AssistantText(text string) {
	c.assistant.Fprintln(c.out, text)
}

// ToolCall prints the tool name and a compact summary of its input.
func (c *Console) ToolCall(name, summary string) {
	c.tool.Fprintf(c.out, "⚡ %s: %s\n", name, summary)
}

// Error prints err to the error stream.
func (c *Console) Error(err error) {
	c.failure.Fprintf(c.errOut, "Error: %v\n", err)
}

// Goodbye prints the farewell.
func (c *Console) Goodbye() {
	fmt.Fprintln(c.out, "Goodbye!")
}

// Thinking starts the indicator shown while a request is in flight and
// returns the function that clears it. Calling stop more than once is safe.
func (c *Console) Thinking() (stop func()) {
	if !c.live {
		return func() {}
	}
	sp := spinner.New(spinner.CharSets[14], 80*time.Millisecond,
		spinner.WithWriter(c.out),
		spinner.WithSuffix(" Thinking..."),
		spinner.WithHiddenCursor(true),
	)
	sp.Start()
	var once sync.Once
	return func() {
		once.Do(sp.Stop)
	}
}
