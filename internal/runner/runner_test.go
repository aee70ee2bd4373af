package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/petasbytes/code-agent/internal/errorsx"
	"github.com/petasbytes/code-agent/internal/fsops"
	"github.com/petasbytes/code-agent/internal/logging"
	"github.com/petasbytes/code-agent/internal/provider"
	"github.com/petasbytes/code-agent/internal/runner"
	"github.com/petasbytes/code-agent/internal/telemetry"
	"github.com/petasbytes/code-agent/memory"
	"github.com/petasbytes/code-agent/tools"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "runner-tests-")
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "foo.txt"), []byte("bar\n"), 0o644); err != nil {
		panic(err)
	}
	if err := fsops.SetRoots(dir, dir); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// scripted replays canned responses in order and captures each request body.
type scripted struct {
	mu        sync.Mutex
	responses []reply
	bodies    [][]byte
}

type reply struct {
	status int
	body   string
}

func (s *scripted) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, b)
	rp := reply{status: 500, body: `{"type":"error","error":{"type":"api_error","message":"script exhausted"}}`}
	if len(s.responses) > 0 {
		rp = s.responses[0]
		s.responses = s.responses[1:]
	}
	resp := &http.Response{
		StatusCode: rp.status,
		Body:       io.NopCloser(strings.NewReader(rp.body)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (s *scripted) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func message(stop string, content string) reply {
	return reply{status: 200, body: fmt.Sprintf(
		`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":%s,"stop_reason":%q,"usage":{"input_tokens":1,"output_tokens":1}}`,
		content, stop)}
}

func textReply(text string) reply {
	return message("end_turn", fmt.Sprintf(`[{"type":"text","text":%q}]`, text))
}

func toolReply(id, name, input string) reply {
	return message("tool_use", fmt.Sprintf(`[{"type":"tool_use","id":%q,"name":%q,"input":%s}]`, id, name, input))
}

// recorder is a Presenter that keeps what would have been shown.
type recorder struct {
	lines []string
}

func (r *recorder) Prompt()                       { r.lines = append(r.lines, "prompt") }
func (r *recorder) AssistantText(text string)     { r.lines = append(r.lines, "text:"+text) }
func (r *recorder) ToolCall(name, summary string) { r.lines = append(r.lines, "tool:"+name+" "+summary) }
func (r *recorder) Error(err error)               { r.lines = append(r.lines, "error:"+err.Error()) }
func (r *recorder) Goodbye()                      { r.lines = append(r.lines, "goodbye") }
func (r *recorder) Thinking() func()              { return func() {} }

func (r *recorder) has(prefix string) bool {
	for _, l := range r.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func newRunner(t *testing.T, sc *scripted, opts ...runner.Option) (*runner.Runner, *recorder) {
	t.Helper()
	cli := provider.NewAnthropicClient(provider.Options{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: sc},
	})
	rec := &recorder{}
	base := []runner.Option{runner.WithPresenter(rec), runner.WithLogger(logging.Discard())}
	return runner.New(cli, tools.NewDefaultRegistry(), append(base, opts...)...), rec
}

type wireContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ToolUseID string          `json:"tool_use_id"`
	IsError   bool            `json:"is_error"`
	Content   json.RawMessage `json:"content"`
}

type wireRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
	Messages []struct {
		Role    string        `json:"role"`
		Content []wireContent `json:"content"`
	} `json:"messages"`
}

func decodeRequest(t *testing.T, sc *scripted, i int) wireRequest {
	t.Helper()
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if i >= len(sc.bodies) {
		t.Fatalf("request %d not sent; have %d", i, len(sc.bodies))
	}
	var req wireRequest
	if err := json.Unmarshal(sc.bodies[i], &req); err != nil {
		t.Fatalf("unmarshal request %d: %v\nbody=%s", i, err, sc.bodies[i])
	}
	return req
}

// resultText flattens a tool_result content field (string or text blocks).
func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(raw, &blocks)
	var parts []string
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "")
}

func TestSubmit_PlainReply(t *testing.T) {
	sc := &scripted{responses: []reply{textReply("Hi there")}}
	r, rec := newRunner(t, sc, runner.WithSystemPrompt("be brief"))

	if err := r.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sc.requests() != 1 {
		t.Fatalf("requests: got %d want 1", sc.requests())
	}
	turns := r.Turns()
	if len(turns) != 2 || turns[0].Kind != memory.KindOperator || turns[1].AssistantText() != "Hi there" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
	if !rec.has("text:Hi there") {
		t.Fatalf("reply not presented: %v", rec.lines)
	}

	req := decodeRequest(t, sc, 0)
	if req.Model != string(provider.DefaultModel) || req.MaxTokens != int(runner.DefaultMaxTokens) {
		t.Fatalf("model/max_tokens: %+v", req)
	}
	if len(req.System) != 1 || req.System[0].Text != "be brief" {
		t.Fatalf("system prompt not sent: %+v", req.System)
	}
	if len(req.Tools) != 3 {
		t.Fatalf("tools advertised: got %d want 3", len(req.Tools))
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content[0].Text != "hello" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
}

func TestSubmit_ToolRoundThenAnswer(t *testing.T) {
	sc := &scripted{responses: []reply{
		toolReply("toolu_1", "read_file", `{"file_path":"foo.txt"}`),
		textReply("It says bar."),
	}}
	r, rec := newRunner(t, sc)

	if err := r.Submit(context.Background(), "read foo.txt"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sc.requests() != 2 {
		t.Fatalf("requests: got %d want 2", sc.requests())
	}
	turns := r.Turns()
	if len(turns) != 4 {
		t.Fatalf("turns: got %d want 4", len(turns))
	}
	if turns[2].Kind != memory.KindToolResults || len(turns[2].Results) != 1 || turns[2].Results[0].IsError {
		t.Fatalf("unexpected tool results turn: %+v", turns[2])
	}
	if !rec.has(`tool:read_file {"file_path":"foo.txt"}`) || !rec.has("text:It says bar.") {
		t.Fatalf("unexpected presentation: %v", rec.lines)
	}

	req := decodeRequest(t, sc, 1)
	if len(req.Messages) != 3 {
		t.Fatalf("second request messages: got %d want 3", len(req.Messages))
	}
	last := req.Messages[2]
	if last.Role != "user" || last.Content[0].Type != "tool_result" || last.Content[0].ToolUseID != "toolu_1" {
		t.Fatalf("unexpected tool_result message: %+v", last)
	}
	if !strings.Contains(resultText(last.Content[0].Content), "bar") {
		t.Fatalf("tool_result lacks file content: %s", last.Content[0].Content)
	}
}

func TestSubmit_UnknownToolReportedToModel(t *testing.T) {
	sc := &scripted{responses: []reply{
		toolReply("toolu_x", "delete_file", `{"path":"foo.txt"}`),
		textReply("I cannot delete files."),
	}}
	r, _ := newRunner(t, sc)

	if err := r.Submit(context.Background(), "delete foo.txt"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := decodeRequest(t, sc, 1)
	res := req.Messages[2].Content[0]
	if !res.IsError || resultText(res.Content) != "Unknown tool: delete_file" {
		t.Fatalf("unexpected tool_result: %+v (%s)", res, res.Content)
	}
	if _, err := os.Stat(filepath.Join(mustRoot(t), "foo.txt")); err != nil {
		t.Fatalf("foo.txt should still exist: %v", err)
	}
}

func TestSubmit_MultipleCallsAnsweredInOrder(t *testing.T) {
	sc := &scripted{responses: []reply{
		message("tool_use", `[
			{"type":"text","text":"Looking."},
			{"type":"tool_use","id":"t1","name":"list_files","input":{}},
			{"type":"tool_use","id":"t2","name":"read_file","input":{"file_path":"missing.txt"}}
		]`),
		textReply("done"),
	}}
	r, rec := newRunner(t, sc)

	if err := r.Submit(context.Background(), "look around"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := decodeRequest(t, sc, 1)
	results := req.Messages[2].Content
	if len(results) != 2 || results[0].ToolUseID != "t1" || results[1].ToolUseID != "t2" {
		t.Fatalf("results out of order: %+v", results)
	}
	if results[0].IsError || !results[1].IsError {
		t.Fatalf("unexpected error flags: %+v", results)
	}
	if len(rec.lines) < 3 || rec.lines[0] != "text:Looking." || !strings.HasPrefix(rec.lines[1], "tool:list_files") {
		t.Fatalf("blocks not presented in order: %v", rec.lines)
	}
}

func TestSubmit_RemoteFailureRollsBack(t *testing.T) {
	sc := &scripted{responses: []reply{
		textReply("first"),
		{status: 500, body: `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`},
	}}
	r, _ := newRunner(t, sc)

	if err := r.Submit(context.Background(), "one"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	err := r.Submit(context.Background(), "two")
	if err == nil {
		t.Fatal("expected remote failure")
	}
	if !errorsx.HasReason(err, errorsx.ReasonRemoteCall) {
		t.Fatalf("reason: got %q", errorsx.Reason(err))
	}
	if n := len(r.Turns()); n != 2 {
		t.Fatalf("transcript not rolled back: %d turns", n)
	}
	if r.State() != runner.StateCallingRemote {
		t.Fatalf("state after failure: %s", r.State())
	}
}

func TestSubmit_ToolRoundLimit(t *testing.T) {
	sc := &scripted{responses: []reply{
		toolReply("a", "list_files", `{}`),
		toolReply("b", "list_files", `{}`),
	}}
	r, _ := newRunner(t, sc, runner.WithMaxToolRounds(1))

	err := r.Submit(context.Background(), "loop forever")
	if !errors.Is(err, runner.ErrToolRoundLimit) || !errorsx.HasReason(err, errorsx.ReasonToolRoundLimit) {
		t.Fatalf("expected round limit, got %v", err)
	}
	if sc.requests() != 2 {
		t.Fatalf("requests: got %d want 2", sc.requests())
	}
	if n := len(r.Turns()); n != 0 {
		t.Fatalf("transcript not rolled back: %d turns", n)
	}
}

func TestSubmit_TokenBudgetDropsOlderTurns(t *testing.T) {
	sc := &scripted{responses: []reply{
		textReply(strings.Repeat("x", 200)),
		textReply("ok"),
	}}
	r, _ := newRunner(t, sc, runner.WithTokenBudget(50, nil))

	if err := r.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := r.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	req := decodeRequest(t, sc, 1)
	if len(req.Messages) != 1 || req.Messages[0].Content[0].Text != "second" {
		t.Fatalf("window should hold only the newest operator message: %+v", req.Messages)
	}
	if n := len(r.Turns()); n != 4 {
		t.Fatalf("full transcript kept locally: got %d turns", n)
	}
}

func TestSubmit_OverBudgetFailsWithoutRequest(t *testing.T) {
	sc := &scripted{}
	r, _ := newRunner(t, sc, runner.WithTokenBudget(3, nil))

	err := r.Submit(context.Background(), "this will never fit")
	if !errors.Is(err, runner.ErrOverBudget) {
		t.Fatalf("expected over budget, got %v", err)
	}
	if sc.requests() != 0 || len(r.Turns()) != 0 {
		t.Fatalf("requests=%d turns=%d", sc.requests(), len(r.Turns()))
	}
}

func TestSubmit_EmitsEvents(t *testing.T) {
	dir := t.TempDir()
	sink := telemetry.New(dir, true, logging.Discard())
	sc := &scripted{responses: []reply{
		toolReply("t1", "list_files", `{}`),
		textReply("done"),
	}}
	r, _ := newRunner(t, sc, runner.WithEvents(sink))

	if err := r.Submit(context.Background(), "list"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	b, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	var names []string
	for _, line := range bytes.Split(bytes.TrimSpace(b), []byte("\n")) {
		var ev map[string]any
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		names = append(names, ev["event"].(string))
	}
	want := []string{"local_features", "request_prepared", "tool_exec", "request_prepared", "turn_complete"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("events: got %v want %v", names, want)
	}
}

func TestRun_SkipsBlankLinesAndExits(t *testing.T) {
	sc := &scripted{}
	r, rec := newRunner(t, sc)

	if err := r.Run(context.Background(), strings.NewReader("\n   \nEXIT\nhello\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sc.requests() != 0 {
		t.Fatalf("blank input must not reach the model; requests=%d", sc.requests())
	}
	if rec.lines[len(rec.lines)-1] != "goodbye" {
		t.Fatalf("expected goodbye last: %v", rec.lines)
	}
	if r.State() != runner.StateEnded {
		t.Fatalf("state: %s", r.State())
	}
}

func TestRun_ContinuesAfterError(t *testing.T) {
	sc := &scripted{responses: []reply{
		{status: 400, body: `{"type":"error","error":{"type":"invalid_request_error","message":"nope"}}`},
		textReply("recovered"),
	}}
	r, rec := newRunner(t, sc)

	if err := r.Run(context.Background(), strings.NewReader("first\nsecond\nquit\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !rec.has("error:") || !rec.has("text:recovered") {
		t.Fatalf("unexpected presentation: %v", rec.lines)
	}
	turns := r.Turns()
	if len(turns) != 2 || turns[0].Text != "second" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
}

func TestRun_EndOfInput(t *testing.T) {
	sc := &scripted{responses: []reply{textReply("hi")}}
	r, rec := newRunner(t, sc)

	if err := r.Run(context.Background(), strings.NewReader("hello")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.has("goodbye") {
		t.Fatalf("end of input should not say goodbye: %v", rec.lines)
	}
	if len(r.Turns()) != 2 {
		t.Fatalf("turns: got %d want 2", len(r.Turns()))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newRunner(t, &scripted{})
	if err := r.Run(ctx, pr); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRun_Deterministic(t *testing.T) {
	script := func() *scripted {
		return &scripted{responses: []reply{
			toolReply("t1", "read_file", `{"file_path":"foo.txt"}`),
			textReply("bar it is"),
		}}
	}
	var bodies [2][]byte
	for i := range bodies {
		sc := script()
		r, _ := newRunner(t, sc)
		if err := r.Run(context.Background(), strings.NewReader("read foo.txt\nexit\n")); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		bodies[i] = sc.bodies[1]
	}
	if !bytes.Equal(bodies[0], bodies[1]) {
		t.Fatalf("requests differ between identical runs:\n%s\n%s", bodies[0], bodies[1])
	}
}

func mustRoot(t *testing.T) string {
	t.Helper()
	root, _, err := fsops.Roots()
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	return root
}

func TestSubmit_ToolUseStopWithoutCallsIsFinal(t *testing.T) {
	sc := &scripted{responses: []reply{
		message("tool_use", `[{"type":"text","text":"All done here."}]`),
	}}
	r, rec := newRunner(t, sc)

	if err := r.Submit(context.Background(), "anything else?"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sc.requests() != 1 || len(r.Turns()) != 2 {
		t.Fatalf("requests=%d turns=%d", sc.requests(), len(r.Turns()))
	}
	if !rec.has("text:All done here.") {
		t.Fatalf("reply not presented: %v", rec.lines)
	}
}

func TestSubmit_EmptyReplyDoesNotPoisonTranscript(t *testing.T) {
	sc := &scripted{responses: []reply{textReply(""), textReply("ok")}}
	r, _ := newRunner(t, sc)

	if err := r.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := r.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	req := decodeRequest(t, sc, 1)
	for _, m := range req.Messages {
		for _, c := range m.Content {
			if c.Type == "text" && c.Text == "" {
				t.Fatalf("empty text block sent: %+v", req.Messages)
			}
		}
	}
}
