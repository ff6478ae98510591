package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"testing"

	"github.com/agentfusion/agentfusion/llms"
	"github.com/agentfusion/agentfusion/protocol"
	"github.com/agentfusion/agentfusion/tools"
)

// scriptedProvider replays one llms.Result per model invocation, streaming
// the text in small fragments the way a real provider would.
type scriptedProvider struct {
	script   []*llms.Result
	calls    int
	requests [][]*protocol.Message
	defs     [][]llms.ToolDefinition
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition) (*llms.Result, error) {
	if p.calls >= len(p.script) {
		return nil, fmt.Errorf("unscripted model call %d", p.calls)
	}
	r := p.script[p.calls]
	p.calls++
	return r, nil
}

func (p *scriptedProvider) GenerateStreaming(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	if p.calls >= len(p.script) {
		return nil, fmt.Errorf("unscripted model call %d", p.calls)
	}
	r := p.script[p.calls]
	p.calls++
	p.requests = append(p.requests, messages)
	p.defs = append(p.defs, defs)

	ch := make(chan llms.StreamChunk, 32)
	go func() {
		defer close(ch)
		if r.Thought != "" {
			ch <- llms.StreamChunk{Type: llms.ChunkTypeThinking, Text: r.Thought}
		}
		for _, word := range strings.SplitAfter(r.Text, " ") {
			if word != "" {
				ch <- llms.StreamChunk{Type: llms.ChunkTypeText, Text: word}
			}
		}
		for _, tc := range r.ToolCalls {
			ch <- llms.StreamChunk{Type: llms.ChunkTypeToolCall, ToolCall: tc}
		}
		ch <- llms.StreamChunk{Type: llms.ChunkTypeDone, Tokens: r.Tokens}
	}()
	return ch, nil
}

func (p *scriptedProvider) ModelName() string { return "scripted-model" }
func (p *scriptedProvider) Close() error      { return nil }

type erroringProvider struct{ calls int }

func (p *erroringProvider) Generate(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition) (*llms.Result, error) {
	return nil, errors.New("model unavailable")
}

func (p *erroringProvider) GenerateStreaming(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	p.calls++
	ch := make(chan llms.StreamChunk, 1)
	ch <- llms.StreamChunk{Type: llms.ChunkTypeError, Error: errors.New("model unavailable")}
	close(ch)
	return ch, nil
}

func (p *erroringProvider) ModelName() string { return "erroring-model" }
func (p *erroringProvider) Close() error      { return nil }

// mockSource serves a mutable catalog with canned per-tool behavior.
type mockSource struct {
	name      string
	infos     []*tools.Info
	behavior  map[string]func(args map[string]interface{}) *tools.Result
	listCalls int
	callLog   []string
}

func (s *mockSource) Name() string { return s.name }

func (s *mockSource) ListTools(ctx context.Context) ([]*tools.Info, error) {
	s.listCalls++
	return s.infos, nil
}

func (s *mockSource) Call(ctx context.Context, name string, args map[string]interface{}) (*tools.Result, error) {
	s.callLog = append(s.callLog, name)
	fn, ok := s.behavior[name]
	if !ok {
		return nil, fmt.Errorf("tool %q not found in source %q", name, s.name)
	}
	return fn(args), nil
}

// tickerTool streams two partial results before its final one.
type tickerTool struct{}

func (t *tickerTool) Info() *tools.Info {
	return &tools.Info{Name: "ticker", Description: "counts", Type: tools.ToolTypeNormal}
}

func (t *tickerTool) Call(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	return &tools.Result{Content: "done"}, nil
}

func (t *tickerTool) CallStream(ctx context.Context, args map[string]interface{}) iter.Seq2[*tools.Result, error] {
	return func(yield func(*tools.Result, error) bool) {
		if !yield(&tools.Result{Content: "tick 1", Partial: true}, nil) {
			return
		}
		if !yield(&tools.Result{Content: "tick 2", Partial: true}, nil) {
			return
		}
		yield(&tools.Result{Content: "done"}, nil)
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "assistant"
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.End(context.Background()) })
	return e
}

func collect(t *testing.T, seq iter.Seq2[*Event, error]) ([]*Event, error) {
	t.Helper()
	var events []*Event
	for ev, err := range seq {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func kinds(events []*Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func lastEvent(t *testing.T, events []*Event) *Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events yielded")
	}
	return events[len(events)-1]
}

func TestPushBeforeStart(t *testing.T) {
	e, err := NewEngine(Config{Name: "assistant", Provider: &scriptedProvider{}})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	_, err = collect(t, e.Push(context.Background(), "hi"))
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestPushAfterEnd(t *testing.T) {
	e, err := NewEngine(Config{Name: "assistant", Provider: &scriptedProvider{
		script: []*llms.Result{{Text: "hello"}},
	}})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.End(context.Background()); err != nil {
		t.Fatalf("End: %v", err)
	}
	_, err = collect(t, e.Push(context.Background(), "hi"))
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestPushWhileTurnActive(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "one two three"}}}
	e := newTestEngine(t, Config{Provider: provider})

	next, stop := iter.Pull2(e.Push(context.Background(), "hi"))
	defer stop()
	if _, _, ok := next(); !ok {
		t.Fatal("first stream produced nothing")
	}

	_, err := collect(t, e.Push(context.Background(), "again"))
	if !errors.Is(err, ErrTurnActive) {
		t.Fatalf("expected ErrTurnActive, got %v", err)
	}
}

func TestPushIsLazy(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "hello"}}}
	e := newTestEngine(t, Config{Provider: provider})

	seq := e.Push(context.Background(), "hi")
	if provider.calls != 0 {
		t.Fatalf("model invoked before iteration: %d calls", provider.calls)
	}
	if _, err := collect(t, seq); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", provider.calls)
	}
}

func TestTextResponseTurn(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "hello there friend", Tokens: 7}}}
	e := newTestEngine(t, Config{Provider: provider, SystemPrompt: "Be brief."})

	events, err := collect(t, e.Push(context.Background(), "hi"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	final := lastEvent(t, events)
	if final.Kind != EventResponse {
		t.Fatalf("expected Response terminal, got %s", final.Kind)
	}
	if final.Response.Content != "hello there friend" {
		t.Fatalf("unexpected response content %q", final.Response.Content)
	}

	var streamed strings.Builder
	for _, ev := range events[:len(events)-1] {
		if ev.Kind != EventStreamingChunk {
			t.Fatalf("unexpected %s before terminal", ev.Kind)
		}
		streamed.WriteString(ev.Chunk)
	}
	if streamed.String() != "hello there friend" {
		t.Fatalf("chunks reassemble to %q", streamed.String())
	}

	// The system prompt leads the request, the input follows.
	req := provider.requests[0]
	if req[0].Role != protocol.RoleSystem || req[0].Content != "Be brief." {
		t.Fatalf("system prompt missing from request: %+v", req[0])
	}
	if req[1].Role != protocol.RoleUser || req[1].Content != "hi" {
		t.Fatalf("input missing from request: %+v", req[1])
	}

	// Both sides of the exchange are in the store afterwards.
	history, err := e.Store().Messages(context.Background())
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(history) != 2 || history[1].Role != protocol.RoleAssistant {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestThoughtEventPrecedesResponse(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "42", Thought: "the user wants a number"}}}
	e := newTestEngine(t, Config{Provider: provider})

	events, err := collect(t, e.Push(context.Background(), "answer?"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	var sawThought bool
	for _, ev := range events {
		if ev.Kind == EventThought {
			sawThought = true
			if ev.Thought != "the user wants a number" {
				t.Fatalf("unexpected thought %q", ev.Thought)
			}
		}
		if ev.Kind == EventResponse && !sawThought {
			t.Fatal("Response arrived before Thought")
		}
	}
	if !sawThought {
		t.Fatal("no Thought event yielded")
	}
}

func newListDirSource() *mockSource {
	return &mockSource{
		name: "local",
		infos: []*tools.Info{{
			Name:        "list_dir",
			Description: "List directory entries",
			Type:        tools.ToolTypeNormal,
		}},
		behavior: map[string]func(map[string]interface{}) *tools.Result{
			"list_dir": func(args map[string]interface{}) *tools.Result {
				return &tools.Result{Content: "a.txt\nb.txt"}
			},
		},
	}
}

func TestToolRoundTrip(t *testing.T) {
	source := newListDirSource()
	provider := &scriptedProvider{script: []*llms.Result{
		{ToolCalls: []*protocol.ToolCall{{
			ID: "call_1", Name: "list_dir",
			Args: map[string]interface{}{"path": "."},
		}}},
		{Text: "The directory contains a.txt and b.txt."},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{source}})

	events, err := collect(t, e.Push(context.Background(), "what files are here?"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	got := kinds(events)
	want := []EventKind{
		EventToolCallRequested,
		EventToolCallExecuted,
		EventStreamingChunk, EventStreamingChunk, EventStreamingChunk,
		EventStreamingChunk, EventStreamingChunk, EventStreamingChunk,
		EventResponse,
	}
	if len(got) != len(want) {
		t.Fatalf("event kinds %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d is %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}

	if provider.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", provider.calls)
	}
	if len(source.callLog) != 1 || source.callLog[0] != "list_dir" {
		t.Fatalf("unexpected tool calls %v", source.callLog)
	}

	executed := events[1]
	if len(executed.ToolResults) != 1 || executed.ToolResults[0].Content != "a.txt\nb.txt" {
		t.Fatalf("unexpected tool results %+v", executed.ToolResults)
	}
	if executed.ToolResults[0].ToolCallID != "call_1" {
		t.Fatalf("result not bound to its call: %+v", executed.ToolResults[0])
	}

	// The second model request sees the assistant's call and the tool reply.
	req := provider.requests[1]
	last := req[len(req)-1]
	if last.Role != protocol.RoleTool || last.Content != "a.txt\nb.txt" {
		t.Fatalf("tool result missing from followup request: %+v", last)
	}
}

func TestUnknownToolIsRecoverable(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{
		{ToolCalls: []*protocol.ToolCall{{ID: "call_1", Name: "no_such_tool", Args: map[string]interface{}{}}}},
		{Text: "sorry, I cannot do that"},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{newListDirSource()}})

	events, err := collect(t, e.Push(context.Background(), "go"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if lastEvent(t, events).Kind != EventResponse {
		t.Fatalf("expected Response terminal, got %s", lastEvent(t, events).Kind)
	}

	var executed *Event
	for _, ev := range events {
		if ev.Kind == EventToolCallExecuted {
			executed = ev
		}
	}
	if executed == nil {
		t.Fatal("no ToolCallExecuted event")
	}
	res := executed.ToolResults[0]
	if !res.IsError || !strings.Contains(res.Content, "no_such_tool") {
		t.Fatalf("expected error-flagged result naming the tool, got %+v", res)
	}
}

func TestMalformedArgumentsAreRecoverable(t *testing.T) {
	source := newListDirSource()
	provider := &scriptedProvider{script: []*llms.Result{
		{ToolCalls: []*protocol.ToolCall{{ID: "call_1", Name: "list_dir", Raw: "{not json"}}},
		{Text: "let me try again"},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{source}})

	events, err := collect(t, e.Push(context.Background(), "go"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if lastEvent(t, events).Kind != EventResponse {
		t.Fatal("turn should still terminate with a Response")
	}
	if len(source.callLog) != 0 {
		t.Fatalf("tool must not run on unparseable arguments, ran %v", source.callLog)
	}

	for _, ev := range events {
		if ev.Kind == EventToolCallExecuted {
			if !ev.ToolResults[0].IsError {
				t.Fatalf("expected error-flagged result, got %+v", ev.ToolResults[0])
			}
			return
		}
	}
	t.Fatal("no ToolCallExecuted event")
}

func TestIterationLimitForcesResponse(t *testing.T) {
	loop := &llms.Result{ToolCalls: []*protocol.ToolCall{{
		ID: "call_loop", Name: "list_dir", Args: map[string]interface{}{"path": "."},
	}}}
	provider := &scriptedProvider{script: []*llms.Result{loop, loop, loop}}
	e := newTestEngine(t, Config{
		Provider:          provider,
		Sources:           []tools.Source{newListDirSource()},
		MaxToolIterations: 3,
	})

	events, err := collect(t, e.Push(context.Background(), "loop"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected exactly 3 model calls, got %d", provider.calls)
	}

	final := lastEvent(t, events)
	if final.Kind != EventResponse {
		t.Fatalf("expected forced Response, got %s", final.Kind)
	}
	// The final event surfaces the last model output even though it is
	// still asking for tools.
	if len(final.Response.ToolCalls) != 1 {
		t.Fatalf("forced response lost the pending tool calls: %+v", final.Response)
	}
}

func TestStreamingToolPartialsInterleave(t *testing.T) {
	source := tools.NewLocalSource("local")
	if err := source.Register(&tickerTool{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	provider := &scriptedProvider{script: []*llms.Result{
		{ToolCalls: []*protocol.ToolCall{{ID: "call_1", Name: "ticker", Args: map[string]interface{}{}}}},
		{Text: "finished"},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{source}})

	events, err := collect(t, e.Push(context.Background(), "count"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	reqAt, doneAt := -1, -1
	var partials []string
	for i, ev := range events {
		switch ev.Kind {
		case EventToolCallRequested:
			reqAt = i
		case EventToolCallExecuted:
			doneAt = i
		case EventStreamingChunk:
			if reqAt >= 0 && doneAt < 0 {
				partials = append(partials, ev.Chunk)
			}
		}
	}
	if reqAt < 0 || doneAt < 0 || doneAt < reqAt {
		t.Fatalf("tool lifecycle events out of order: %v", kinds(events))
	}
	if len(partials) != 2 || partials[0] != "tick 1" || partials[1] != "tick 2" {
		t.Fatalf("expected two interleaved partials, got %v", partials)
	}
	if events[doneAt].ToolResults[0].Content != "done" {
		t.Fatalf("final result lost: %+v", events[doneAt].ToolResults)
	}
}

func TestHandoffTerminatesTurn(t *testing.T) {
	h, err := tools.NewHandoff("billing", "Ask billing about invoices.")
	if err != nil {
		t.Fatalf("NewHandoff: %v", err)
	}
	provider := &scriptedProvider{script: []*llms.Result{{
		Thought: "this belongs to billing",
		ToolCalls: []*protocol.ToolCall{{
			ID: "call_1", Name: "transfer_to_billing", Args: map[string]interface{}{},
		}},
	}}}
	e := newTestEngine(t, Config{Provider: provider, Handoffs: []*tools.HandoffTool{h}})

	events, err := collect(t, e.Push(context.Background(), "my invoice is wrong"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	final := lastEvent(t, events)
	if final.Kind != EventHandoff {
		t.Fatalf("expected Handoff terminal, got %s", final.Kind)
	}
	if final.Handoff.Target != "billing" {
		t.Fatalf("unexpected target %q", final.Handoff.Target)
	}
	if final.Handoff.Message != "Ask billing about invoices." {
		t.Fatalf("unexpected handoff message %q", final.Handoff.Message)
	}
	if len(final.Handoff.Context) != 1 || final.Handoff.Context[0].Content != "this belongs to billing" {
		t.Fatalf("handoff should carry the preceding reasoning, got %+v", final.Handoff.Context)
	}
	if provider.calls != 1 {
		t.Fatalf("model must not run after a handoff, got %d calls", provider.calls)
	}

	// Lifecycle events still precede the terminal handoff.
	got := kinds(events)
	if got[len(got)-2] != EventToolCallExecuted || got[len(got)-3] != EventToolCallRequested {
		t.Fatalf("handoff tool skipped the execution events: %v", got)
	}
}

func TestMultipleHandoffsFirstWins(t *testing.T) {
	billing, err := tools.NewHandoff("billing", "")
	if err != nil {
		t.Fatalf("NewHandoff: %v", err)
	}
	support, err := tools.NewHandoff("support", "")
	if err != nil {
		t.Fatalf("NewHandoff: %v", err)
	}
	provider := &scriptedProvider{script: []*llms.Result{{
		ToolCalls: []*protocol.ToolCall{
			{ID: "call_1", Name: "transfer_to_support", Args: map[string]interface{}{}},
			{ID: "call_2", Name: "transfer_to_billing", Args: map[string]interface{}{}},
		},
	}}}
	e := newTestEngine(t, Config{Provider: provider, Handoffs: []*tools.HandoffTool{billing, support}})

	events, err := collect(t, e.Push(context.Background(), "help"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	final := lastEvent(t, events)
	if final.Kind != EventHandoff || final.Handoff.Target != "support" {
		t.Fatalf("expected handoff to support, the first requested, got %+v", final.Handoff)
	}
}

func TestHandoffRegistryIsCachedUntilInvalidated(t *testing.T) {
	source := newListDirSource()
	provider := &scriptedProvider{script: []*llms.Result{
		// Turn 1 answers directly and fixes the handoff registry.
		{Text: "ready"},
		// Turn 2 calls a handoff tool added after the first resolution.
		{ToolCalls: []*protocol.ToolCall{{ID: "call_1", Name: "transfer_to_billing", Args: map[string]interface{}{}}}},
		{Text: "that tool did nothing"},
		// Turn 3 repeats the call after invalidation.
		{ToolCalls: []*protocol.ToolCall{{ID: "call_2", Name: "transfer_to_billing", Args: map[string]interface{}{}}}},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{source}})

	if _, err := collect(t, e.Push(context.Background(), "hello")); err != nil {
		t.Fatalf("turn 1 failed: %v", err)
	}

	// The source grows a handoff tool after the registry was cached.
	source.infos = append(source.infos, &tools.Info{
		Name:   "transfer_to_billing",
		Type:   tools.ToolTypeHandoff,
		Target: "billing",
	})
	source.behavior["transfer_to_billing"] = func(args map[string]interface{}) *tools.Result {
		return &tools.Result{Content: "transferring"}
	}

	events, err := collect(t, e.Push(context.Background(), "invoice issue"))
	if err != nil {
		t.Fatalf("turn 2 failed: %v", err)
	}
	if lastEvent(t, events).Kind != EventResponse {
		t.Fatalf("stale registry should treat the call as a plain tool, got %s", lastEvent(t, events).Kind)
	}

	e.InvalidateHandoffs()

	events, err = collect(t, e.Push(context.Background(), "invoice issue again"))
	if err != nil {
		t.Fatalf("turn 3 failed: %v", err)
	}
	final := lastEvent(t, events)
	if final.Kind != EventHandoff || final.Handoff.Target != "billing" {
		t.Fatalf("expected handoff after invalidation, got %+v", final)
	}
}

func TestCancelledContextAbortsTurn(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "never sent"}}}
	e := newTestEngine(t, Config{Provider: provider})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collect(t, e.Push(ctx, "hi"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected TurnError wrapper, got %T", err)
	}

	// The engine is usable again once the failed stream is done.
	events, err := collect(t, e.Push(context.Background(), "hi"))
	if err != nil {
		t.Fatalf("engine not reusable after aborted turn: %v", err)
	}
	if lastEvent(t, events).Kind != EventResponse {
		t.Fatal("expected a normal Response on the retry")
	}
}

func TestModelFailureIsFatalAndClearsTurn(t *testing.T) {
	e := newTestEngine(t, Config{Provider: &erroringProvider{}})

	events, err := collect(t, e.Push(context.Background(), "hi"))
	if err == nil {
		t.Fatal("expected a turn error")
	}
	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected TurnError, got %T: %v", err, err)
	}
	for _, ev := range events {
		if ev.IsTerminal() {
			t.Fatalf("failed turn must not yield a terminal event, got %s", ev.Kind)
		}
	}

	// The running flag is released, so the next Push is accepted.
	_, err = collect(t, e.Push(context.Background(), "hi"))
	var second *TurnError
	if !errors.As(err, &second) {
		t.Fatalf("second push should reach the model again, got %v", err)
	}
}

func TestPushMessagesSeedsContext(t *testing.T) {
	provider := &scriptedProvider{script: []*llms.Result{{Text: "understood"}}}
	e := newTestEngine(t, Config{Provider: provider})

	seed := []*protocol.Message{
		protocol.NewAssistantMessage("triage", "the customer has a billing dispute"),
		protocol.NewUserMessage("user", "please take over"),
	}
	events, err := collect(t, e.PushMessages(context.Background(), seed))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if lastEvent(t, events).Kind != EventResponse {
		t.Fatalf("expected Response, got %s", lastEvent(t, events).Kind)
	}

	req := provider.requests[0]
	if len(req) != 2 || req[0].Content != "the customer has a billing dispute" || req[1].Content != "please take over" {
		t.Fatalf("seed messages missing from model request: %+v", req)
	}
}

func TestSequentialToolExecution(t *testing.T) {
	source := newListDirSource()
	source.infos = append(source.infos, &tools.Info{Name: "read_file", Type: tools.ToolTypeNormal})
	source.behavior["read_file"] = func(args map[string]interface{}) *tools.Result {
		return &tools.Result{Content: "contents"}
	}
	provider := &scriptedProvider{script: []*llms.Result{
		{ToolCalls: []*protocol.ToolCall{
			{ID: "call_1", Name: "list_dir", Args: map[string]interface{}{}},
			{ID: "call_2", Name: "read_file", Args: map[string]interface{}{}},
		}},
		{Text: "done"},
	}}
	e := newTestEngine(t, Config{Provider: provider, Sources: []tools.Source{source}})

	events, err := collect(t, e.Push(context.Background(), "go"))
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	if want := []string{"list_dir", "read_file"}; len(source.callLog) != 2 ||
		source.callLog[0] != want[0] || source.callLog[1] != want[1] {
		t.Fatalf("tools must run one at a time in request order, got %v", source.callLog)
	}

	for _, ev := range events {
		if ev.Kind == EventToolCallExecuted {
			if len(ev.ToolResults) != 2 {
				t.Fatalf("expected both results in one event, got %+v", ev.ToolResults)
			}
			if ev.ToolResults[0].ToolCallID != "call_1" || ev.ToolResults[1].ToolCallID != "call_2" {
				t.Fatalf("results out of request order: %+v", ev.ToolResults)
			}
		}
	}
}
