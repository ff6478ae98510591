package tools

import (
	"context"
	"fmt"
	"iter"
	"testing"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo"`
}

func newEchoTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewFunc("echo", "Echo the input text.",
		func(ctx context.Context, args echoArgs) (string, error) {
			return args.Text, nil
		})
	if err != nil {
		t.Fatalf("NewFunc failed: %v", err)
	}
	return tool
}

func TestFuncToolSchema(t *testing.T) {
	tool := newEchoTool(t)
	info := tool.Info()

	if info.Name != "echo" || info.Type != ToolTypeNormal {
		t.Errorf("unexpected info %+v", info)
	}
	props, ok := info.Parameters["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected properties in schema, got %v", info.Parameters)
	}
	if _, ok := props["text"]; !ok {
		t.Errorf("expected text property, got %v", props)
	}
}

func TestFuncToolCall(t *testing.T) {
	tool := newEchoTool(t)

	result, err := tool.Call(context.Background(), map[string]interface{}{"text": "hi"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.Content != "hi" || result.IsError {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestFuncToolErrorBecomesResult(t *testing.T) {
	tool, err := NewFunc("fail", "Always fails.",
		func(ctx context.Context, args echoArgs) (string, error) {
			return "", fmt.Errorf("boom")
		})
	if err != nil {
		t.Fatalf("NewFunc failed: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{"text": "x"})
	if err != nil {
		t.Fatalf("Call returned hard error: %v", err)
	}
	if !result.IsError || result.Content != "boom" {
		t.Errorf("expected error-flagged result, got %+v", result)
	}
}

func TestLocalSourceListAndCall(t *testing.T) {
	source := NewLocalSource("local")
	if err := source.Register(newEchoTool(t)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	infos, err := source.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "echo" {
		t.Errorf("unexpected catalog %v", infos)
	}

	result, err := source.Call(context.Background(), "echo", map[string]interface{}{"text": "ok"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.Content != "ok" {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := source.Call(context.Background(), "missing", nil); err == nil {
		t.Error("expected error for unknown tool")
	}
}

type tickerTool struct {
	info *Info
}

func (t *tickerTool) Info() *Info { return t.info }

func (t *tickerTool) Call(ctx context.Context, args map[string]interface{}) (*Result, error) {
	return &Result{Content: "done"}, nil
}

func (t *tickerTool) CallStream(ctx context.Context, args map[string]interface{}) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		for i := 0; i < 2; i++ {
			if !yield(&Result{Content: fmt.Sprintf("tick %d", i), Partial: true}, nil) {
				return
			}
		}
		yield(&Result{Content: "done"}, nil)
	}
}

func TestLocalSourceCallStream(t *testing.T) {
	source := NewLocalSource("local")
	ticker := &tickerTool{info: &Info{Name: "ticker", Type: ToolTypeNormal}}
	if err := source.Register(ticker); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var results []*Result
	for result, err := range source.CallStream(context.Background(), "ticker", nil) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		results = append(results, result)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Partial || results[2].Partial {
		t.Errorf("expected partials then final, got %+v", results)
	}

	// Plain tools stream as a single final result.
	if err := source.Register(newEchoTool(t)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	count := 0
	for result, err := range source.CallStream(context.Background(), "echo", map[string]interface{}{"text": "x"}) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		count++
		if result.Partial {
			t.Error("expected non-partial result from plain tool")
		}
	}
	if count != 1 {
		t.Errorf("expected single result, got %d", count)
	}
}

func TestHandoffTool(t *testing.T) {
	h, err := NewHandoff("researcher", "over to research")
	if err != nil {
		t.Fatalf("NewHandoff failed: %v", err)
	}

	info := h.Info()
	if !info.IsHandoff() {
		t.Error("expected handoff type")
	}
	if info.Name != "transfer_to_researcher" || info.Target != "researcher" {
		t.Errorf("unexpected info %+v", info)
	}

	result, err := h.Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.Content != "over to research" {
		t.Errorf("unexpected content %q", result.Content)
	}
}

func TestHandoffDefaultMessage(t *testing.T) {
	h, err := NewHandoff("planner", "")
	if err != nil {
		t.Fatalf("NewHandoff failed: %v", err)
	}
	if h.Info().Message == "" {
		t.Error("expected default message")
	}
}
