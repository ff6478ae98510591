package tools

import (
	"context"
	"strings"
	"testing"
)

func TestCommandToolAllowed(t *testing.T) {
	tool, err := NewCommandTool(CommandOptions{})
	if err != nil {
		t.Fatalf("NewCommandTool failed: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{
		"command": "echo hello",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if strings.TrimSpace(result.Content) != "hello" {
		t.Errorf("unexpected output %q", result.Content)
	}
}

func TestCommandToolBlocked(t *testing.T) {
	tool, err := NewCommandTool(CommandOptions{AllowedCommands: []string{"echo"}})
	if err != nil {
		t.Fatalf("NewCommandTool failed: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{
		"command": "rm -rf /",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "not allowed") {
		t.Errorf("expected blocked command, got %+v", result)
	}
}

func TestCommandToolMissingArg(t *testing.T) {
	tool, err := NewCommandTool(CommandOptions{})
	if err != nil {
		t.Fatalf("NewCommandTool failed: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing command")
	}
}

func TestExtractBaseCommand(t *testing.T) {
	cases := map[string]string{
		"ls -la":               "ls",
		"cat foo | grep bar":   "cat",
		"  echo hi > out.txt ": "echo",
		"":                     "",
	}
	for input, want := range cases {
		if got := extractBaseCommand(input); got != want {
			t.Errorf("extractBaseCommand(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestListDirToolConfinement(t *testing.T) {
	dir := t.TempDir()
	tool, err := NewListDirTool(FileOptions{Root: dir})
	if err != nil {
		t.Fatalf("NewListDirTool failed: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{
		"path": "../..",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "escapes") {
		t.Errorf("expected escape rejection, got %+v", result)
	}
}

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	writeTool, err := NewWriteFileTool(FileOptions{Root: dir})
	if err != nil {
		t.Fatalf("NewWriteFileTool failed: %v", err)
	}
	readTool, err := NewReadFileTool(FileOptions{Root: dir})
	if err != nil {
		t.Fatalf("NewReadFileTool failed: %v", err)
	}

	result, err := writeTool.Call(context.Background(), map[string]interface{}{
		"path":    "notes/a.txt",
		"content": "hello",
	})
	if err != nil || result.IsError {
		t.Fatalf("write failed: %v %+v", err, result)
	}

	result, err = readTool.Call(context.Background(), map[string]interface{}{
		"path": "notes/a.txt",
	})
	if err != nil || result.IsError {
		t.Fatalf("read failed: %v %+v", err, result)
	}
	if result.Content != "hello" {
		t.Errorf("unexpected content %q", result.Content)
	}
}

func TestNewLocalSourceFromConfigSelectsTools(t *testing.T) {
	source, err := NewLocalSourceFromConfig("local", nil)
	if err != nil {
		t.Fatalf("NewLocalSourceFromConfig failed: %v", err)
	}
	infos, err := source.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(infos) != 4 {
		t.Errorf("expected all builtins, got %d", len(infos))
	}
}
