package tools

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/agentfusion/agentfusion/config"
)

type localOptions struct {
	// Tools selects which builtins to expose. Empty means all.
	Tools   []string       `mapstructure:"tools"`
	Command CommandOptions `mapstructure:"command"`
	Files   FileOptions    `mapstructure:"files"`
}

// NewLocalSourceFromConfig builds a local source with the builtin tools
// selected by the source options.
func NewLocalSourceFromConfig(name string, cfg *config.ToolSourceConfig) (*LocalSource, error) {
	var opts localOptions
	if cfg != nil && cfg.Options != nil {
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to decode options for source %q: %w", name, err)
		}
	}

	builders := map[string]func() (Tool, error){
		"execute_command": func() (Tool, error) {
			t, err := NewCommandTool(opts.Command)
			return t, err
		},
		"list_dir":   func() (Tool, error) { return NewListDirTool(opts.Files) },
		"read_file":  func() (Tool, error) { return NewReadFileTool(opts.Files) },
		"write_file": func() (Tool, error) { return NewWriteFileTool(opts.Files) },
	}

	selected := opts.Tools
	if len(selected) == 0 {
		selected = []string{"execute_command", "list_dir", "read_file", "write_file"}
	}

	source := NewLocalSource(name)
	for _, toolName := range selected {
		builder, ok := builders[toolName]
		if !ok {
			return nil, fmt.Errorf("unknown builtin tool %q in source %q", toolName, name)
		}
		tool, err := builder()
		if err != nil {
			return nil, fmt.Errorf("failed to build tool %q: %w", toolName, err)
		}
		if err := source.Register(tool); err != nil {
			return nil, err
		}
	}
	return source, nil
}
