package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandOptions tunes the execute_command tool.
type CommandOptions struct {
	AllowedCommands  []string      `mapstructure:"allowed_commands"`
	WorkingDirectory string        `mapstructure:"working_directory"`
	MaxExecutionTime time.Duration `mapstructure:"max_execution_time"`
	MaxOutputBytes   int           `mapstructure:"max_output_bytes"`
	EnableSandboxing *bool         `mapstructure:"enable_sandboxing"`
}

func (o *CommandOptions) setDefaults() {
	if len(o.AllowedCommands) == 0 {
		o.AllowedCommands = []string{
			"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd",
			"git", "echo", "date",
		}
	}
	if o.WorkingDirectory == "" {
		o.WorkingDirectory = "./"
	}
	if o.MaxExecutionTime == 0 {
		o.MaxExecutionTime = 30 * time.Second
	}
	if o.MaxOutputBytes == 0 {
		o.MaxOutputBytes = 64 * 1024
	}
	if o.EnableSandboxing == nil {
		enabled := true
		o.EnableSandboxing = &enabled
	}
}

// CommandTool executes shell commands with an allowlist and output cap.
type CommandTool struct {
	info *Info
	opts CommandOptions
}

type commandArgs struct {
	Command    string `json:"command" jsonschema:"required,description=Shell command to execute"`
	WorkingDir string `json:"working_dir,omitempty" jsonschema:"description=Working directory override"`
}

func NewCommandTool(opts CommandOptions) (*CommandTool, error) {
	opts.setDefaults()

	schema, err := GenerateSchema[commandArgs]()
	if err != nil {
		return nil, err
	}

	return &CommandTool{
		info: &Info{
			Name:        "execute_command",
			Description: "Execute a shell command and return its combined output.",
			Parameters:  schema,
			Type:        ToolTypeNormal,
		},
		opts: opts,
	}, nil
}

func (t *CommandTool) Info() *Info {
	return t.info
}

func (t *CommandTool) Call(ctx context.Context, args map[string]interface{}) (*Result, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return &Result{Content: "command parameter is required", IsError: true}, nil
	}

	workingDir, _ := args["working_dir"].(string)
	if workingDir == "" {
		workingDir = t.opts.WorkingDirectory
	}

	if err := t.validate(command); err != nil {
		return &Result{Content: err.Error(), IsError: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.MaxExecutionTime)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workingDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	content := string(output)
	truncated := false
	if len(content) > t.opts.MaxOutputBytes {
		content = content[:t.opts.MaxOutputBytes] + "\n... (output truncated)"
		truncated = true
	}

	result := &Result{
		Content: content,
		Metadata: map[string]interface{}{
			"command":        command,
			"working_dir":    workingDir,
			"execution_time": elapsed.String(),
			"truncated":      truncated,
		},
	}
	if err != nil {
		result.IsError = true
		if result.Content == "" {
			result.Content = err.Error()
		}
		if exitError, ok := err.(*exec.ExitError); ok {
			result.Metadata["exit_code"] = exitError.ExitCode()
		}
	}
	return result, nil
}

func (t *CommandTool) validate(command string) error {
	if t.opts.EnableSandboxing != nil && !*t.opts.EnableSandboxing {
		return nil
	}
	base := extractBaseCommand(command)
	for _, allowed := range t.opts.AllowedCommands {
		if base == allowed {
			return nil
		}
	}
	return fmt.Errorf("command not allowed: %s", base)
}

// extractBaseCommand gets the first command word out of a shell expression
// with pipes and redirects.
func extractBaseCommand(command string) string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == '>' || r == '<' || r == ';' || r == '&'
	})
	if len(parts) == 0 {
		return ""
	}
	words := strings.Fields(strings.TrimSpace(parts[0]))
	if len(words) == 0 {
		return ""
	}
	return words[0]
}
