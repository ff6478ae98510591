package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentfusion/agentfusion/config"
)

const mcpProtocolVersion = "2024-11-05"

// MCPSource exposes a stdio MCP server as a capability source. The
// connection is established lazily on first use.
type MCPSource struct {
	name    string
	command string
	args    []string
	env     []string

	mu        sync.Mutex
	client    *client.Client
	infos     []*Info
	connected bool
}

// NewMCPSource creates a source backed by a stdio MCP server.
func NewMCPSource(name string, cfg *config.ToolSourceConfig) (*MCPSource, error) {
	if cfg == nil || cfg.Command == "" {
		return nil, fmt.Errorf("mcp source %q requires a command", name)
	}
	return &MCPSource{
		name:    name,
		command: cfg.Command,
		args:    cfg.Args,
		env:     cfg.Env,
	}, nil
}

func (s *MCPSource) Name() string {
	return s.name
}

func (s *MCPSource) ListTools(ctx context.Context) ([]*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s.infos, nil
}

func (s *MCPSource) Call(ctx context.Context, name string, args map[string]interface{}) (*Result, error) {
	s.mu.Lock()
	if err := s.connect(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	mcpClient := s.client
	s.mu.Unlock()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	content := strings.Join(texts, "\n")
	if resp.IsError && content == "" {
		content = "unknown error"
	}

	return &Result{Content: content, IsError: resp.IsError}, nil
}

// connect launches and initializes the server once. Callers must hold s.mu.
func (s *MCPSource) connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	mcpClient, err := client.NewStdioMCPClient(s.command, s.env, s.args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentfusion",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = mcpProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	infos := make([]*Info, 0, len(listResp.Tools))
	for _, mcpTool := range listResp.Tools {
		infos = append(infos, &Info{
			Name:        mcpTool.Name,
			Description: mcpTool.Description,
			Parameters:  convertMCPSchema(mcpTool.InputSchema),
			Type:        ToolTypeNormal,
		})
	}

	s.client = mcpClient
	s.infos = infos
	s.connected = true

	slog.Info("Connected to MCP server",
		"source", s.name, "command", s.command, "tools", len(infos))
	return nil
}

func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.connected = false
	return err
}

func convertMCPSchema(schema mcp.ToolInputSchema) map[string]interface{} {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
