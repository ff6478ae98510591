package main

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/agentfusion/agentfusion/agent"
	"github.com/agentfusion/agentfusion/component"
	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/protocol"
)

// ChatCmd runs an interactive conversation in the terminal. Handoffs are
// followed automatically: when the active agent transfers, the chat
// continues with the target.
type ChatCmd struct {
	Agent string `arg:"" optional:"" help:"Agent to chat with (defaults to the only configured agent)."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	manager, err := component.NewManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	name := c.Agent
	if name == "" {
		names := manager.AgentNames()
		if len(names) != 1 {
			return fmt.Errorf("multiple agents configured (%s), pick one", strings.Join(names, ", "))
		}
		name = names[0]
	}

	engine, err := startEngine(ctx, manager, name)
	if err != nil {
		return err
	}
	defer engine.End(context.Background())

	fmt.Printf("Chatting with %s. Type /quit to exit.\n", name)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\n%s> ", name)
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			return nil
		}

		target, err := runChatTurn(engine.Push(ctx, input))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		// Follow handoffs until an agent answers directly. The target
		// sees the transfer's carried context plus the handoff message.
		for target != nil {
			next, err := startEngine(ctx, manager, target.Target)
			if err != nil {
				return err
			}
			_ = engine.End(ctx)
			engine, name = next, target.Target
			fmt.Printf("\n[transferred to %s]\n", name)

			seed := append(append([]*protocol.Message{}, target.Context...),
				protocol.NewUserMessage("user", target.Message))
			target, err = runChatTurn(engine.PushMessages(ctx, seed))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				break
			}
		}
	}
}

func startEngine(ctx context.Context, manager *component.Manager, name string) (*agent.Engine, error) {
	engine, err := manager.BuildEngine(name, nil)
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

// runChatTurn renders one turn's stream. It returns the handoff when the
// turn ended with a transfer.
func runChatTurn(stream iter.Seq2[*agent.Event, error]) (*agent.Handoff, error) {
	var handoff *agent.Handoff
	for ev, err := range stream {
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case agent.EventStreamingChunk:
			fmt.Print(ev.Chunk)
		case agent.EventThought:
			fmt.Printf("\n(thinking: %s)\n", ev.Thought)
		case agent.EventToolCallRequested:
			names := make([]string, 0, len(ev.ToolCalls))
			for _, tc := range ev.ToolCalls {
				names = append(names, tc.Name)
			}
			sort.Strings(names)
			fmt.Printf("\n[calling %s]\n", strings.Join(names, ", "))
		case agent.EventHandoff:
			handoff = ev.Handoff
		case agent.EventResponse:
			fmt.Println()
		}
	}
	return handoff, nil
}
