package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentfusion/agentfusion/config"
)

// ValidateCmd loads a configuration and reports what it declares.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("Configuration valid: %s\n\n", cli.Config)
	fmt.Printf("Models:       %s\n", joinKeys(keysOfModels(cfg)))
	fmt.Printf("Tool sources: %s\n", joinKeys(keysOfSources(cfg)))

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Agents:")
	for _, name := range names {
		ac := cfg.Agents[name]
		fmt.Printf("  %s (model: %s", name, ac.Model)
		if len(ac.Handoffs) > 0 {
			targets := make([]string, 0, len(ac.Handoffs))
			for _, h := range ac.Handoffs {
				targets = append(targets, h.Target)
			}
			fmt.Printf(", handoffs: %s", strings.Join(targets, ", "))
		}
		fmt.Println(")")
	}

	if cfg.Database != nil {
		fmt.Printf("Database:     %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	}
	return nil
}

func keysOfModels(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Models))
	for k := range cfg.Models {
		out = append(out, k)
	}
	return out
}

func keysOfSources(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.ToolSources))
	for k := range cfg.ToolSources {
		out = append(out, k)
	}
	return out
}

func joinKeys(keys []string) string {
	if len(keys) == 0 {
		return "(none)"
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
