// Package agentfusion is a config-first conversational agent runtime.
//
// Agents are declared in YAML: each one binds a model provider, a set of
// tool sources, optional handoff targets, and a memory backing. A turn is
// opened by pushing user input into an agent's engine, which yields a
// strictly ordered stream of events: streaming chunks, reasoning, tool
// call lifecycle, and exactly one terminal response or handoff.
//
// The runtime ships with OpenAI and Anthropic providers, local and MCP
// tool sources, optional postgres persistence for sessions and users, an
// HTTP server with server-sent event streaming, and an interactive CLI.
//
// Start with the component package to assemble a runtime from a config
// document, or with the agent package to drive an engine directly.
package agentfusion
