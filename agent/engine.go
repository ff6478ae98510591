// Package agent implements the turn engine: it drives a model provider and
// a set of tool sources through bounded iterations and yields a strictly
// ordered event stream for each pushed input.
package agent

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentfusion/agentfusion/llms"
	"github.com/agentfusion/agentfusion/memory"
	"github.com/agentfusion/agentfusion/observability"
	"github.com/agentfusion/agentfusion/protocol"
	"github.com/agentfusion/agentfusion/tools"
)

const defaultMaxToolIterations = 10

// Config assembles an Engine.
type Config struct {
	// Name identifies the agent in events, history, and logs.
	Name string

	// Description is surfaced to peers and operators, not to the model.
	Description string

	// Provider generates model output for the conversation.
	Provider llms.Provider

	// Store holds the conversation history the model sees.
	Store memory.Store

	// Sources supply the tools offered to the model. Handoff tools may be
	// registered here directly or synthesized from Handoffs below.
	Sources []tools.Source

	// Handoffs lists peer agents this agent may transfer to. Each entry
	// becomes a handoff tool in an engine-owned source.
	Handoffs []*tools.HandoffTool

	// SystemPrompt is prepended to every model request.
	SystemPrompt string

	// MaxToolIterations bounds model invocations per turn. Zero means the
	// default of 10.
	MaxToolIterations int

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Engine runs agent turns. A turn is opened with Push after Start; at most
// one turn may be in flight at a time.
type Engine struct {
	name          string
	description   string
	provider      llms.Provider
	store         memory.Store
	sources       []tools.Source
	systemPrompt  string
	maxIterations int
	logger        *slog.Logger

	started atomic.Bool
	running atomic.Bool

	// Handoff targets are resolved from the sources once, on first use,
	// and cached for the engine's lifetime.
	handoffMu     sync.Mutex
	handoffCache  map[string]*tools.Info
	handoffCached bool
}

// NewEngine validates cfg and builds an engine. Handoff configs are wrapped
// into an internal source so they appear in the catalog like any other tool.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent %q: model provider is required", cfg.Name)
	}
	store := cfg.Store
	if store == nil {
		store = memory.NewBufferStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := cfg.MaxToolIterations
	if maxIter <= 0 {
		maxIter = defaultMaxToolIterations
	}

	sources := make([]tools.Source, 0, len(cfg.Sources)+1)
	sources = append(sources, cfg.Sources...)
	if len(cfg.Handoffs) > 0 {
		hs := tools.NewLocalSource("handoffs")
		for _, h := range cfg.Handoffs {
			if err := hs.Register(h); err != nil {
				return nil, fmt.Errorf("agent %q: %w", cfg.Name, err)
			}
		}
		sources = append(sources, hs)
	}

	return &Engine{
		name:          cfg.Name,
		description:   cfg.Description,
		provider:      cfg.Provider,
		store:         store,
		sources:       sources,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: maxIter,
		logger:        logger.With("agent", cfg.Name),
	}, nil
}

// Name returns the agent's name.
func (e *Engine) Name() string { return e.name }

// Description returns the agent's human-readable description.
func (e *Engine) Description() string { return e.description }

// Store exposes the engine's conversation store.
func (e *Engine) Store() memory.Store { return e.store }

// Start marks the engine ready to accept turns.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("agent %q: already started", e.name)
	}
	e.logger.Debug("agent started")
	return nil
}

// End marks the engine stopped and releases sources that hold external
// resources. Push fails after End.
func (e *Engine) End(ctx context.Context) error {
	if !e.started.CompareAndSwap(true, false) {
		return fmt.Errorf("agent %q: not started", e.name)
	}
	for _, src := range e.sources {
		if c, ok := src.(tools.Closer); ok {
			if err := c.Close(); err != nil {
				e.logger.Warn("failed to close tool source", "source", src.Name(), "error", err)
			}
		}
	}
	e.logger.Debug("agent ended")
	return nil
}

// InvalidateHandoffs drops the cached handoff registry so the next turn
// rebuilds it from the sources.
func (e *Engine) InvalidateHandoffs() {
	e.handoffMu.Lock()
	defer e.handoffMu.Unlock()
	e.handoffCache = nil
	e.handoffCached = false
}

// Push runs one turn for a line of user input and returns its event
// stream. The stream is lazy: nothing executes until it is iterated. It
// yields zero or more StreamingChunk, Thought, ToolCallRequested, and
// ToolCallExecuted events and terminates with exactly one Response or
// Handoff, unless a fatal error is delivered through the error slot
// instead.
func (e *Engine) Push(ctx context.Context, input string) iter.Seq2[*Event, error] {
	var messages []*protocol.Message
	if input != "" {
		messages = []*protocol.Message{protocol.NewUserMessage("user", input)}
	}
	return e.PushMessages(ctx, messages)
}

// PushMessages runs one turn seeded with already-typed messages, such as
// the context carried by an inbound handoff.
func (e *Engine) PushMessages(ctx context.Context, messages []*protocol.Message) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if !e.started.Load() {
			yield(nil, ErrNotStarted)
			return
		}
		if !e.running.CompareAndSwap(false, true) {
			yield(nil, ErrTurnActive)
			return
		}
		defer e.running.Store(false)
		e.runTurn(ctx, messages, yield)
	}
}

// turnState threads per-turn bookkeeping through the loop.
type turnState struct {
	invocationID string
	lastResult   *llms.Result
	stopped      bool
}

func (e *Engine) runTurn(ctx context.Context, inputs []*protocol.Message, yield func(*Event, error) bool) {
	ctx, span := observability.Tracer("agentfusion/agent").Start(ctx, "agent.turn")
	span.SetAttributes(observability.AgentAttr(e.name))
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		observability.TurnsTotal.WithLabelValues(e.name, outcome).Inc()
		observability.TurnDuration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
	}()

	st := &turnState{invocationID: uuid.New().String()}
	fail := func(iteration int, err error) {
		yield(nil, &TurnError{Agent: e.name, Iteration: iteration, Err: err})
	}

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			fail(iteration, err)
			return
		}

		if iteration == 0 {
			for _, msg := range inputs {
				if err := e.store.AddMessage(ctx, msg); err != nil {
					fail(iteration, fmt.Errorf("failed to record input: %w", err))
					return
				}
			}
		}

		cat, err := e.resolveCatalog(ctx)
		if err != nil {
			fail(iteration, err)
			return
		}

		messages, err := e.buildContext(ctx)
		if err != nil {
			fail(iteration, err)
			return
		}

		result, err := e.invokeModel(ctx, messages, cat.definitions(), st, yield)
		if err != nil {
			fail(iteration, err)
			return
		}
		if st.stopped {
			return
		}
		st.lastResult = result
		observability.ModelTokensTotal.WithLabelValues(e.name).Add(float64(result.Tokens))

		if result.Thought != "" {
			ev := newEvent(st.invocationID, e.name, EventThought)
			ev.Thought = result.Thought
			if !yield(ev, nil) {
				return
			}
		}

		assistant := protocol.NewAssistantMessage(e.name, result.Text)
		assistant.Thought = result.Thought
		assistant.ToolCalls = result.ToolCalls
		if err := e.store.AddMessage(ctx, assistant); err != nil {
			fail(iteration, fmt.Errorf("failed to record assistant message: %w", err))
			return
		}

		if !result.HasToolCalls() {
			outcome = "response"
			ev := newEvent(st.invocationID, e.name, EventResponse)
			ev.Response = assistant
			yield(ev, nil)
			return
		}

		req := newEvent(st.invocationID, e.name, EventToolCallRequested)
		req.ToolCalls = result.ToolCalls
		if !yield(req, nil) {
			return
		}

		results, err := e.executeCalls(ctx, result.ToolCalls, cat, st, yield)
		if err != nil {
			fail(iteration, err)
			return
		}
		if st.stopped {
			return
		}

		done := newEvent(st.invocationID, e.name, EventToolCallExecuted)
		done.ToolResults = results
		if !yield(done, nil) {
			return
		}

		if err := e.store.AddMessage(ctx, protocol.NewToolMessage(e.name, results)); err != nil {
			fail(iteration, fmt.Errorf("failed to record tool results: %w", err))
			return
		}

		if handoff := e.detectHandoff(result.ToolCalls, results, cat, assistant); handoff != nil {
			outcome = "handoff"
			ev := newEvent(st.invocationID, e.name, EventHandoff)
			ev.Handoff = handoff
			yield(ev, nil)
			return
		}
	}

	// The iteration bound was hit; surface the last model output as the
	// final answer even when it still requests tools.
	outcome = "response"
	e.logger.Warn("tool iteration limit reached, returning last model output",
		"max_iterations", e.maxIterations)
	final := protocol.NewAssistantMessage(e.name, st.lastResult.Text)
	final.Thought = st.lastResult.Thought
	final.ToolCalls = st.lastResult.ToolCalls
	ev := newEvent(st.invocationID, e.name, EventResponse)
	ev.Response = final
	yield(ev, nil)
}

// buildContext assembles the provider request: the system prompt, if any,
// ahead of the stored history.
func (e *Engine) buildContext(ctx context.Context) ([]*protocol.Message, error) {
	history, err := e.store.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if e.systemPrompt == "" {
		return history, nil
	}
	messages := make([]*protocol.Message, 0, len(history)+1)
	messages = append(messages, protocol.NewSystemMessage(e.systemPrompt))
	return append(messages, history...), nil
}

// invokeModel streams one provider call, forwarding text and thinking
// fragments as StreamingChunk events and accumulating the final result.
func (e *Engine) invokeModel(ctx context.Context, messages []*protocol.Message, defs []llms.ToolDefinition, st *turnState, yield func(*Event, error) bool) (*llms.Result, error) {
	ctx, span := observability.Tracer("agentfusion/agent").Start(ctx, "model.generate")
	span.SetAttributes(attribute.String("model", e.provider.ModelName()))
	defer span.End()

	ch, err := e.provider.GenerateStreaming(ctx, messages, defs)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	result := &llms.Result{}
	for chunk := range ch {
		switch chunk.Type {
		case llms.ChunkTypeText:
			result.Text += chunk.Text
			ev := newEvent(st.invocationID, e.name, EventStreamingChunk)
			ev.Chunk = chunk.Text
			if !yield(ev, nil) {
				st.stopped = true
				go drain(ch)
				return nil, nil
			}
		case llms.ChunkTypeThinking:
			result.Thought += chunk.Text
		case llms.ChunkTypeToolCall:
			if chunk.ToolCall != nil {
				result.ToolCalls = append(result.ToolCalls, chunk.ToolCall)
			}
		case llms.ChunkTypeDone:
			result.Tokens += chunk.Tokens
		case llms.ChunkTypeError:
			go drain(ch)
			return nil, fmt.Errorf("model stream failed: %w", chunk.Error)
		default:
			go drain(ch)
			return nil, fmt.Errorf("model stream produced unknown chunk type %q", chunk.Type)
		}
	}
	return result, nil
}

// drain unblocks an abandoned producer so its goroutine can exit.
func drain(ch <-chan llms.StreamChunk) {
	for range ch {
	}
}

// detectHandoff inspects executed calls for handoff tools. The first such
// call in request order wins; any others are dropped with a warning. The
// returned handoff carries the executed tool's output as the message, the
// registered default when that output is empty, and the assistant's
// reasoning as context for the target.
func (e *Engine) detectHandoff(calls []*protocol.ToolCall, results []*protocol.ToolResult, cat *catalog, assistant *protocol.Message) *Handoff {
	var handoff *Handoff
	for i, call := range calls {
		info := cat.handoffs[call.Name]
		if !info.IsHandoff() {
			continue
		}
		if handoff != nil {
			e.logger.Warn("dropping extra handoff request", "tool", call.Name, "target", info.Target)
			continue
		}
		msg := info.Message
		if i < len(results) && !results[i].IsError && results[i].Content != "" {
			msg = results[i].Content
		}
		handoff = &Handoff{Target: info.Target, Message: msg}
		if assistant.Thought != "" {
			ctxMsg := protocol.NewAssistantMessage(e.name, assistant.Thought)
			handoff.Context = []*protocol.Message{ctxMsg}
		}
	}
	return handoff
}
