package agent

import (
	"context"
	"fmt"

	"github.com/agentfusion/agentfusion/observability"
	"github.com/agentfusion/agentfusion/protocol"
	"github.com/agentfusion/agentfusion/tools"
)

// executeCalls runs the requested calls one at a time, in request order.
// Unknown tools and unparseable arguments become error-flagged results the
// model can react to; source failures abort the turn. Streaming sources
// have their partial results forwarded as StreamingChunk events before the
// final result is collected.
func (e *Engine) executeCalls(ctx context.Context, calls []*protocol.ToolCall, cat *catalog, st *turnState, yield func(*Event, error) bool) ([]*protocol.ToolResult, error) {
	results := make([]*protocol.ToolResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := e.executeCall(ctx, call, cat, st, yield)
		if err != nil {
			observability.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
			return nil, fmt.Errorf("tool %q failed: %w", call.Name, err)
		}
		if st.stopped {
			return nil, nil
		}

		status := "ok"
		if res.IsError {
			status = "error"
		}
		observability.ToolCallsTotal.WithLabelValues(call.Name, status).Inc()
		results = append(results, &protocol.ToolResult{
			ToolCallID: call.ID,
			Content:    res.Content,
			IsError:    res.IsError,
		})
	}
	return results, nil
}

func (e *Engine) executeCall(ctx context.Context, call *protocol.ToolCall, cat *catalog, st *turnState, yield func(*Event, error) bool) (*tools.Result, error) {
	args := call.Args
	if args == nil {
		if call.Raw != "" {
			e.logger.Warn("tool arguments failed to parse", "tool", call.Name)
			return &tools.Result{
				Content: fmt.Sprintf("Error: arguments for tool %q are not valid JSON", call.Name),
				IsError: true,
			}, nil
		}
		args = map[string]interface{}{}
	}

	src, ok := cat.route[call.Name]
	if !ok {
		e.logger.Warn("model requested unknown tool", "tool", call.Name)
		return &tools.Result{
			Content: fmt.Sprintf("Error: tool %q is not available", call.Name),
			IsError: true,
		}, nil
	}

	if ss, ok := src.(tools.StreamingSource); ok {
		return e.streamCall(ctx, ss, call.Name, args, st, yield)
	}
	return src.Call(ctx, call.Name, args)
}

// streamCall drains a streaming tool through a bounded channel, forwarding
// partial results into the turn's event stream. The closed channel is the
// end-of-stream sentinel; the last non-partial result is the call's outcome.
func (e *Engine) streamCall(ctx context.Context, src tools.StreamingSource, name string, args map[string]interface{}, st *turnState, yield func(*Event, error) bool) (*tools.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type item struct {
		res *tools.Result
		err error
	}
	ch := make(chan item, 8)
	go func() {
		defer close(ch)
		for res, err := range src.CallStream(ctx, name, args) {
			select {
			case ch <- item{res: res, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var final *tools.Result
	for it := range ch {
		if it.err != nil {
			cancel()
			for range ch {
			}
			return nil, it.err
		}
		if it.res == nil {
			continue
		}
		if it.res.Partial {
			ev := newEvent(st.invocationID, e.name, EventStreamingChunk)
			ev.Chunk = it.res.Content
			if !yield(ev, nil) {
				st.stopped = true
				cancel()
				for range ch {
				}
				return nil, nil
			}
			continue
		}
		final = it.res
	}
	if final == nil {
		final = &tools.Result{}
	}
	return final, nil
}
