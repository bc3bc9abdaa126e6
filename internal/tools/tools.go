// Package tools holds the functions exposed to the model during a query.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/metrics"
)

// Result is the outcome of one tool invocation. Output is the text handed
// back to the model; Sources are the citations it produced.
type Result struct {
	Output  string
	Sources []course.Source
}

// Tool is a function the model may call.
type Tool interface {
	Definition() llm.ToolDefinition
	// Execute runs the tool with the model's raw JSON arguments. Argument
	// problems are reported in Result.Output; the error is reserved for
	// failures the model cannot recover from.
	Execute(ctx context.Context, args string) (Result, error)
}

// Registry maps tool names to tools, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool. A tool with the same name replaces the earlier one.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the definitions of all registered tools.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. An unknown name is reported to the model as
// output, not as an error.
func (r *Registry) Execute(ctx context.Context, name, args string) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues(name, "not_found").Inc()
		return Result{Output: fmt.Sprintf("Tool '%s' not found", name)}, nil
	}
	return t.Execute(ctx, args)
}
