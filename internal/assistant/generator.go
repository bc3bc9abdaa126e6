// Package assistant answers course questions with an LLM that may consult
// the course search tool once per query.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/logging"
	"github.com/ziadkadry99/courserag/internal/metrics"
	"github.com/ziadkadry99/courserag/internal/tools"
)

// DefaultMaxTokens caps each completion when Options.MaxTokens is unset.
const DefaultMaxTokens = 800

// ToolExecutor provides the tools offered to the model. *tools.Registry
// implements it.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name, args string) (tools.Result, error)
}

// Options configures a Generator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *zap.Logger
}

// Generator runs the two-round tool-calling exchange with the model.
type Generator struct {
	provider    llm.Provider
	tools       ToolExecutor
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewGenerator creates a generator. tools may be nil, in which case the
// model always answers directly.
func NewGenerator(provider llm.Provider, tools ToolExecutor, opts Options) *Generator {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{
		provider:    provider,
		tools:       tools,
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		logger:      logging.OrNop(opts.Logger).Named("assistant"),
	}
}

// Response is the model's answer together with the sources its searches
// returned.
type Response struct {
	Answer       string
	Sources      []course.Source
	Rounds       int
	ToolCalls    int
	InputTokens  int
	OutputTokens int
}

// Generate answers query. history is the formatted conversation so far and
// may be empty. Any provider or tool transport failure fails the query.
func (g *Generator) Generate(ctx context.Context, query, history string) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			metrics.QueriesTotal.WithLabelValues("error").Inc()
		case resp.ToolCalls > 0:
			metrics.QueriesTotal.WithLabelValues("tool").Inc()
		default:
			metrics.QueriesTotal.WithLabelValues("direct").Inc()
		}
	}()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(history)},
		{Role: llm.RoleUser, Content: query},
	}

	var defs []llm.ToolDefinition
	if g.tools != nil {
		defs = g.tools.Definitions()
	}

	out := &Response{}
	first, err := g.complete(ctx, messages, defs, out)
	if err != nil {
		return nil, err
	}
	if !first.WantsTools() || g.tools == nil {
		out.Answer = strings.TrimSpace(first.Content)
		g.logDone(out, start)
		return out, nil
	}

	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for _, call := range first.ToolCalls {
		res, err := g.tools.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", call.Name, err)
		}
		g.logger.Debug("tool executed",
			zap.String("tool", call.Name),
			zap.String("args", call.Arguments),
			zap.Int("sources", len(res.Sources)))
		out.ToolCalls++
		out.Sources = append(out.Sources, res.Sources...)
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    res.Output,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}

	// No tools in the second round: the model must answer from the results.
	second, err := g.complete(ctx, messages, nil, out)
	if err != nil {
		return nil, err
	}
	out.Answer = strings.TrimSpace(second.Content)
	g.logDone(out, start)
	return out, nil
}

func (g *Generator) complete(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition, out *Response) (*llm.CompletionResponse, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Tools:       defs,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM completion: %w", err)
	}
	out.Rounds++
	out.InputTokens += resp.InputTokens
	out.OutputTokens += resp.OutputTokens
	metrics.LLMTokensTotal.WithLabelValues("input").Add(float64(resp.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues("output").Add(float64(resp.OutputTokens))
	return resp, nil
}

func (g *Generator) logDone(out *Response, start time.Time) {
	g.logger.Info("query answered",
		zap.String("provider", g.provider.Name()),
		zap.String("model", g.model),
		zap.Int("rounds", out.Rounds),
		zap.Int("tool_calls", out.ToolCalls),
		zap.Int("input_tokens", out.InputTokens),
		zap.Int("output_tokens", out.OutputTokens),
		zap.Float64("cost_usd", llm.EstimateCost(g.model, out.InputTokens, out.OutputTokens)),
		zap.Duration("took", time.Since(start)))
}
