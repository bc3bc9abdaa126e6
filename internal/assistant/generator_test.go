package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/tools"
)

// scriptedProvider returns its responses in order and records every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	err       error
	requests  []llm.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

type toolCall struct{ name, args string }

// stubTools answers every call with a fixed result.
type stubTools struct {
	result tools.Result
	err    error
	calls  []toolCall
}

func (s *stubTools) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{{Name: tools.SearchToolName}}
}

func (s *stubTools) Execute(_ context.Context, name, args string) (tools.Result, error) {
	s.calls = append(s.calls, toolCall{name, args})
	return s.result, s.err
}

func text(s string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: s, InputTokens: 10, OutputTokens: 5}
}

func wantsSearch(ids ...string) *llm.CompletionResponse {
	resp := &llm.CompletionResponse{InputTokens: 20, OutputTokens: 4}
	for _, id := range ids {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        id,
			Name:      tools.SearchToolName,
			Arguments: `{"query":"loops","course_name":"Python"}`,
		})
	}
	return resp
}

var loopSources = []course.Source{
	{Text: "Introduction to Python - Lesson 1", URL: "https://example.com/python/1"},
}

func TestGenerate_DirectAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{text("  Python is a language.  ")}}
	st := &stubTools{}
	g := NewGenerator(provider, st, Options{Model: "m"})

	resp, err := g.Generate(context.Background(), "What is Python?", "")
	require.NoError(t, err)

	assert.Equal(t, "Python is a language.", resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 1, resp.Rounds)
	assert.Empty(t, st.calls)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.Zero(t, req.Temperature)
	assert.Len(t, req.Tools, 1)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "What is Python?", req.Messages[1].Content)
}

func TestGenerate_ToolRound(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		wantsSearch("call_1"),
		text("Loops repeat code."),
	}}
	st := &stubTools{result: tools.Result{Output: "[Introduction to Python - Lesson 1]\nfor loops", Sources: loopSources}}
	g := NewGenerator(provider, st, Options{Model: "m", MaxTokens: 100})

	resp, err := g.Generate(context.Background(), "How do loops work in the Python course?", "")
	require.NoError(t, err)

	assert.Equal(t, "Loops repeat code.", resp.Answer)
	assert.Equal(t, loopSources, resp.Sources)
	assert.Equal(t, 2, resp.Rounds)
	assert.Equal(t, 1, resp.ToolCalls)
	assert.Equal(t, 30, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)

	require.Len(t, st.calls, 1)
	assert.Equal(t, tools.SearchToolName, st.calls[0].name)
	assert.JSONEq(t, `{"query":"loops","course_name":"Python"}`, st.calls[0].args)

	require.Len(t, provider.requests, 2)
	second := provider.requests[1]
	assert.Empty(t, second.Tools, "second round must not offer tools")
	assert.Equal(t, 100, second.MaxTokens)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, second.Messages[2].Role)
	assert.Len(t, second.Messages[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, second.Messages[3].Role)
	assert.Equal(t, "call_1", second.Messages[3].ToolCallID)
	assert.Equal(t, tools.SearchToolName, second.Messages[3].ToolName)
	assert.Contains(t, second.Messages[3].Content, "for loops")
}

func TestGenerate_AllToolCallsExecutedInOrder(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		wantsSearch("a", "b"),
		text("done"),
	}}
	st := &stubTools{result: tools.Result{Output: "out", Sources: loopSources}}
	g := NewGenerator(provider, st, Options{})

	resp, err := g.Generate(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ToolCalls)
	assert.Len(t, resp.Sources, 2)
	assert.Len(t, st.calls, 2)

	msgs := provider.requests[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "a", msgs[3].ToolCallID)
	assert.Equal(t, "b", msgs[4].ToolCallID)
}

func TestGenerate_HistoryInSystemPrompt(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{text("More detail.")}}
	g := NewGenerator(provider, nil, Options{})

	history := "User: What is Python?\nAssistant: A language."
	_, err := g.Generate(context.Background(), "Tell me more", history)
	require.NoError(t, err)

	system := provider.requests[0].Messages[0].Content
	assert.True(t, strings.HasPrefix(system, SystemPrompt))
	assert.True(t, strings.HasSuffix(system, "Previous conversation:\n"+history))
	assert.Empty(t, provider.requests[0].Tools, "no tools without an executor")
}

func TestGenerate_ProviderErrorFailsQuery(t *testing.T) {
	boom := errors.New("503 service unavailable")
	g := NewGenerator(&scriptedProvider{err: boom}, &stubTools{}, Options{})

	_, err := g.Generate(context.Background(), "q", "")
	require.ErrorIs(t, err, boom)
}

func TestGenerate_ToolTransportErrorFailsQuery(t *testing.T) {
	boom := errors.New("embedding service down")
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{wantsSearch("call_1"), text("unused")}}
	g := NewGenerator(provider, &stubTools{err: boom}, Options{})

	_, err := g.Generate(context.Background(), "q", "")
	require.ErrorIs(t, err, boom)
	assert.Len(t, provider.requests, 1, "no second round after a failed tool")
}

func TestGenerate_SourcesDoNotLeakAcrossQueries(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		wantsSearch("call_1"),
		text("Loops repeat code."),
		text("Hello."),
	}}
	st := &stubTools{result: tools.Result{Output: "out", Sources: loopSources}}
	g := NewGenerator(provider, st, Options{})

	first, err := g.Generate(context.Background(), "loops?", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Sources)

	second, err := g.Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Empty(t, second.Sources)
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t, SystemPrompt, BuildSystemPrompt(""))
	assert.Contains(t, strings.ToLower(SystemPrompt), "search tool")
}
