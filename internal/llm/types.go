package llm

import "github.com/sashabaranov/go-openai/jsonschema"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
//
// An assistant message may carry ToolCalls; the results are sent back as
// RoleTool messages whose ToolCallID names the call they answer.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ToolCall is a model's request to invoke a tool. Arguments is the raw JSON
// object produced by the model; it is not guaranteed to be valid.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// CompletionRequest contains the parameters for an LLM completion request.
// When Tools is non-empty the model may answer with ToolCalls instead of text.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// WantsTools reports whether the model asked for tool execution.
func (r *CompletionResponse) WantsTools() bool {
	return len(r.ToolCalls) > 0
}
