package core

import "time"

// ToolExecutionResult is the uniform outcome of a tool invocation. Exactly
// one of Result/Error is meaningful depending on Success; the pipeline never
// surfaces tool failures as Go errors past its boundary.
type ToolExecutionResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure builds a failed result with the given error text.
func Failure(errText string) ToolExecutionResult {
	return ToolExecutionResult{Success: false, Error: errText}
}

// Succeed builds a successful result carrying the backend payload.
func Succeed(result any) ToolExecutionResult {
	return ToolExecutionResult{Success: true, Result: result}
}

// GraphState is a derived snapshot of where a session sits in the workflow
// graph. It is computed on demand and never stored.
type GraphState struct {
	SessionID        string    `json:"sessionId"`
	CurrentNode      string    `json:"currentNode"`
	MessageCount     int       `json:"messageCount"`
	SessionStartTime time.Time `json:"sessionStartTime"`
}

// HandoffContext carries the conversational context that travels with a
// hand-off. Verified is omitted entirely (not false) for unverified sessions.
type HandoffContext struct {
	FromAgent       string `json:"fromAgent"`
	Reason          string `json:"reason,omitempty"`
	Verified        bool   `json:"verified,omitempty"`
	UserName        string `json:"userName,omitempty"`
	Account         string `json:"account,omitempty"`
	SortCode        string `json:"sortCode,omitempty"`
	UserIntent      string `json:"userIntent,omitempty"`
	LastUserMessage string `json:"lastUserMessage,omitempty"`
	IsReturn        bool   `json:"isReturn,omitempty"`
	TaskCompleted   string `json:"taskCompleted,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// HandoffRequest asks the transport to move the conversation to another
// specialized agent, carrying context and the graph state at hand-off time.
type HandoffRequest struct {
	TargetAgentID string         `json:"targetAgentId"`
	Context       HandoffContext `json:"context"`
	GraphState    GraphState     `json:"graphState"`
}

// HandoffResult is the success payload returned from a hand-off tool call.
type HandoffResult struct {
	Message        string         `json:"message"`
	ToolName       string         `json:"toolName"`
	HandoffRequest HandoffRequest `json:"handoffRequest"`
}

// ResponseType enumerates the kinds of AgentResponse.
type ResponseType string

const (
	// ResponseText is a plain assistant text reply.
	ResponseText ResponseType = "text"
	// ResponseToolCall asks the caller to execute one or more tools.
	ResponseToolCall ResponseType = "tool_call"
	// ResponseHandoff carries a hand-off request to another agent.
	ResponseHandoff ResponseType = "handoff"
	// ResponseError reports a reasoning failure as data.
	ResponseError ResponseType = "error"
)

// ToolCall is a tool invocation requested by the reasoning engine.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// AgentResponse is the unit returned from processing one user message.
// Reasoning failures surface as Type == ResponseError, never as panics or
// returned Go errors.
type AgentResponse struct {
	Type           ResponseType    `json:"type"`
	Content        string          `json:"content,omitempty"`
	ToolCalls      []ToolCall      `json:"toolCalls,omitempty"`
	HandoffRequest *HandoffRequest `json:"handoffRequest,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ErrorResponse builds an AgentResponse reporting a failure.
func ErrorResponse(errText string) AgentResponse {
	return AgentResponse{Type: ResponseError, Error: errText}
}
