package core

import "context"

// ToolsClient executes knowledge-base and generic local tools. Implementations
// live outside the core; any error they return is caught by the pipeline and
// normalized to a failed ToolExecutionResult. Retries, if any, are the
// client's concern. Input is the caller's payload as decoded JSON, passed
// through unchanged (an object or an array).
type ToolsClient interface {
	ExecuteTool(ctx context.Context, name string, input any) (any, error)
}

// DecisionEvaluator decides whether a labeled workflow edge applies to a
// session. Consumed by the graph executor at decision nodes; not implemented
// here.
type DecisionEvaluator interface {
	Evaluate(ctx context.Context, condition string, state GraphState, session *Session) (bool, error)
}

// ReasoningEngine produces the assistant's next response for a conversation.
// Implementations may call LLM APIs; errors they return are mapped by the
// session manager to an AgentResponse of type "error", never rethrown.
type ReasoningEngine interface {
	Respond(ctx context.Context, systemPrompt string, history []Message) (AgentResponse, error)
}

// Transport is the outbound leg of a protocol adapter: it delivers events to
// whatever the client is connected through. Send failures are the adapter's
// to log; they never abort a session.
type Transport interface {
	Send(ev Event) error
}

// StreamClient is the voice adapter's transport-specific resource: a handle
// onto the streaming speech collaborator. StartSession registers the inbound
// event callback; StopSession releases the stream and may be called at most
// once per started session.
type StreamClient interface {
	StartSession(ctx context.Context, sessionID string, onEvent func(Event)) error
	StopSession() error
	SendAudio(ctx context.Context, frame []byte) error
	SendText(ctx context.Context, text string) error
}

// StreamFactory creates a StreamClient for a new voice session.
type StreamFactory func(sessionID string) (StreamClient, error)
