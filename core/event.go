package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies adapter events on both the inbound (streaming
// collaborator) and outbound (transport) legs.
type EventType string

const (
	// EventConnected signals that a session started successfully.
	EventConnected EventType = "connected"
	// EventError reports a failure to the transport.
	EventError EventType = "error"
	// EventAudio carries an opaque audio frame.
	EventAudio EventType = "audio"
	// EventText carries a text fragment (transcript or reply).
	EventText EventType = "text"
	// EventToolUse is an inbound request to execute a named tool.
	EventToolUse EventType = "toolUse"
	// EventToolCall acknowledges a tool invocation on the outbound leg.
	EventToolCall EventType = "tool_call"
	// EventToolResult carries the payload of a successful tool invocation.
	EventToolResult EventType = "tool_result"
	// EventHandoffRequest forwards a hand-off produced by a tool call.
	EventHandoffRequest EventType = "handoff_request"
)

// Event is the unit forwarded between the streaming collaborator, the voice
// adapter and the outbound transport. After emission it should be treated as
// immutable. Audio payloads are forwarded bit-for-bit; structured payloads
// field-for-field.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Audio []byte `json:"audio,omitempty"`
	Text  string `json:"text,omitempty"`
	Role  Role   `json:"role,omitempty"`

	ToolName  string         `json:"toolName,omitempty"`
	ToolUseID string         `json:"toolUseId,omitempty"`
	ToolInput any            `json:"toolInput,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
	Handoff   *HandoffRequest `json:"handoffRequest,omitempty"`
}

// NewID generates a unique identifier for events and tool invocations.
func NewID() string { return uuid.NewString() }

// NewEvent creates a bare event of the given type bound to a session.
func NewEvent(sessionID string, t EventType) Event {
	return Event{ID: NewID(), Type: t, SessionID: sessionID, Timestamp: time.Now().UTC()}
}

// NewConnectedEvent signals successful session start to the transport.
func NewConnectedEvent(sessionID string) Event {
	return NewEvent(sessionID, EventConnected)
}

// NewErrorEvent reports a failure to the transport.
func NewErrorEvent(sessionID, errText string) Event {
	e := NewEvent(sessionID, EventError)
	e.Error = errText
	return e
}

// NewAudioEvent wraps an opaque audio frame.
func NewAudioEvent(sessionID string, frame []byte) Event {
	e := NewEvent(sessionID, EventAudio)
	e.Audio = frame
	return e
}

// NewToolUseEvent builds an inbound tool invocation request.
func NewToolUseEvent(sessionID, toolName, toolUseID string, input any) Event {
	e := NewEvent(sessionID, EventToolUse)
	e.ToolName = toolName
	e.ToolUseID = toolUseID
	e.ToolInput = input
	return e
}
