// Package session implements the session manager: the owner of all active
// conversation sessions, their memory snapshots and message history, and the
// public operations protocol adapters call.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/handoff"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/workflow"
)

// ErrSessionNotFound is returned by operations that require an existing
// session. Its text is the uniform "session not found" failure adapters and
// the tool pipeline surface as data.
var ErrSessionNotFound = errors.New("Session not found")

// Manager owns the session map. Sessions are independent units of
// concurrency: the map is guarded by a single mutex held only for lookups and
// insert/delete, never across blocking work, so concurrent sessions do not
// block on each other.
type Manager struct {
	agentID   string
	executor  *workflow.Executor
	assembler *handoff.Assembler
	engine    core.ReasoningEngine
	logger    logging.Logger

	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// AgentID identifies the agent this core runs as; it is stamped into
	// hand-off context and defaults to "triage".
	AgentID string
	// Engine produces assistant responses; when nil, ProcessUserMessage
	// reports an error response.
	Engine core.ReasoningEngine
	// Logger defaults to a no-op.
	Logger logging.Logger
}

// NewManager creates a Manager over the given workflow executor.
func NewManager(executor *workflow.Executor, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{AgentID: handoff.TriageAgentID}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		agentID:   opts.AgentID,
		executor:  executor,
		assembler: handoff.NewAssembler(opts.AgentID, executor),
		engine:    opts.Engine,
		logger:    logging.OrNoOp(opts.Logger),
		sessions:  make(map[string]*core.Session),
	}
}

// AgentID returns the id this core runs as.
func (m *Manager) AgentID() string { return m.agentID }

// Executor returns the shared workflow executor.
func (m *Manager) Executor() *workflow.Executor { return m.executor }

// Assembler returns the hand-off assembler bound to this agent.
func (m *Manager) Assembler() *handoff.Assembler { return m.assembler }

// InitializeSession creates a fresh session at the workflow start node,
// optionally restoring a memory snapshot. The id must be unique among active
// sessions; a duplicate is an error and leaves the existing session
// untouched.
func (m *Manager) InitializeSession(id string, mem *core.SessionMemory) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	s := core.NewSession(id, m.executor.StartNode())
	if mem != nil {
		s.RestoreMemory(*mem)
	}
	m.sessions[id] = s
	m.logger.Info("session.initialized", "session_id", id, "node", s.CurrentNode)
	return s, nil
}

// GetSession returns the session for id, if it is active.
func (m *Manager) GetSession(id string) (*core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// EndSession removes a session and discards its memory snapshot. It is
// idempotent: ending an absent id is a no-op.
func (m *Manager) EndSession(id string) {
	m.mu.Lock()
	_, existed := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if existed {
		m.logger.Info("session.ended", "session_id", id)
	}
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetSessionMemory reconstructs the memory snapshot from current session
// state. An absent or ended session yields the zero snapshot.
func (m *Manager) GetSessionMemory(id string) core.SessionMemory {
	s, ok := m.GetSession(id)
	if !ok {
		return core.SessionMemory{}
	}
	return s.Memory()
}

// UpdateSessionMemory overwrites the session's verified identity and intent
// from the given snapshot. Absent sessions are a silent no-op; adapters are
// expected to check existence first when they care.
func (m *Manager) UpdateSessionMemory(id string, mem core.SessionMemory) {
	s, ok := m.GetSession(id)
	if !ok {
		return
	}
	if mem.Verified && mem.UserName != "" {
		s.SetVerifiedUser(&core.VerifiedUser{
			CustomerName: mem.UserName,
			Account:      mem.Account,
			SortCode:     mem.SortCode,
			AuthStatus:   core.AuthStatusVerified,
		})
	} else {
		s.SetVerifiedUser(nil)
	}
	s.SetUserIntent(mem.UserIntent)
}

// UpdateWorkflowState records the session's current workflow node and
// returns the resulting graph state. The node id is not validated against the
// graph at this layer; callers supply valid ids. Absent sessions are a silent
// no-op yielding the zero snapshot.
func (m *Manager) UpdateWorkflowState(id, nodeID string) core.GraphState {
	s, ok := m.GetSession(id)
	if !ok {
		return core.GraphState{}
	}
	s.CurrentNode = nodeID
	return m.executor.GraphState(s)
}

// GetSystemPrompt assembles the system prompt for a session. Verified-user
// data and inferred intent, when present, are injected into a session context
// block.
func (m *Manager) GetSystemPrompt(id string) string {
	var b strings.Builder
	b.WriteString("You are the ")
	b.WriteString(m.agentID)
	b.WriteString(" agent for a conversational banking assistant. ")
	b.WriteString("Answer concisely, use the available tools when a task requires them, ")
	b.WriteString("and hand the conversation to a specialist agent when the user's request is outside your remit.")

	s, ok := m.GetSession(id)
	if !ok {
		return b.String()
	}
	vu := s.VerifiedUser()
	intent := s.UserIntent()
	if vu == nil && intent == "" {
		return b.String()
	}
	b.WriteString("\n\nCURRENT SESSION CONTEXT\n")
	if vu != nil {
		b.WriteString("The caller has passed identity verification.\n")
		b.WriteString("Customer name: ")
		b.WriteString(vu.CustomerName)
		b.WriteString("\n")
	}
	if intent != "" {
		b.WriteString("Inferred intent: ")
		b.WriteString(intent)
		b.WriteString("\n")
	}
	return b.String()
}

// ProcessUserMessage appends the user message to the history and delegates to
// the reasoning engine. It never returns a Go error: absent sessions and
// engine failures surface as AgentResponse of type "error".
func (m *Manager) ProcessUserMessage(ctx context.Context, id, text string) core.AgentResponse {
	s, ok := m.GetSession(id)
	if !ok {
		return core.ErrorResponse(ErrSessionNotFound.Error())
	}
	s.AddMessage(core.RoleUser, text)

	if m.engine == nil {
		return core.ErrorResponse("no reasoning engine configured")
	}
	resp, err := m.engine.Respond(ctx, m.GetSystemPrompt(id), s.Messages())
	if err != nil {
		m.logger.Error("session.reasoning_failed", "session_id", id, "error", err.Error())
		return core.ErrorResponse(fmt.Sprintf("reasoning failed: %s", err.Error()))
	}
	switch resp.Type {
	case core.ResponseText, core.ResponseToolCall, core.ResponseHandoff, core.ResponseError:
	default:
		return core.ErrorResponse(fmt.Sprintf("reasoning engine returned unknown response type %q", resp.Type))
	}
	if resp.Type == core.ResponseText && resp.Content != "" {
		s.AddMessage(core.RoleAssistant, resp.Content)
	}
	return resp
}

// RequestHandoff synthesizes a hand-off identical in shape to one produced
// via a tool call, without requiring a prior tool invocation. The session is
// left unmodified.
func (m *Manager) RequestHandoff(id, targetAgentID, reason string) (core.HandoffRequest, error) {
	s, ok := m.GetSession(id)
	if !ok {
		return core.HandoffRequest{}, ErrSessionNotFound
	}
	req := m.assembler.Direct(s, targetAgentID, reason)
	logging.LogHandoff(m.logger, id, m.agentID, targetAgentID)
	return req, nil
}
