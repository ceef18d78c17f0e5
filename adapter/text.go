package adapter

import (
	"context"
	"fmt"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/memory"
	"github.com/convocore/convocore/session"
)

// TextAdapter maps a request/response transport onto the session lifecycle
// contract. It holds no transport-specific resource; the contract's resource
// acquisition step is a no-op.
type TextAdapter struct {
	sessions *session.Manager
	memories memory.Store
	logger   logging.Logger

	active *table[core.Transport]
}

// TextAdapterOptions configures a TextAdapter.
type TextAdapterOptions struct {
	// Memories persists session memory across reconnects; nil disables
	// snapshot restore/save.
	Memories memory.Store
	// Logger defaults to a no-op.
	Logger logging.Logger
}

// NewTextAdapter creates a text adapter over the session manager.
func NewTextAdapter(sessions *session.Manager, optFns ...func(o *TextAdapterOptions)) *TextAdapter {
	opts := TextAdapterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &TextAdapter{
		sessions: sessions,
		memories: opts.Memories,
		logger:   logging.OrNoOp(opts.Logger),
		active:   newTable[core.Transport](),
	}
}

// Kind reports the adapter kind.
func (a *TextAdapter) Kind() Kind { return KindText }

// HasSession reports whether the adapter holds an entry for id.
func (a *TextAdapter) HasSession(id string) bool {
	_, ok := a.active.get(id)
	return ok
}

// ActiveSessions returns the number of live text sessions.
func (a *TextAdapter) ActiveSessions() int { return a.active.len() }

// Start registers the session and initializes its state. A duplicate id
// fails immediately, leaving the existing session untouched. On
// initialization failure the adapter entry is removed, a best-effort error
// event is sent and the failure is re-raised.
func (a *TextAdapter) Start(ctx context.Context, sessionID string, transport core.Transport, mem *core.SessionMemory) error {
	if !a.active.insert(sessionID, transport) {
		return fmt.Errorf("Text session %q already exists", sessionID)
	}

	if mem == nil && a.memories != nil {
		if snapshot, ok, err := a.memories.Load(ctx, sessionID); err != nil {
			a.logger.Warn("text.memory_load_failed", "session_id", sessionID, "error", err.Error())
		} else if ok {
			mem = &snapshot
		}
	}

	// Init failure means no manager session was created for this start, so
	// only the adapter entry needs removing.
	if _, err := a.sessions.InitializeSession(sessionID, mem); err != nil {
		a.active.remove(sessionID)
		cause := fmt.Errorf("failed to initialize text session %q: %w", sessionID, err)
		if sendErr := transport.Send(core.NewErrorEvent(sessionID, cause.Error())); sendErr != nil {
			a.logger.Debug("text.error_event_failed", "session_id", sessionID, "error", sendErr.Error())
		}
		return cause
	}

	if err := transport.Send(core.NewConnectedEvent(sessionID)); err != nil {
		a.logger.Warn("text.transport_send_failed", "session_id", sessionID, "error", err.Error())
	}
	a.logger.Info("text.session_started", "session_id", sessionID)
	return nil
}

// Stop tears down a text session. Unknown ids are a silent no-op; cleanup of
// the adapter entry and the manager session always completes.
func (a *TextAdapter) Stop(sessionID string) {
	if _, ok := a.active.remove(sessionID); !ok {
		return
	}
	if a.memories != nil {
		snapshot := a.sessions.GetSessionMemory(sessionID)
		if err := a.memories.Save(context.Background(), sessionID, snapshot); err != nil {
			a.logger.Warn("text.memory_save_failed", "session_id", sessionID, "error", err.Error())
		}
	}
	a.sessions.EndSession(sessionID)
	a.logger.Info("text.session_stopped", "session_id", sessionID)
}

// ProcessMessage runs one user message through the session manager and
// returns the assistant response. Failures surface as responses of type
// "error", never as Go errors.
func (a *TextAdapter) ProcessMessage(ctx context.Context, sessionID, text string) core.AgentResponse {
	if _, ok := a.active.get(sessionID); !ok {
		return core.ErrorResponse(session.ErrSessionNotFound.Error())
	}
	return a.sessions.ProcessUserMessage(ctx, sessionID, text)
}
