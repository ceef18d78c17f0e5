package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/memory"
	"github.com/convocore/convocore/session"
	"github.com/convocore/convocore/tool"
)

// VoiceAdapter maps a streaming speech transport onto the session lifecycle
// contract. Each started session owns a streaming client handle and a
// bounded event channel drained by a single consumer goroutine, so inbound
// events are forwarded in arrival order without callback re-entrancy.
type VoiceAdapter struct {
	sessions  *session.Manager
	pipeline  *tool.Pipeline
	memories  memory.Store
	newStream core.StreamFactory
	logger    logging.Logger
	bufSize   int

	active *table[*voiceSession]
}

// VoiceAdapterOptions configures a VoiceAdapter.
type VoiceAdapterOptions struct {
	// Memories persists session memory across reconnects; nil disables
	// snapshot restore/save.
	Memories memory.Store
	// EventBufferSize bounds the per-session inbound event channel.
	EventBufferSize int
	// Logger defaults to a no-op.
	Logger logging.Logger
}

// NewVoiceAdapter creates a voice adapter. newStream is called once per
// started session to acquire the streaming client resource.
func NewVoiceAdapter(sessions *session.Manager, pipeline *tool.Pipeline, newStream core.StreamFactory, optFns ...func(o *VoiceAdapterOptions)) *VoiceAdapter {
	opts := VoiceAdapterOptions{EventBufferSize: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 64
	}
	return &VoiceAdapter{
		sessions:  sessions,
		pipeline:  pipeline,
		memories:  opts.Memories,
		newStream: newStream,
		logger:    logging.OrNoOp(opts.Logger),
		bufSize:   opts.EventBufferSize,
		active:    newTable[*voiceSession](),
	}
}

// Kind reports the adapter kind.
func (a *VoiceAdapter) Kind() Kind { return KindVoice }

// HasSession reports whether the adapter holds an entry for id.
func (a *VoiceAdapter) HasSession(id string) bool {
	_, ok := a.active.get(id)
	return ok
}

// ActiveSessions returns the number of live voice sessions.
func (a *VoiceAdapter) ActiveSessions() int { return a.active.len() }

// voiceSession is the adapter-level entry for one started voice session.
type voiceSession struct {
	id        string
	ctx       context.Context
	transport core.Transport
	stream    core.StreamClient
	events    chan core.Event
	done      chan struct{}
	closeOnce sync.Once
}

// stopped closes done exactly once, discarding any events still in flight.
func (vs *voiceSession) stopped() {
	vs.closeOnce.Do(func() { close(vs.done) })
}

// enqueue is the inbound event callback handed to the streaming client. It
// blocks on a full buffer rather than dropping, and discards events that
// arrive after teardown.
func (vs *voiceSession) enqueue(ev core.Event) {
	select {
	case <-vs.done:
	case vs.events <- ev:
	}
}

// send forwards an event to the outbound transport unless the session has
// been torn down. Transport failures never abort the session.
func (vs *voiceSession) send(logger logging.Logger, ev core.Event) {
	select {
	case <-vs.done:
		return
	default:
	}
	if err := vs.transport.Send(ev); err != nil {
		logger.Warn("voice.transport_send_failed", "session_id", vs.id, "event_type", string(ev.Type), "error", err.Error())
	}
}

// Start registers the session, initializes its state, acquires the streaming
// client and emits a connected event. A duplicate id fails immediately
// without touching the existing session. If initialization or stream startup
// fails, the adapter rolls back atomically: it removes its entry, ends the
// manager session, sends a best-effort error event and re-raises the
// original failure.
func (a *VoiceAdapter) Start(ctx context.Context, sessionID string, transport core.Transport, mem *core.SessionMemory) error {
	return a.start(ctx, sessionID, transport, mem, func() (core.StreamClient, error) {
		if a.newStream == nil {
			return nil, fmt.Errorf("no stream factory configured")
		}
		return a.newStream(sessionID)
	})
}

// StartWithStream starts a session over an already constructed (but not yet
// started) streaming client, as used when the client is bound to an inbound
// connection. The lifecycle contract is identical to Start.
func (a *VoiceAdapter) StartWithStream(ctx context.Context, sessionID string, transport core.Transport, stream core.StreamClient, mem *core.SessionMemory) error {
	return a.start(ctx, sessionID, transport, mem, func() (core.StreamClient, error) {
		return stream, nil
	})
}

func (a *VoiceAdapter) start(ctx context.Context, sessionID string, transport core.Transport, mem *core.SessionMemory, acquire func() (core.StreamClient, error)) error {
	vs := &voiceSession{
		id:        sessionID,
		ctx:       ctx,
		transport: transport,
		events:    make(chan core.Event, a.bufSize),
		done:      make(chan struct{}),
	}

	if !a.active.insert(sessionID, vs) {
		return fmt.Errorf("Voice session %q already exists", sessionID)
	}

	// endSession is false until initialization succeeds, so a failed init
	// never tears down a session this adapter did not create.
	rollback := func(cause error, endSession bool) error {
		a.active.remove(sessionID)
		if endSession {
			a.sessions.EndSession(sessionID)
		}
		if err := transport.Send(core.NewErrorEvent(sessionID, cause.Error())); err != nil {
			a.logger.Debug("voice.error_event_failed", "session_id", sessionID, "error", err.Error())
		}
		return cause
	}

	if mem == nil && a.memories != nil {
		if snapshot, ok, err := a.memories.Load(ctx, sessionID); err != nil {
			a.logger.Warn("voice.memory_load_failed", "session_id", sessionID, "error", err.Error())
		} else if ok {
			mem = &snapshot
		}
	}

	if _, err := a.sessions.InitializeSession(sessionID, mem); err != nil {
		return rollback(fmt.Errorf("failed to initialize voice session %q: %w", sessionID, err), false)
	}

	stream, err := acquire()
	if err != nil {
		return rollback(fmt.Errorf("failed to create stream for voice session %q: %w", sessionID, err), true)
	}
	if err := stream.StartSession(ctx, sessionID, vs.enqueue); err != nil {
		return rollback(fmt.Errorf("failed to start stream for voice session %q: %w", sessionID, err), true)
	}
	vs.stream = stream

	// Connected goes out before the consumer starts draining, so events
	// enqueued during stream startup can never precede it.
	vs.send(a.logger, core.NewConnectedEvent(sessionID))
	go a.consume(vs)
	a.logger.Info("voice.session_started", "session_id", sessionID)
	return nil
}

// Stop tears down a voice session. Unknown ids are a silent no-op. The
// streaming client is released best-effort; cleanup of the adapter entry and
// the manager session always completes.
func (a *VoiceAdapter) Stop(sessionID string) {
	vs, ok := a.active.remove(sessionID)
	if !ok {
		return
	}

	if a.memories != nil {
		snapshot := a.sessions.GetSessionMemory(sessionID)
		if err := a.memories.Save(context.Background(), sessionID, snapshot); err != nil {
			a.logger.Warn("voice.memory_save_failed", "session_id", sessionID, "error", err.Error())
		}
	}

	vs.stopped()
	if vs.stream != nil {
		if err := vs.stream.StopSession(); err != nil {
			a.logger.Warn("voice.stream_stop_failed", "session_id", sessionID, "error", err.Error())
		}
	}

	a.sessions.EndSession(sessionID)
	a.logger.Info("voice.session_stopped", "session_id", sessionID)
}

// consume drains the inbound event channel in order until teardown.
func (a *VoiceAdapter) consume(vs *voiceSession) {
	for {
		select {
		case <-vs.done:
			return
		case ev := <-vs.events:
			a.forward(vs, ev)
		}
	}
}

// forward relays one inbound event to the outbound transport. Non-tool
// events pass through unchanged. A tool-use event fans out: one
// acknowledgement always, plus a result event on success, plus a
// handoff_request event when the result carries a hand-off.
func (a *VoiceAdapter) forward(vs *voiceSession, ev core.Event) {
	if ev.SessionID == "" {
		ev.SessionID = vs.id
	}

	if ev.Type != core.EventToolUse {
		if ev.Type == core.EventText && ev.Role == core.RoleUser && ev.Text != "" {
			if s, ok := a.sessions.GetSession(vs.id); ok {
				s.AddMessage(core.RoleUser, ev.Text)
			}
		}
		vs.send(a.logger, ev)
		return
	}

	ack := core.NewEvent(vs.id, core.EventToolCall)
	ack.ToolName = ev.ToolName
	ack.ToolUseID = ev.ToolUseID
	ack.ToolInput = ev.ToolInput

	res := a.pipeline.ExecuteTool(vs.ctx, vs.id, ev.ToolName, ev.ToolInput, ev.ToolUseID)
	if !res.Success {
		ack.Error = res.Error
		vs.send(a.logger, ack)
		return
	}
	vs.send(a.logger, ack)

	result := core.NewEvent(vs.id, core.EventToolResult)
	result.ToolName = ev.ToolName
	result.ToolUseID = ev.ToolUseID
	result.Payload = res.Result
	vs.send(a.logger, result)

	if hr, ok := res.Result.(*core.HandoffResult); ok {
		ho := core.NewEvent(vs.id, core.EventHandoffRequest)
		ho.ToolName = ev.ToolName
		ho.Handoff = &hr.HandoffRequest
		vs.send(a.logger, ho)
	}
}
