package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/internal/testutil"
	"github.com/convocore/convocore/memory"
	"github.com/convocore/convocore/session"
	"github.com/convocore/convocore/workflow"
)

func newTextManager(t *testing.T) *session.Manager {
	t.Helper()
	exec := workflow.NewExecutor(workflow.DefaultDefinition())
	return session.NewManager(exec, func(o *session.ManagerOptions) {
		o.Engine = &testutil.StubEngine{Response: core.AgentResponse{
			Type: core.ResponseText, Content: "happy to help",
		}}
	})
}

func TestTextAdapter_StartEmitsConnected(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)
	rec := &testutil.RecordingTransport{}

	require.NoError(t, a.Start(context.Background(), "t1", rec, nil))
	assert.True(t, a.HasSession("t1"))
	assert.Equal(t, KindText, a.Kind())

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventConnected, events[0].Type)
}

func TestTextAdapter_DuplicateStartFails(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)

	require.NoError(t, a.Start(context.Background(), "t2", &testutil.RecordingTransport{}, nil))
	err := a.Start(context.Background(), "t2", &testutil.RecordingTransport{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Text session")
	assert.Contains(t, err.Error(), "t2")
	assert.True(t, a.HasSession("t2"))
}

func TestTextAdapter_StartRollsBackOnInitFailure(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)
	// Occupy the id at the manager level so initialization fails.
	_, err := mgr.InitializeSession("t3", nil)
	require.NoError(t, err)

	rec := &testutil.RecordingTransport{}
	err = a.Start(context.Background(), "t3", rec, nil)
	require.Error(t, err)
	assert.False(t, a.HasSession("t3"))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventError, events[0].Type)

	// The session this adapter did not create survives the rollback.
	_, ok := mgr.GetSession("t3")
	assert.True(t, ok)
}

func TestTextAdapter_StopUnknownIsSilentNoOp(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)

	a.Stop("ghost")
	assert.Equal(t, 0, a.ActiveSessions())
	assert.Equal(t, 0, mgr.ActiveSessions())
}

func TestTextAdapter_StopReleasesSession(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)
	require.NoError(t, a.Start(context.Background(), "t4", &testutil.RecordingTransport{}, nil))

	a.Stop("t4")
	assert.False(t, a.HasSession("t4"))
	_, ok := mgr.GetSession("t4")
	assert.False(t, ok)

	a.Stop("t4") // idempotent
	assert.Equal(t, 0, a.ActiveSessions())
}

func TestTextAdapter_ProcessMessage(t *testing.T) {
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr)
	require.NoError(t, a.Start(context.Background(), "t5", &testutil.RecordingTransport{}, nil))

	resp := a.ProcessMessage(context.Background(), "t5", "hello")
	assert.Equal(t, core.ResponseText, resp.Type)
	assert.Equal(t, "happy to help", resp.Content)

	s, ok := mgr.GetSession("t5")
	require.True(t, ok)
	last, found := s.LastUserMessage()
	require.True(t, found)
	assert.Equal(t, "hello", last)
}

func TestTextAdapter_ProcessMessageUnknownSession(t *testing.T) {
	a := NewTextAdapter(newTextManager(t))

	resp := a.ProcessMessage(context.Background(), "missing", "hello")
	assert.Equal(t, core.ResponseError, resp.Type)
	assert.Equal(t, "Session not found", resp.Error)
}

func TestTextAdapter_MemoryPersistedAcrossSessions(t *testing.T) {
	store := memory.NewInMemoryStore()
	mgr := newTextManager(t)
	a := NewTextAdapter(mgr, func(o *TextAdapterOptions) { o.Memories = store })

	require.NoError(t, a.Start(context.Background(), "t6", &testutil.RecordingTransport{}, &core.SessionMemory{
		Verified: true, UserName: "Jane Doe", UserIntent: "loan question",
	}))
	a.Stop("t6")

	require.NoError(t, a.Start(context.Background(), "t6", &testutil.RecordingTransport{}, nil))
	s, ok := mgr.GetSession("t6")
	require.True(t, ok)
	require.NotNil(t, s.VerifiedUser())
	assert.Equal(t, "Jane Doe", s.VerifiedUser().CustomerName)
	assert.Equal(t, "loan question", s.UserIntent())
}
