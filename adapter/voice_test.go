package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/internal/testutil"
	"github.com/convocore/convocore/memory"
	"github.com/convocore/convocore/session"
	"github.com/convocore/convocore/tool"
	"github.com/convocore/convocore/workflow"
)

type voiceFixture struct {
	manager *session.Manager
	adapter *VoiceAdapter
	streams map[string]*testutil.FakeStreamClient
	mu      sync.Mutex
}

func newVoiceFixture(t *testing.T, optFns ...func(o *VoiceAdapterOptions)) *voiceFixture {
	t.Helper()
	exec := workflow.NewExecutor(workflow.DefaultDefinition())
	mgr := session.NewManager(exec)
	pipeline := tool.NewPipeline(mgr, func(o *tool.PipelineOptions) {
		o.Tools = &testutil.StubToolsClient{Result: "ok"}
	})

	f := &voiceFixture{manager: mgr, streams: map[string]*testutil.FakeStreamClient{}}
	factory := func(sessionID string) (core.StreamClient, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c, ok := f.streams[sessionID]
		if !ok {
			c = &testutil.FakeStreamClient{}
			f.streams[sessionID] = c
		}
		return c, nil
	}
	f.adapter = NewVoiceAdapter(mgr, pipeline, factory, optFns...)
	return f
}

func (f *voiceFixture) stream(id string) *testutil.FakeStreamClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.streams[id]
	if !ok {
		c = &testutil.FakeStreamClient{}
		f.streams[id] = c
	}
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestVoiceAdapter_StartEmitsConnected(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}

	require.NoError(t, f.adapter.Start(context.Background(), "v1", rec, nil))
	assert.True(t, f.adapter.HasSession("v1"))
	assert.True(t, f.stream("v1").Started())

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventConnected, events[0].Type)
	assert.Equal(t, "v1", events[0].SessionID)
}

func TestVoiceAdapter_DuplicateStartFailsAndLeavesFirstSessionUntouched(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}

	require.NoError(t, f.adapter.Start(context.Background(), "v2", rec, &core.SessionMemory{
		Verified: true, UserName: "Jane Doe",
	}))

	err := f.adapter.Start(context.Background(), "v2", &testutil.RecordingTransport{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Voice session")
	assert.Contains(t, err.Error(), "v2")

	assert.True(t, f.adapter.HasSession("v2"))
	s, ok := f.manager.GetSession("v2")
	require.True(t, ok)
	require.NotNil(t, s.VerifiedUser())
	assert.Equal(t, "Jane Doe", s.VerifiedUser().CustomerName)
}

func TestVoiceAdapter_StartRollsBackOnStreamFailure(t *testing.T) {
	f := newVoiceFixture(t)
	f.stream("v3").StartErr = errors.New("stream refused")
	rec := &testutil.RecordingTransport{}

	err := f.adapter.Start(context.Background(), "v3", rec, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream refused")

	assert.False(t, f.adapter.HasSession("v3"))
	_, ok := f.manager.GetSession("v3")
	assert.False(t, ok, "manager session must be rolled back")

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "stream refused")
}

func TestVoiceAdapter_StartRollsBackOnInitFailure(t *testing.T) {
	f := newVoiceFixture(t)
	// Occupy the id at the manager level to force initialization failure.
	_, err := f.manager.InitializeSession("v4", nil)
	require.NoError(t, err)

	rec := &testutil.RecordingTransport{}
	err = f.adapter.Start(context.Background(), "v4", rec, nil)
	require.Error(t, err)
	assert.False(t, f.adapter.HasSession("v4"))

	// The session this adapter did not create survives the rollback.
	_, ok := f.manager.GetSession("v4")
	assert.True(t, ok)
}

func TestVoiceAdapter_StopUnknownIsSilentNoOp(t *testing.T) {
	f := newVoiceFixture(t)

	assert.False(t, f.adapter.HasSession("ghost"))
	f.adapter.Stop("ghost")
	assert.False(t, f.adapter.HasSession("ghost"))
	assert.Equal(t, 0, f.stream("ghost").StopCalls(), "no resource stop for unknown sessions")
}

func TestVoiceAdapter_StopReleasesEverything(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v5", rec, nil))

	f.adapter.Stop("v5")
	assert.False(t, f.adapter.HasSession("v5"))
	_, ok := f.manager.GetSession("v5")
	assert.False(t, ok)
	assert.Equal(t, 1, f.stream("v5").StopCalls())

	f.adapter.Stop("v5") // idempotent
	assert.Equal(t, 1, f.stream("v5").StopCalls())
}

func TestVoiceAdapter_StopSwallowsStreamStopFailure(t *testing.T) {
	f := newVoiceFixture(t)
	f.stream("v6").StopErr = errors.New("close failed")
	require.NoError(t, f.adapter.Start(context.Background(), "v6", &testutil.RecordingTransport{}, nil))

	f.adapter.Stop("v6") // must not panic or propagate
	assert.False(t, f.adapter.HasSession("v6"))
	_, ok := f.manager.GetSession("v6")
	assert.False(t, ok, "cleanup completes even when the resource stop fails")
}

func TestVoiceAdapter_ForwardingCardinality(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v7", rec, nil))
	stream := f.stream("v7")

	const k, m = 5, 3
	for i := 0; i < k; i++ {
		stream.Emit(core.NewAudioEvent("v7", []byte{byte(i)}))
	}
	for i := 0; i < m; i++ {
		stream.Emit(core.NewToolUseEvent("v7", "search_knowledge_base", fmt.Sprintf("t%d", i), map[string]any{}))
	}

	// connected + k audio + m acks + m results
	waitFor(t, func() bool { return len(rec.Events()) == 1+k+2*m })

	counts := rec.CountByType()
	assert.Equal(t, k, counts[core.EventAudio])
	assert.Equal(t, m, counts[core.EventToolCall])
	assert.Equal(t, m, counts[core.EventToolResult])
	assert.Equal(t, 0, counts[core.EventHandoffRequest])
}

// eagerStreamClient emits an inbound event from within StartSession itself,
// before the adapter's consumer has a chance to run.
type eagerStreamClient struct {
	testutil.FakeStreamClient
	initial core.Event
}

func (c *eagerStreamClient) StartSession(ctx context.Context, sessionID string, onEvent func(core.Event)) error {
	if err := c.FakeStreamClient.StartSession(ctx, sessionID, onEvent); err != nil {
		return err
	}
	onEvent(c.initial)
	return nil
}

func TestVoiceAdapter_ConnectedPrecedesEventsEnqueuedDuringStartup(t *testing.T) {
	f := newVoiceFixture(t)
	eager := &eagerStreamClient{initial: core.NewAudioEvent("v13", []byte{9})}
	rec := &testutil.RecordingTransport{}

	require.NoError(t, f.adapter.StartWithStream(context.Background(), "v13", rec, eager, nil))

	waitFor(t, func() bool { return len(rec.Events()) == 2 })
	events := rec.Events()
	assert.Equal(t, core.EventConnected, events[0].Type)
	assert.Equal(t, core.EventAudio, events[1].Type)
}

func TestVoiceAdapter_AudioForwardedBitForBitInOrder(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v8", rec, nil))
	stream := f.stream("v8")

	frames := [][]byte{{1, 2, 3}, {4, 5}, {6}}
	for _, fr := range frames {
		stream.Emit(core.NewAudioEvent("v8", fr))
	}
	waitFor(t, func() bool { return len(rec.Events()) == 1+len(frames) })

	var got [][]byte
	for _, ev := range rec.Events() {
		if ev.Type == core.EventAudio {
			got = append(got, ev.Audio)
		}
	}
	assert.Equal(t, frames, got)
}

func TestVoiceAdapter_HandoffToolFansOutHandoffRequest(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v9", rec, nil))
	stream := f.stream("v9")

	stream.Emit(core.NewToolUseEvent("v9", "transfer_to_banking", "t1", map[string]any{}))

	// connected + ack + result + handoff_request
	waitFor(t, func() bool { return len(rec.Events()) == 4 })

	counts := rec.CountByType()
	assert.Equal(t, 1, counts[core.EventToolCall])
	assert.Equal(t, 1, counts[core.EventToolResult])
	assert.Equal(t, 1, counts[core.EventHandoffRequest])

	var ho *core.Event
	for _, ev := range rec.Events() {
		if ev.Type == core.EventHandoffRequest {
			cp := ev
			ho = &cp
		}
	}
	require.NotNil(t, ho)
	require.NotNil(t, ho.Handoff)
	assert.Equal(t, "banking", ho.Handoff.TargetAgentID)
}

func TestVoiceAdapter_FailedToolCallAcksWithError(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v10", rec, nil))
	stream := f.stream("v10")

	// Primitive input fails shape validation inside the pipeline.
	stream.Emit(core.NewToolUseEvent("v10", "search_knowledge_base", "t1", "bad input"))

	waitFor(t, func() bool { return len(rec.Events()) == 2 })
	counts := rec.CountByType()
	assert.Equal(t, 1, counts[core.EventToolCall])
	assert.Equal(t, 0, counts[core.EventToolResult])

	last := rec.Events()[1]
	assert.Contains(t, last.Error, "Tool input must be an object")
}

func TestVoiceAdapter_UserTranscriptsRecordedInHistory(t *testing.T) {
	f := newVoiceFixture(t)
	rec := &testutil.RecordingTransport{}
	require.NoError(t, f.adapter.Start(context.Background(), "v11", rec, nil))
	stream := f.stream("v11")

	ev := core.NewEvent("v11", core.EventText)
	ev.Role = core.RoleUser
	ev.Text = "what's my balance"
	stream.Emit(ev)

	waitFor(t, func() bool { return len(rec.Events()) == 2 })
	s, ok := f.manager.GetSession("v11")
	require.True(t, ok)
	last, found := s.LastUserMessage()
	require.True(t, found)
	assert.Equal(t, "what's my balance", last)
}

func TestVoiceAdapter_ConcurrentStartStop(t *testing.T) {
	f := newVoiceFixture(t)
	const n = 32

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			assert.NoError(t, f.adapter.Start(context.Background(), id, &testutil.RecordingTransport{}, nil))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, f.adapter.ActiveSessions())
	assert.Equal(t, n, f.manager.ActiveSessions())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.adapter.Stop(fmt.Sprintf("c%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, f.adapter.ActiveSessions())
	assert.Equal(t, 0, f.manager.ActiveSessions())
	for i := 0; i < n; i++ {
		assert.False(t, f.adapter.HasSession(fmt.Sprintf("c%d", i)))
	}
}

func TestVoiceAdapter_MemoryPersistedAcrossSessions(t *testing.T) {
	store := memory.NewInMemoryStore()
	f := newVoiceFixture(t, func(o *VoiceAdapterOptions) { o.Memories = store })

	require.NoError(t, f.adapter.Start(context.Background(), "v12", &testutil.RecordingTransport{}, &core.SessionMemory{
		Verified: true, UserName: "Jane Doe", Account: "12345678", SortCode: "123456",
	}))
	f.adapter.Stop("v12")

	// Restart without an explicit snapshot: memory comes from the store.
	require.NoError(t, f.adapter.Start(context.Background(), "v12", &testutil.RecordingTransport{}, nil))
	s, ok := f.manager.GetSession("v12")
	require.True(t, ok)
	require.NotNil(t, s.VerifiedUser())
	assert.Equal(t, "Jane Doe", s.VerifiedUser().CustomerName)
}
