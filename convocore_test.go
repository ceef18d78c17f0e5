package convocore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/internal/testutil"
)

func waitForEvents(t *testing.T, rec *testutil.RecordingTransport, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.Events()) >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d events, got %d", want, len(rec.Events()))
}

func TestNew_Defaults(t *testing.T) {
	c := New()

	require.NotNil(t, c.Sessions)
	require.NotNil(t, c.Pipeline)
	require.NotNil(t, c.Executor)
	require.NotNil(t, c.Voice)
	require.NotNil(t, c.Text)
}

func TestCore_TextConversationEndToEnd(t *testing.T) {
	c := New(func(o *Options) {
		o.Engine = &testutil.StubEngine{Response: core.AgentResponse{
			Type: core.ResponseText, Content: "your balance is £42",
		}}
	})

	rec := &testutil.RecordingTransport{}
	require.NoError(t, c.Text.Start(context.Background(), "e1", rec, nil))

	resp := c.Text.ProcessMessage(context.Background(), "e1", "what's my balance?")
	assert.Equal(t, core.ResponseText, resp.Type)
	assert.Equal(t, "your balance is £42", resp.Content)

	c.Text.Stop("e1")
	assert.Equal(t, 0, c.Sessions.ActiveSessions())
}

func TestCore_SharedSessionNamespaceAcrossAdapters(t *testing.T) {
	c := New(func(o *Options) {
		o.NewStream = func(string) (core.StreamClient, error) {
			return &testutil.FakeStreamClient{}, nil
		}
	})

	require.NoError(t, c.Text.Start(context.Background(), "shared", &testutil.RecordingTransport{}, nil))

	// The manager already owns "shared", so the voice adapter must roll back.
	err := c.Voice.Start(context.Background(), "shared", &testutil.RecordingTransport{}, nil)
	require.Error(t, err)
	assert.False(t, c.Voice.HasSession("shared"))
	assert.True(t, c.Text.HasSession("shared"))
}

func TestCore_VoiceToolCallEndToEnd(t *testing.T) {
	stream := &testutil.FakeStreamClient{}
	c := New(func(o *Options) {
		o.Tools = &testutil.StubToolsClient{Result: map[string]any{"articles": []any{"a1"}}}
		o.NewStream = func(string) (core.StreamClient, error) { return stream, nil }
	})

	rec := &testutil.RecordingTransport{}
	require.NoError(t, c.Voice.Start(context.Background(), "e2", rec, nil))

	stream.Emit(core.NewToolUseEvent("e2", "search_knowledge_base", "t1", map[string]any{"query": "fees"}))

	waitForEvents(t, rec, 3) // connected + ack + result
	counts := rec.CountByType()
	assert.Equal(t, 1, counts[core.EventToolCall])
	assert.Equal(t, 1, counts[core.EventToolResult])

	c.Voice.Stop("e2")
	assert.Equal(t, 0, c.Sessions.ActiveSessions())
}
