// Package testutil provides fake collaborators shared by package tests:
// a recording transport, a scripted streaming client and stub tools/decision
// collaborators.
package testutil

import (
	"context"
	"sync"

	"github.com/convocore/convocore/core"
)

// RecordingTransport collects every event sent to it, preserving order.
type RecordingTransport struct {
	mu     sync.Mutex
	events []core.Event
	Err    error // returned from Send when non-nil
}

// Send implements core.Transport.
func (t *RecordingTransport) Send(ev core.Event) error {
	if t.Err != nil {
		return t.Err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

// Events returns a copy of everything sent so far.
func (t *RecordingTransport) Events() []core.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Event, len(t.events))
	copy(out, t.events)
	return out
}

// CountByType tallies sent events per type.
func (t *RecordingTransport) CountByType() map[core.EventType]int {
	counts := map[core.EventType]int{}
	for _, ev := range t.Events() {
		counts[ev.Type]++
	}
	return counts
}

// FakeStreamClient is a scripted core.StreamClient. Tests push inbound
// events through Emit after the session starts.
type FakeStreamClient struct {
	StartErr error
	StopErr  error

	mu      sync.Mutex
	onEvent func(core.Event)
	started bool
	stopped int
}

// StartSession implements core.StreamClient.
func (c *FakeStreamClient) StartSession(_ context.Context, _ string, onEvent func(core.Event)) error {
	if c.StartErr != nil {
		return c.StartErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = onEvent
	c.started = true
	return nil
}

// StopSession implements core.StreamClient.
func (c *FakeStreamClient) StopSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return c.StopErr
}

// SendAudio implements core.StreamClient.
func (c *FakeStreamClient) SendAudio(context.Context, []byte) error { return nil }

// SendText implements core.StreamClient.
func (c *FakeStreamClient) SendText(context.Context, string) error { return nil }

// Emit delivers an inbound event to the adapter's callback.
func (c *FakeStreamClient) Emit(ev core.Event) {
	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// Started reports whether StartSession succeeded.
func (c *FakeStreamClient) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// StopCalls returns how often StopSession was invoked.
func (c *FakeStreamClient) StopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// StubToolsClient answers every local tool call with a fixed result or error,
// recording the name and input of each invocation.
type StubToolsClient struct {
	Result any
	Err    error

	mu     sync.Mutex
	calls  []string
	inputs []any
}

// ExecuteTool implements core.ToolsClient.
func (c *StubToolsClient) ExecuteTool(_ context.Context, name string, input any) (any, error) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.inputs = append(c.inputs, input)
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Result, nil
}

// Calls returns the tool names invoked so far.
func (c *StubToolsClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// Inputs returns the tool inputs received so far, in call order.
func (c *StubToolsClient) Inputs() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.inputs))
	copy(out, c.inputs)
	return out
}

// StaticEvaluator answers decision conditions from a fixed table; unknown
// conditions evaluate false.
type StaticEvaluator struct {
	Truths map[string]bool
	Err    error
}

// Evaluate implements core.DecisionEvaluator.
func (e *StaticEvaluator) Evaluate(_ context.Context, condition string, _ core.GraphState, _ *core.Session) (bool, error) {
	if e.Err != nil {
		return false, e.Err
	}
	return e.Truths[condition], nil
}

// StubEngine returns a fixed AgentResponse or error for every message.
type StubEngine struct {
	Response core.AgentResponse
	Err      error
}

// Respond implements core.ReasoningEngine.
func (e *StubEngine) Respond(context.Context, string, []core.Message) (core.AgentResponse, error) {
	if e.Err != nil {
		return core.AgentResponse{}, e.Err
	}
	return e.Response, nil
}
