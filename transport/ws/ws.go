// Package ws adapts a websocket connection to the adapter transport
// contracts: outbound events are written to the socket (binary frames for
// audio, JSON text frames for everything else) and inbound frames are decoded
// into events for the voice adapter's streaming leg.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
)

// Transport writes adapter events to a websocket connection. Audio payloads
// go out bit-for-bit as binary frames; structured events as JSON text
// frames. Writes use a background context because the websocket library
// tracks its own connection state.
type Transport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewTransport wraps an accepted websocket connection.
func NewTransport(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// Send implements core.Transport.
func (t *Transport) Send(ev core.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.Type == core.EventAudio {
		if err := t.conn.Write(context.Background(), websocket.MessageBinary, ev.Audio); err != nil {
			return fmt.Errorf("failed to write audio frame: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.Type, err)
	}
	if err := t.conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write event %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the underlying connection with a normal closure status.
func (t *Transport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "session ended")
}

// StreamClient reads inbound frames from a websocket connection and delivers
// them as events: binary frames become audio events, text frames are decoded
// as JSON events. It implements core.StreamClient so a single socket can
// serve as both legs of a voice session.
type StreamClient struct {
	conn   *websocket.Conn
	logger logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewStreamClient wraps an accepted websocket connection.
func NewStreamClient(conn *websocket.Conn, logger logging.Logger) *StreamClient {
	return &StreamClient{conn: conn, logger: logging.OrNoOp(logger)}
}

// StartSession begins the read loop, delivering each inbound frame to
// onEvent in arrival order.
func (c *StreamClient) StartSession(ctx context.Context, sessionID string, onEvent func(core.Event)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return fmt.Errorf("stream for session %q already started", sessionID)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		for {
			typ, data, err := c.conn.Read(loopCtx)
			if err != nil {
				if loopCtx.Err() == nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
					c.logger.Debug("ws.read_failed", "session_id", sessionID, "error", err.Error())
				}
				return
			}
			switch typ {
			case websocket.MessageBinary:
				onEvent(core.NewAudioEvent(sessionID, data))
			case websocket.MessageText:
				var ev core.Event
				if err := json.Unmarshal(data, &ev); err != nil {
					c.logger.Warn("ws.malformed_event", "session_id", sessionID, "error", err.Error())
					continue
				}
				if ev.SessionID == "" {
					ev.SessionID = sessionID
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

// StopSession stops the read loop. It is safe to call once per started
// session; the connection itself is owned by the HTTP handler.
func (c *StreamClient) StopSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.cancel = nil
	return nil
}

// SendAudio writes an audio frame back to the peer.
func (c *StreamClient) SendAudio(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, frame)
}

// SendText writes a text event back to the peer.
func (c *StreamClient) SendText(ctx context.Context, text string) error {
	data, err := json.Marshal(core.Event{Type: core.EventText, Text: text})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Interface compliance (compile-time assertions)
var (
	_ core.Transport    = (*Transport)(nil)
	_ core.StreamClient = (*StreamClient)(nil)
)
