// Package gorillaws implements realtime.Transport on gorilla/websocket.
package gorillaws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coregx/realtime"
)

const closeWriteTimeout = time.Second

// Transport adapts a gorilla websocket connection to realtime.Transport.
//
// WriteMessage is driven by the connection's single writer goroutine.
// Close uses a control frame, which gorilla allows concurrently with writes.
type Transport struct {
	conn *websocket.Conn
}

// New wraps an upgraded websocket connection.
func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// WriteMessage writes one text frame, honoring the context deadline.
func (t *Transport) WriteMessage(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return realtime.NewErrorWithCause(realtime.ErrCodeTransport, "failed to set write deadline", err)
		}
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeTransport, "failed to write frame", err)
	}
	return nil
}

// Close sends a close control frame with the given code and reason, then
// closes the underlying connection.
func (t *Transport) Close(code int, reason string) error {
	deadline := time.Now().Add(closeWriteTimeout)
	// Best effort: the peer may already be gone.
	_ = t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)

	if err := t.conn.Close(); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeTransport, "failed to close websocket", err)
	}
	return nil
}

// ReadMessage reads the next frame from the client. Used by the server's
// per-connection read loop.
func (t *Transport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, realtime.NewErrorWithCause(realtime.ErrCodeTransport, "failed to read frame", err)
	}
	return data, nil
}
