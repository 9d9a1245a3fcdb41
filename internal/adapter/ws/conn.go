package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/coder/websocket"

	"github.com/toastx/shredr-fun/internal/relay"
)

// Conn adapts a coder/websocket connection to relay.Conn.
type Conn struct {
	ws     *websocket.Conn
	remote string
}

// NewConn wraps an accepted WebSocket connection.
func NewConn(c *websocket.Conn, remote string) *Conn {
	return &Conn{ws: c, remote: remote}
}

// Read returns the next data frame. A close frame or a vanished peer is
// reported as relay.ErrPeerClosed.
func (c *Conn) Read(ctx context.Context) (relay.FrameKind, []byte, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return 0, nil, fmt.Errorf("%w: %w", relay.ErrPeerClosed, err)
		}
		return 0, nil, err
	}
	if typ == websocket.MessageBinary {
		return relay.FrameBinary, data, nil
	}
	return relay.FrameText, data, nil
}

// Write sends one text frame.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Close performs the closing handshake with a normal status.
func (c *Conn) Close(reason string) error {
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}

// RemoteAddr returns the peer address captured at accept time.
func (c *Conn) RemoteAddr() string { return c.remote }
