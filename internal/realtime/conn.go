package realtime

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// Conn is the framed transport a Subscription talks over.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a Conn to a realtime endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// DialWebsocket is the production DialFunc.
func DialWebsocket(ctx context.Context, endpoint string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime: %w", err)
	}
	c.SetReadLimit(1 << 20)
	return wsConn{c: c}, nil
}
