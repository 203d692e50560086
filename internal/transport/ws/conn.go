package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tuneroom/live-service/internal/protocol"
)

const writeTimeout = 5 * time.Second

// wsConn serializes writes so concurrent fan-outs never interleave frames
// on the same socket.
type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(ev protocol.Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
