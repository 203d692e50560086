package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tuneroom/live-service/internal/protocol"
	"github.com/tuneroom/live-service/internal/registry"
)

// Engine is the session engine behind the socket: the room gateway.
type Engine interface {
	Connected(sender registry.Sender) string
	Disconnected(connID string)
	Dispatch(ctx context.Context, connID string, env protocol.Envelope)
}

type Server struct {
	upgrader websocket.Upgrader
	engine   Engine

	pingEvery time.Duration
	readLimit int64
}

func NewServer(engine Engine) *Server {
	return &Server{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		readLimit: 1 << 20,
	}
}

// WS endpoint: GET /ws. The connection starts unauthenticated; the client
// must send connectUser before anything room-related.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	connID := s.engine.Connected(c)
	slog.Debug("ws connected", "conn", connID)

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), connID, c)

	// unregister releases every membership this connection held
	s.engine.Disconnected(connID)
	if err := c.Close(); err != nil {
		slog.Debug("ws close", "conn", connID, "err", err)
	}
	slog.Debug("ws disconnected", "conn", connID)
}

func (s *Server) readLoop(ctx context.Context, connID string, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(s.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// malformed frame: addressed error, connection stays up
			_ = c.Send(protocol.Event{
				Event:   protocol.KindError,
				Payload: protocol.ErrorPayload{Code: "InvalidEvent", Message: "malformed frame"},
			})
			continue
		}
		// события одного соединения обрабатываются последовательно
		s.engine.Dispatch(ctx, connID, env)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}
