// Package ws hosts the engine on gorilla/websocket connections. Each
// connection gets a read pump that feeds frames to the engine in arrival
// order and a write pump that drains the connection's outbound queue, so
// a stalled peer never blocks handling of other connections.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/engine"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings at this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 8 * 1024
)

// Server upgrades HTTP requests to websocket connections and bridges
// them to the engine.
type Server struct {
	engine   *engine.Engine
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a websocket server for the given engine.
func NewServer(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{
		engine: eng,
		logger: logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Guests connect from arbitrary customer sites; origin
			// filtering belongs to the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle is the HTTP handler for the websocket endpoint.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	connID := uuid.New().String()
	conn := s.engine.OnConnect(connID)

	go s.writePump(ws, conn)
	go s.readPump(ws, conn)
}

// readPump reads frames from the peer and dispatches them to the engine
// one at a time, preserving per-connection event order. The request
// context dies when the upgrade handler returns, so dispatch runs off
// the background context; per-call timeouts are the engine's own.
func (s *Server) readPump(ws *websocket.Conn, conn *engine.Conn) {
	ctx := context.Background()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Str("conn", conn.ID).Interface("panic", rec).Msg("read pump panic")
		}
		s.engine.OnDisconnect(ctx, conn)
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("conn", conn.ID).Msg("read error")
			}
			return
		}
		s.engine.Handle(ctx, conn, raw)
	}
}

// writePump drains the connection's outbound queue and keeps the peer
// alive with pings. Exits when the engine closes the queue on
// disconnect, or on the first write failure.
func (s *Server) writePump(ws *websocket.Conn, conn *engine.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case env, ok := <-conn.Outbound():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(env); err != nil {
				s.logger.Warn().Err(err).Str("conn", conn.ID).Msg("write error")
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
