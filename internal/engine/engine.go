package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/metrics"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/store"
)

// DefaultStoreTimeout bounds every store call issued on behalf of a
// connection event. A slow store rejects the one action; it never hangs
// the connection pool.
const DefaultStoreTimeout = 5 * time.Second

// Engine is the chat routing core: it owns the connection registry,
// drives the room state machine through the room store, and fans events
// out to the affected connections. One engine instance serves all
// connections of a process; several processes may share one room store,
// which arbitrates racing transitions with conditional writes.
type Engine struct {
	registry *Registry
	rooms    store.RoomStore
	messages store.MessageStore
	logger   zerolog.Logger
	timeout  time.Duration

	// Per-room transition serialization. Guarantees a staff client can
	// never observe chat_taken before the new_request for the same room
	// coming from this process.
	roomMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates an engine around the given registry and stores.
func New(registry *Registry, rooms store.RoomStore, messages store.MessageStore, logger zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		rooms:    rooms,
		messages: messages,
		logger:   logger.With().Str("component", "engine").Logger(),
		timeout:  DefaultStoreTimeout,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetStoreTimeout overrides the per-call store timeout.
func (e *Engine) SetStoreTimeout(d time.Duration) {
	e.timeout = d
}

// Registry returns the engine's connection registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// OnConnect registers a new transport connection.
func (e *Engine) OnConnect(connID string) *Conn {
	conn := e.registry.Add(connID)
	metrics.ConnectionsActive.Inc()
	e.logger.Debug().Str("conn", connID).Msg("connection registered")
	return conn
}

// OnDisconnect removes a connection from future fan-out. Staff presence
// is marked offline in the store; a guest's room is left untouched so
// the guest can reconnect into it later. In-flight persistence already
// issued for this connection is not cancelled.
func (e *Engine) OnDisconnect(ctx context.Context, conn *Conn) {
	removed := e.registry.Remove(conn.ID)
	if removed == nil {
		return
	}
	metrics.ConnectionsActive.Dec()

	ident := conn.Identity()
	if ident != nil && ident.Role.Staff() {
		callCtx, cancel := e.storeCtx(ctx)
		defer cancel()
		if err := e.rooms.SetStaffOnline(callCtx, ident.ID, false); err != nil {
			e.logger.Warn().Err(err).Str("staff", ident.ID).Msg("offline mark failed")
		}
	}
	e.logger.Debug().Str("conn", conn.ID).Msg("connection removed")
}

// Handle dispatches one raw inbound frame from a connection. Events from
// the same connection arrive here in order; events from different
// connections run concurrently. Errors never propagate to the caller:
// every failure becomes an error event to this connection only.
func (e *Engine) Handle(ctx context.Context, conn *Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("conn", conn.ID).Interface("panic", r).Msg("handler panic")
			e.sendError(conn, "internal error")
		}
	}()

	ev, err := DecodeInbound(raw)
	if err != nil {
		e.sendError(conn, err.Error())
		return
	}

	switch ev := ev.(type) {
	case Identify:
		e.handleIdentify(ctx, conn, ev)
	case ChatRequest:
		e.handleChatRequest(ctx, conn, ev)
	case AcceptChat:
		e.handleAcceptChat(ctx, conn, ev)
	case SendMessage:
		e.handleSendMessage(ctx, conn, ev)
	case Typing:
		e.relayTyping(conn, EventTyping, ev.RoomID)
	case StopTyping:
		e.relayTyping(conn, EventStopTyping, ev.RoomID)
	case CloseChat:
		e.handleCloseChat(ctx, conn, ev)
	case RefreshQueue:
		e.handleRefreshQueue(ctx, conn)
	case Heartbeat:
		e.sendTo(conn, Envelope{Event: EventHeartbeat, Data: HeartbeatAck{Timestamp: time.Now().UnixMilli()}})
	}
}

// handleIdentify registers the connection's identity. Guests are routed
// through the reconnection resolver; staff join the broadcast group, are
// marked online in the store, and get a queue snapshot to bootstrap
// their view.
func (e *Engine) handleIdentify(ctx context.Context, conn *Conn, ev Identify) {
	ident := Identity{ID: ev.ID, Role: ev.Role, DisplayName: ev.DisplayName}
	if ident.ID == "" {
		// Guests have no durable account; the socket id stands in.
		ident.ID = conn.ID
	}

	if ident.Role == RoleGuest {
		// Commit identity only after the resolver succeeds, so a failed
		// identify leaves no partial registry state.
		if err := e.resolveGuest(ctx, conn, ident); err != nil {
			e.sendError(conn, "identify failed")
			return
		}
		conn.setIdentity(ident)
		return
	}

	callCtx, cancel := e.storeCtx(ctx)
	defer cancel()
	if _, err := e.rooms.UpsertStaff(callCtx, ident.ID, ident.DisplayName); err != nil {
		e.logger.Error().Err(err).Str("staff", ident.ID).Msg("staff upsert failed")
		e.sendError(conn, "identify failed")
		return
	}
	conn.setIdentity(ident)

	e.logger.Info().Str("conn", conn.ID).Str("staff", ident.ID).Str("name", ident.DisplayName).Msg("staff online")
	e.sendSnapshot(ctx, conn, ident)
}

// handleRefreshQueue resends the queue snapshot to a staff connection.
func (e *Engine) handleRefreshQueue(ctx context.Context, conn *Conn) {
	ident := conn.Identity()
	if ident == nil || !ident.Role.Staff() {
		e.sendError(conn, "refresh_queue requires a staff identity")
		return
	}
	e.sendSnapshot(ctx, conn, *ident)
}

// requireMember verifies the connection is joined to the room it names.
// Protocol errors reveal nothing about rooms the connection is not in.
func (e *Engine) requireMember(conn *Conn, roomID string) bool {
	if roomID == "" || conn.RoomID() != roomID {
		e.logger.Warn().Str("conn", conn.ID).Str("room", roomID).Msg("event for unjoined room rejected")
		e.sendError(conn, "not joined to this room")
		return false
	}
	return true
}

// storeCtx derives a bounded context for a single store call.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.timeout)
}

// lockRoom serializes lifecycle transitions for one room within this
// process. Cross-process races are settled by the store's conditional
// writes; this lock only pins the local broadcast order.
func (e *Engine) lockRoom(roomID string) func() {
	e.roomMu.Lock()
	mu, ok := e.locks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[roomID] = mu
	}
	e.roomMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// releaseRoomLock drops the lock entry for a closed room.
func (e *Engine) releaseRoomLock(roomID string) {
	e.roomMu.Lock()
	delete(e.locks, roomID)
	e.roomMu.Unlock()
}

func (e *Engine) sendError(conn *Conn, msg string) {
	e.sendTo(conn, Envelope{Event: EventError, Data: ErrorPayload{Message: msg}})
}

// sendTo enqueues an envelope for one connection. Slow consumers lose
// frames instead of blocking everyone else.
func (e *Engine) sendTo(conn *Conn, env Envelope) {
	if conn == nil {
		return
	}
	if !conn.send(env) {
		metrics.DroppedFrames.WithLabelValues(env.Event).Inc()
		e.logger.Warn().Str("conn", conn.ID).Str("event", env.Event).Msg("outbound frame dropped")
	}
}

func storeUnavailable(op string) string {
	return fmt.Sprintf("%s temporarily unavailable", op)
}
