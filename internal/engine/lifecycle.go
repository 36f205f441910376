package engine

import (
	"context"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/crypto"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/metrics"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// handleChatRequest creates a waiting room for an identified guest, or
// re-attaches the guest to an open room they already have. Room creation
// is the only entry into the state machine; the store generates nothing,
// the engine is the sole writer of status.
func (e *Engine) handleChatRequest(ctx context.Context, conn *Conn, ev ChatRequest) {
	ident := conn.Identity()
	if ident == nil || ident.Role != RoleGuest {
		e.sendError(conn, "chat_request requires a guest identity")
		return
	}

	username := ident.DisplayName
	if username == "" {
		username = ev.DisplayName
	}
	if username == "" {
		e.sendError(conn, "chat_request requires a display name")
		return
	}
	customerName := ev.DisplayName
	if customerName == "" {
		customerName = username
	}

	// At most one open room per guest username: an existing open room is
	// reused instead of creating a duplicate.
	callCtx, cancel := e.storeCtx(ctx)
	existing, err := e.rooms.FindOpenRoomByGuest(callCtx, username)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("guest", username).Msg("open room lookup failed")
		e.sendError(conn, storeUnavailable("chat request"))
		return
	}
	if existing != nil {
		if err := e.attachGuest(ctx, conn, existing); err != nil {
			e.sendError(conn, storeUnavailable("chat request"))
		}
		return
	}

	guest := models.GuestInfo{Username: username, ConnectionID: conn.ID}
	roomID := crypto.NewUUIDv7().String()

	// The id is generated here so the transition lock is held before the
	// room is visible in the store. An accept racing this create, even
	// one fed by a queue snapshot taken mid-create, blocks until
	// new_request has gone out; chat_taken can never precede it.
	unlock := e.lockRoom(roomID)
	created := false
	defer func() {
		unlock()
		if !created {
			// Nothing else can reference an id that was never stored;
			// drop its lock entry.
			e.releaseRoomLock(roomID)
		}
	}()

	callCtx, cancel = e.storeCtx(ctx)
	room, err := e.rooms.CreateRoom(callCtx, roomID, guest, customerName, ev.Organization, ev.Department)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("guest", username).Msg("room create failed")
		e.sendError(conn, storeUnavailable("chat request"))
		return
	}
	created = true
	metrics.RoomsCreated.Inc()

	conn.joinRoom(room.ID)
	e.sendTo(conn, Envelope{Event: EventRoomAssigned, Data: RoomAssigned{RoomID: room.ID}})
	e.broadcastStaff(Envelope{Event: EventNewRequest, Data: newRequestPayload(*room)}, nil)

	e.logger.Info().Str("room", room.ID).Str("guest", username).Msg("room created")
}

// handleAcceptChat attempts the waiting->active transition. The store's
// conditional write arbitrates concurrent acceptors, possibly running in
// different processes: exactly one wins, the rest get a conflict error
// and their queue views are corrected by the normal chat_taken event.
func (e *Engine) handleAcceptChat(ctx context.Context, conn *Conn, ev AcceptChat) {
	ident := conn.Identity()
	if ident == nil || !ident.Role.Staff() {
		e.sendError(conn, "accept_chat requires a staff identity")
		return
	}
	agentID := ident.ID
	if agentID == "" {
		agentID = ev.AgentID
	}

	unlock := e.lockRoom(ev.RoomID)
	defer unlock()

	callCtx, cancel := e.storeCtx(ctx)
	won, err := e.rooms.AssignAgentIfWaiting(callCtx, ev.RoomID, agentID)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("room", ev.RoomID).Msg("accept write failed")
		e.sendError(conn, storeUnavailable("accept"))
		return
	}
	if !won {
		metrics.AcceptConflicts.Inc()
		e.sendError(conn, "room not available")
		return
	}
	metrics.RoomsAccepted.Inc()

	callCtx, cancel = e.storeCtx(ctx)
	room, err := e.rooms.GetRoom(callCtx, ev.RoomID)
	cancel()
	if err != nil || room == nil {
		// The assignment is durable; only the read back failed. The
		// acceptor still gets its confirmation with what we know.
		e.logger.Error().Err(err).Str("room", ev.RoomID).Msg("room read after accept failed")
		room = nil
	}

	conn.joinRoom(ev.RoomID)

	customerName := ""
	if room != nil {
		customerName = room.CustomerName
		if guestConn := e.registry.Get(room.Guest.ConnectionID); guestConn != nil {
			e.sendTo(guestConn, Envelope{Event: EventAgentJoined, Data: AgentJoined{
				AgentName: ident.DisplayName,
				RoomID:    ev.RoomID,
			}})
		}
	}

	e.sendTo(conn, Envelope{Event: EventChatAccepted, Data: ChatAccepted{
		RoomID:       ev.RoomID,
		CustomerName: customerName,
	}})
	e.broadcastStaff(Envelope{Event: EventChatTaken, Data: ChatTaken{RoomID: ev.RoomID}}, conn)

	e.logger.Info().Str("room", ev.RoomID).Str("agent", agentID).Msg("chat accepted")
}

// handleCloseChat moves an open room to closed. Either participant may
// close; admins may close any room. Every participant gets exactly one
// chat_closed, staff queue views drop the room, and all joined
// connections detach. Closed rooms stay closed: the next request from
// the same guest starts a fresh room.
func (e *Engine) handleCloseChat(ctx context.Context, conn *Conn, ev CloseChat) {
	ident := conn.Identity()
	isAdmin := ident != nil && ident.Role == RoleAdmin
	if !isAdmin && conn.RoomID() != ev.RoomID {
		e.logger.Warn().Str("conn", conn.ID).Str("room", ev.RoomID).Msg("close for unjoined room rejected")
		e.sendError(conn, "not joined to this room")
		return
	}

	// Only a successful close may drop the lock entry: a still-open room
	// keeps its entry so every waiter contends on the same mutex. Closed
	// rooms stay closed, so theirs is dead weight.
	unlock := e.lockRoom(ev.RoomID)
	closed := false
	defer func() {
		unlock()
		if closed {
			e.releaseRoomLock(ev.RoomID)
		}
	}()

	callCtx, cancel := e.storeCtx(ctx)
	closed, err := e.rooms.CloseRoom(callCtx, ev.RoomID)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("room", ev.RoomID).Msg("close write failed")
		e.sendError(conn, storeUnavailable("close"))
		return
	}
	if !closed {
		e.sendError(conn, "room is not open")
		return
	}
	metrics.RoomsClosed.Inc()

	// One event per connection: participants and staff observers, deduped.
	env := Envelope{Event: EventChatClosed, Data: ChatClosed{RoomID: ev.RoomID}}
	notified := make(map[string]bool)
	members := e.registry.InRoom(ev.RoomID)
	for _, member := range members {
		notified[member.ID] = true
		e.sendTo(member, env)
	}
	for _, staffConn := range e.registry.Staff() {
		if notified[staffConn.ID] {
			continue
		}
		e.sendTo(staffConn, env)
	}

	for _, member := range members {
		member.leaveRoom()
	}

	e.logger.Info().Str("room", ev.RoomID).Str("conn", conn.ID).Msg("room closed")
}
