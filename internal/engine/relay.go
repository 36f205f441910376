package engine

import (
	"context"
	"strings"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/metrics"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// handleSendMessage persists a chat message and delivers it to every
// connection joined to the room, sender included, so all clients render
// from the one stored record with its server-assigned id and timestamp.
// A failed write reaches nobody: the sender alone gets the error.
func (e *Engine) handleSendMessage(ctx context.Context, conn *Conn, ev SendMessage) {
	ident := conn.Identity()
	if ident == nil {
		e.sendError(conn, "identify before sending messages")
		return
	}
	if !e.requireMember(conn, ev.RoomID) {
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		e.sendError(conn, "message text is required")
		return
	}

	msg := &models.Message{
		RoomID:     ev.RoomID,
		SenderName: ident.DisplayName,
		SenderRole: string(ident.Role),
		Body:       text,
	}
	if ident.Role.Staff() {
		msg.SenderID = ident.ID
	}

	callCtx, cancel := e.storeCtx(ctx)
	err := e.messages.AddMessage(callCtx, msg)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("room", ev.RoomID).Msg("message persist failed")
		e.sendError(conn, storeUnavailable("message"))
		return
	}
	metrics.MessagesRelayed.Inc()

	env := Envelope{Event: EventNewMessage, Data: NewMessage{
		ID:         msg.ID,
		Sender:     msg.SenderName,
		SenderRole: msg.SenderRole,
		Text:       msg.Body,
		Timestamp:  msg.Timestamp,
	}}
	for _, member := range e.registry.InRoom(ev.RoomID) {
		e.sendTo(member, env)
	}
}

// relayTyping forwards a typing or stop_typing signal to the other
// connections in the room. Ephemeral: never persisted, never echoed
// back to the sender.
func (e *Engine) relayTyping(conn *Conn, event, roomID string) {
	if !e.requireMember(conn, roomID) {
		return
	}

	from := ""
	if ident := conn.Identity(); ident != nil {
		from = ident.DisplayName
	}

	env := Envelope{Event: event, Data: TypingRelay{RoomID: roomID, From: from}}
	for _, member := range e.registry.InRoom(roomID) {
		if member.ID == conn.ID {
			continue
		}
		e.sendTo(member, env)
	}
}
