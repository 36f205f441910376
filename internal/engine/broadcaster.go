package engine

import (
	"context"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// broadcastStaff fans an envelope out to every staff connection, minus
// the optional exception (the acceptor, for chat_taken).
func (e *Engine) broadcastStaff(env Envelope, except *Conn) {
	for _, conn := range e.registry.Staff() {
		if except != nil && conn.ID == except.ID {
			continue
		}
		e.sendTo(conn, env)
	}
}

// sendSnapshot computes the full queue state for one staff connection:
// every waiting room plus the active rooms assigned to this identity.
// This is how a staff client bootstraps after connect or an explicit
// refresh, instead of depending on having observed every past event.
func (e *Engine) sendSnapshot(ctx context.Context, conn *Conn, ident Identity) {
	callCtx, cancel := e.storeCtx(ctx)
	waiting, err := e.rooms.ListWaiting(callCtx)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Msg("waiting list query failed")
		e.sendError(conn, storeUnavailable("queue snapshot"))
		return
	}

	callCtx, cancel = e.storeCtx(ctx)
	active, err := e.rooms.ListActiveForAgent(callCtx, ident.ID)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("staff", ident.ID).Msg("active list query failed")
		e.sendError(conn, storeUnavailable("queue snapshot"))
		return
	}

	snapshot := QueueSnapshot{
		Waiting: make([]NewRequest, 0, len(waiting)),
		Active:  make([]ActiveRoom, 0, len(active)),
	}
	for _, room := range waiting {
		snapshot.Waiting = append(snapshot.Waiting, newRequestPayload(room))
	}
	for _, room := range active {
		snapshot.Active = append(snapshot.Active, ActiveRoom{
			RoomID:       room.ID,
			CustomerName: room.CustomerName,
			Timestamp:    room.CreatedAt.UnixMilli(),
		})
	}

	e.sendTo(conn, Envelope{Event: EventQueueSnapshot, Data: snapshot})
}

// newRequestPayload builds the queue entry for a waiting room. The
// timestamp is the room's creation time; clients derive wait time from
// it rather than trusting a second stored counter.
func newRequestPayload(room models.Room) NewRequest {
	return NewRequest{
		RoomID:      room.ID,
		DisplayName: room.CustomerName,
		IsGuest:     true,
		Timestamp:   room.CreatedAt.UnixMilli(),
	}
}
