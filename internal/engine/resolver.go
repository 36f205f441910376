package engine

import (
	"context"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/metrics"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// resolveGuest re-attaches a reconnecting guest to their open room, if
// one exists. Identification alone never creates a room; that only
// happens on an explicit chat_request.
//
// Matching keys solely on the guest display name, which is not verified
// against any credential: two browsers claiming the same name collide
// into one room, and racing reconnects resolve last-writer-wins on the
// stored connection id. Both are accepted limitations of the guest
// identity model, not bugs to strengthen here.
func (e *Engine) resolveGuest(ctx context.Context, conn *Conn, ident Identity) error {
	username := ident.DisplayName
	if username == "" {
		return nil
	}

	callCtx, cancel := e.storeCtx(ctx)
	room, err := e.rooms.FindOpenRoomByGuest(callCtx, username)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("guest", username).Msg("reconnect lookup failed")
		return err
	}
	if room == nil {
		return nil
	}

	if err := e.attachGuest(ctx, conn, room); err != nil {
		return err
	}
	metrics.GuestReconnects.Inc()
	e.logger.Info().Str("room", room.ID).Str("guest", username).Str("conn", conn.ID).Msg("guest re-attached")
	return nil
}

// attachGuest points an open room at a new guest connection and joins
// it. For an active room the agent_joined notification is replayed so
// the guest's client can restore conversation context.
func (e *Engine) attachGuest(ctx context.Context, conn *Conn, room *models.Room) error {
	callCtx, cancel := e.storeCtx(ctx)
	err := e.rooms.UpdateGuestConnection(callCtx, room.ID, conn.ID)
	cancel()
	if err != nil {
		e.logger.Error().Err(err).Str("room", room.ID).Msg("guest connection update failed")
		return err
	}

	conn.joinRoom(room.ID)
	e.sendTo(conn, Envelope{Event: EventRoomAssigned, Data: RoomAssigned{RoomID: room.ID}})

	if room.Status == models.StatusActive && room.AgentID != nil {
		agentName := ""
		callCtx, cancel := e.storeCtx(ctx)
		staff, err := e.rooms.GetStaff(callCtx, *room.AgentID)
		cancel()
		if err == nil && staff != nil {
			agentName = staff.Name
		}
		e.sendTo(conn, Envelope{Event: EventAgentJoined, Data: AgentJoined{
			AgentName: agentName,
			RoomID:    room.ID,
		}})
	}
	return nil
}
