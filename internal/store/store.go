package store

import (
	"context"
	"errors"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// ErrRoomNotFound is returned by mutations that target a missing room.
var ErrRoomNotFound = errors.New("room not found")

// RoomStore defines the interface for persistent storage of rooms and
// staff presence. Both PostgresStore and SQLiteStore implement this
// interface. The store is shared across server processes, so the
// waiting->active and ->closed transitions are expressed as conditional
// updates that report whether they won the write.
type RoomStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room operations. The caller supplies the room id so it can
	// serialize on the id before the room becomes visible to readers.
	CreateRoom(ctx context.Context, id string, guest models.GuestInfo, customerName, organization, department string) (*models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	FindOpenRoomByGuest(ctx context.Context, username string) (*models.Room, error)
	UpdateGuestConnection(ctx context.Context, roomID, connectionID string) error
	// AssignAgentIfWaiting atomically moves a waiting room to active and
	// records the agent. Returns false when the room is no longer waiting,
	// which is how a losing acceptor learns it lost the race.
	AssignAgentIfWaiting(ctx context.Context, roomID, agentID string) (bool, error)
	// CloseRoom atomically moves an open room to closed and stamps
	// closed_at. Returns false when the room was already closed or missing.
	CloseRoom(ctx context.Context, roomID string) (bool, error)
	ListWaiting(ctx context.Context) ([]models.Room, error)
	ListActiveForAgent(ctx context.Context, agentID string) ([]models.Room, error)

	// Staff presence
	UpsertStaff(ctx context.Context, id, name string) (*models.Staff, error)
	SetStaffOnline(ctx context.Context, id string, online bool) error
	GetStaff(ctx context.Context, id string) (*models.Staff, error)
}

// MessageStore defines the interface for the chat transcript. The Redis
// implementation assigns ids and timestamps at persistence time.
type MessageStore interface {
	AddMessage(ctx context.Context, msg *models.Message) error
	ListRoomMessages(ctx context.Context, roomID string, limit int, before int64) ([]models.Message, error)
}
