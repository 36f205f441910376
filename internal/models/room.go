package models

import "time"

// RoomStatus is the lifecycle state of a support conversation.
// Transitions are forward-only: waiting -> active -> closed, or
// waiting -> closed. A closed room is never reopened.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusActive  RoomStatus = "active"
	StatusClosed  RoomStatus = "closed"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusClosed:
		return true
	}
	return false
}

// GuestInfo identifies the visitor side of a room. Username is the
// stable identity used for reconnection matching; ConnectionID is the
// current transport connection and is rewritten on every reconnect.
type GuestInfo struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connection_id"`
}

// Room represents a single guest-to-agent support conversation.
type Room struct {
	ID           string     `json:"id"`
	Status       RoomStatus `json:"status"`
	Guest        GuestInfo  `json:"guest"`
	AgentID      *string    `json:"agent_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	Organization string     `json:"organization,omitempty"`
	Department   string     `json:"department,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Open reports whether the room can still receive participants.
func (r *Room) Open() bool {
	return r.Status == StatusWaiting || r.Status == StatusActive
}
