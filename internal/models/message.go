package models

// Message represents a chat message stored in Redis.
type Message struct {
	ID         string `json:"id"`                  // ULID
	RoomID     string `json:"room_id"`             // referenced by string id, not FK
	SenderID   string `json:"sender_id,omitempty"` // empty for guests
	SenderName string `json:"sender_name"`
	SenderRole string `json:"sender_role"` // "guest", "agent" or "admin"
	Body       string `json:"body"`
	Timestamp  int64  `json:"ts"` // Unix ms, assigned at persistence time
	IsRead     bool   `json:"is_read"`
}
