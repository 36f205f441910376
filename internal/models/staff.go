package models

import "time"

// Staff represents a support agent or admin known to the room store.
// Identity issuance lives outside this service; the engine only records
// display name and online presence.
type Staff struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}
