package crypto

import (
	"github.com/google/uuid"
)

// NewUUIDv7 generates a time-ordered UUID v7. Room ids use v7 so the
// primary key index stays append-mostly and ids sort by creation time.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
