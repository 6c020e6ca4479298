package models

import "time"

// Room represents a named container for messages and files.
type Room struct {
	Name      string    `json:"name"`
	Passcode  string    `json:"-"`
	TTL       int       `json:"ttl,omitempty"` // seconds; >= NeverExpireTTL means no expiry
	CreatedAt time.Time `json:"created_at"`
}

// NeverExpireTTL is the sentinel TTL value (in seconds) at or above which a
// room is never auto-deleted.
const NeverExpireTTL = 20000
