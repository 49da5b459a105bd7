package domain

import (
	"time"

	"github.com/google/uuid"
)

// TypingTTL is how long a typing signal stays visible after its last
// refresh. Entries are never explicitly stopped; they age out.
const TypingTTL = 5 * time.Second

// TypingIndicator is the ephemeral "user is composing" signal, refreshed per
// keystroke burst.
type TypingIndicator struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

// Expired reports whether the indicator has aged out as of now.
func (t TypingIndicator) Expired(now time.Time) bool {
	return now.Sub(t.StartedAt) >= TypingTTL
}
