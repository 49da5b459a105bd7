package domain

import "github.com/google/uuid"

// ChannelUnread is the derived count of qualifying messages newer than the
// member's read cursor. It is never stored; a null last_read_at counts from
// the epoch.
type ChannelUnread struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Count     int       `json:"count"`
}

// Badge is the combined tab-badge value for one user: per-channel unread
// counts plus the unacknowledged count owned by the external alert subsystem.
type Badge struct {
	UserID     uuid.UUID       `json:"user_id"`
	Channels   []ChannelUnread `json:"channels"`
	AlertCount int             `json:"alert_count"`
	Total      int             `json:"total"`
}
