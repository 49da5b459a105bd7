package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleMember    = "member"
	RoleCoach     = "coach"
	RoleParent    = "parent"
	RolePlayer    = "player"
	RoleModerator = "moderator"
)

// Membership is a user's relationship to a channel. The (channel_id, user_id)
// pair is unique for the lifetime of the row: leaving sets LeftAt instead of
// deleting, and a rejoin clears it on the same row.
type Membership struct {
	ChannelID   uuid.UUID  `json:"channel_id"`
	UserID      uuid.UUID  `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	CanPost     bool       `json:"can_post"`
	CanModerate bool       `json:"can_moderate"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// Active reports whether the member currently belongs to the channel.
func (m *Membership) Active() bool { return m.LeftAt == nil }
