package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ChannelType string

const (
	ChannelTypeTeamChat           ChannelType = "team_chat"
	ChannelTypePlayerChat         ChannelType = "player_chat"
	ChannelTypeDM                 ChannelType = "dm"
	ChannelTypeGroupDM            ChannelType = "group_dm"
	ChannelTypeLeagueAnnouncement ChannelType = "league_announcement"
	ChannelTypeCustom             ChannelType = "custom"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypeTeamChat, ChannelTypePlayerChat, ChannelTypeDM,
		ChannelTypeGroupDM, ChannelTypeLeagueAnnouncement, ChannelTypeCustom:
		return true
	}
	return false
}

// IsDirect reports whether the channel is a two-member direct channel.
// Direct channels keep exactly two active memberships for their entire
// lifetime; membership mutations are refused on them.
func (t ChannelType) IsDirect() bool { return t == ChannelTypeDM }

type Channel struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Type        ChannelType `json:"type"`
	AvatarURL   *string     `json:"avatar_url,omitempty"`
	TeamID      *uuid.UUID  `json:"team_id,omitempty"`
	SeasonID    uuid.UUID   `json:"season_id"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`

	// DMPairKey is set only on dm-type channels: the canonical digest of the
	// unordered member pair within a season. A unique index on it is what
	// keeps concurrent find-or-create calls from minting duplicate channels.
	DMPairKey *string `json:"-"`
}

// DirectPairKey builds the canonical (sorted pair, season) digest for a
// dm channel. Both orderings of a and b produce the same key.
func DirectPairKey(a, b, seasonID uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s:%s", a, b, seasonID)
}
