package bus

import "github.com/google/uuid"

type MessageInsertedEvent struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type MembershipUpdatedEvent struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type RecipientUpdatedEvent struct {
	ProfileID uuid.UUID `json:"profile_id"`
}
