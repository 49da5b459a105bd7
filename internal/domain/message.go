package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeVoice  MessageType = "voice"
	MessageTypeGif    MessageType = "gif"
	MessageTypeVideo  MessageType = "video"
	MessageTypeSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVoice,
		MessageTypeGif, MessageTypeVideo, MessageTypeSystem:
		return true
	}
	return false
}

// Message is an append-only channel log entry. Rows are never removed;
// IsDeleted hides a message from listings, previews and unread counts while
// keeping it retrievable through the moderation listing.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	ChannelID uuid.UUID   `json:"channel_id"`
	SenderID  uuid.UUID   `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	IsDeleted bool        `json:"is_deleted,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	// Joined field
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}
