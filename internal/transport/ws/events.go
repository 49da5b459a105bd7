package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeChannelSubscribe   = "channel.subscribe"
	EventTypeChannelUnsubscribe = "channel.unsubscribe"
	EventTypeTypingStart        = "typing.start"
	EventTypeSearchQuery        = "search.query"
	EventTypePing               = "ping"
)

// Event types - Server → Client. Change notifications carry ids only; the
// client refetches the affected scope rather than replaying payloads, since
// delivery is at-least-once and unordered.
const (
	EventTypeMessageInserted   = "message.inserted"
	EventTypeMembershipUpdated = "membership.updated"
	EventTypeTyping            = "typing"
	EventTypeBadge             = "badge"
	EventTypeSearchResults     = "search.results"
	EventTypePong              = "pong"
	EventTypeError             = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	ChannelID *uuid.UUID      `json:"channel_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ChannelPayload struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type SearchPayload struct {
	Query string `json:"query"`
}

// --- Server → Client payloads ---

type TypingPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
}

type BadgePayload struct {
	domain.Badge
}

type SearchResultsPayload struct {
	Profiles []domain.Profile `json:"profiles"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, channelID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		ChannelID: channelID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
