package ws

import (
	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/bus"
)

// Bridge relays bus events to connected sessions. Only ids cross the wire:
// clients refetch the affected channel or badge scope, which keeps
// at-least-once redelivery harmless.
func Bridge(b *bus.Bus, hub *Hub) error {
	if _, err := b.SubscribeMessageInserted("", func(channelID uuid.UUID) {
		relay(hub, EventTypeMessageInserted, channelID)
	}); err != nil {
		return err
	}

	_, err := b.SubscribeMembershipUpdated("", func(channelID uuid.UUID) {
		relay(hub, EventTypeMembershipUpdated, channelID)
	})
	return err
}

func relay(hub *Hub, eventType string, channelID uuid.UUID) {
	evt, err := NewEvent(eventType, &channelID, ChannelPayload{ChannelID: channelID})
	if err != nil {
		return
	}
	hub.BroadcastToChannel(channelID, evt, nil)
}
