package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Hub manages all active WebSocket sessions and routes events. A user may
// hold several sessions at once (phone and laptop); each gets its own
// client.
type Hub struct {
	// clients maps userID → that user's active sessions.
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	log *slog.Logger
}

type broadcastMsg struct {
	channelID uuid.UUID
	data      []byte
	excludeID *uuid.UUID // optional: skip this user (e.g. the typist)
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		log:        log,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]struct{})
			}
			h.clients[client.userID][client] = struct{}{}
			h.log.Info("ws session connected", "user_id", client.userID, "sessions", len(h.clients[client.userID]))

		case client := <-h.unregister:
			if sessions, ok := h.clients[client.userID]; ok {
				if _, ok := sessions[client]; ok {
					delete(sessions, client)
					if len(sessions) == 0 {
						delete(h.clients, client.userID)
					}
					client.shutdown()
					h.log.Info("ws session disconnected", "user_id", client.userID)
				}
			}

		case msg := <-h.broadcast:
			for userID, sessions := range h.clients {
				if msg.excludeID != nil && userID == *msg.excludeID {
					continue
				}
				for client := range sessions {
					if !client.IsSubscribed(msg.channelID) {
						continue
					}
					select {
					case client.send <- msg.data:
					default:
						// Buffer full; drop the session.
						delete(sessions, client)
						if len(sessions) == 0 {
							delete(h.clients, userID)
						}
						client.shutdown()
					}
				}
			}
		}
	}
}

// BroadcastToChannel sends an event to every session subscribed to the
// channel.
func (h *Hub) BroadcastToChannel(channelID uuid.UUID, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws marshal failed", "err", err)
		return
	}
	h.broadcast <- &broadcastMsg{
		channelID: channelID,
		data:      data,
		excludeID: excludeUserID,
	}
}
