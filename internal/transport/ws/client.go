package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rosterhq/huddle/internal/search"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// TypingRecorder is the slice of the typing service a session needs.
type TypingRecorder interface {
	StartTyping(ctx context.Context, channelID, userID uuid.UUID) error
}

// Client represents a single WebSocket session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uuid.UUID
	typing   TypingRecorder
	searcher *search.Searcher
	log      *slog.Logger

	// subscribedChannels tracks which channels this session listens to.
	subscribedChannels map[uuid.UUID]struct{}
	mu                 sync.RWMutex

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, typing TypingRecorder, searcher *search.Searcher, log *slog.Logger) *Client {
	return &Client{
		hub:                hub,
		conn:               conn,
		userID:             userID,
		typing:             typing,
		searcher:           searcher,
		log:                log,
		subscribedChannels: make(map[uuid.UUID]struct{}),
		send:               make(chan []byte, sendBufSize),
		done:               make(chan struct{}),
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the session tears down; background work owned by the
// session (badge forwarding, typing refresh) hangs off it.
func (c *Client) Done() <-chan struct{} { return c.done }

// IsSubscribed checks if this session is subscribed to a channel.
func (c *Client) IsSubscribed(channelID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribedChannels[channelID]
	return ok
}

func (c *Client) Subscribe(channelID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedChannels[channelID] = struct{}{}
}

func (c *Client) Unsubscribe(channelID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedChannels, channelID)
}

// Send queues an already-marshalled event, dropping it if the session's
// buffer is full.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// ReadPump reads events from the WebSocket and routes them.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.Info("ws session closed", "user_id", c.userID)
			} else {
				c.log.Warn("ws read failed", "user_id", c.userID, "err", err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes queued events to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.Warn("ws write failed", "user_id", c.userID, "err", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeChannelSubscribe:
		var p ChannelPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid channel.subscribe payload")
			return
		}
		c.Subscribe(p.ChannelID)

	case EventTypeChannelUnsubscribe:
		var p ChannelPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid channel.unsubscribe payload")
			return
		}
		c.Unsubscribe(p.ChannelID)

	case EventTypeTypingStart:
		if event.ChannelID == nil {
			c.sendError("INVALID_PAYLOAD", "channel_id required for typing events")
			return
		}
		c.handleTyping(*event.ChannelID)

	case EventTypeSearchQuery:
		var p SearchPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid search.query payload")
			return
		}
		// One searcher per session: a newer keystroke supersedes in-flight
		// lookups, so the client never receives a stale result set last.
		c.searcher.Lookup(context.Background(), p.Query)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// handleTyping records the signal (TTL expiry is the source of truth) and
// relays an ephemeral event to other subscribers of the channel. There is no
// typing.stop: viewers let entries age out.
func (c *Client) handleTyping(channelID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.typing.StartTyping(ctx, channelID, c.userID); err != nil {
		c.log.Warn("typing signal failed", "user_id", c.userID, "err", err)
		return
	}

	evt, err := NewEvent(EventTypeTyping, &channelID, TypingPayload{UserID: c.userID})
	if err != nil {
		return
	}
	c.hub.BroadcastToChannel(channelID, evt, &c.userID)
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	c.Send(data)
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.Send(data)
}
