package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/search"
)

// BadgeSource is the unread aggregator's observable side.
type BadgeSource interface {
	Subscribe(userID uuid.UUID) (<-chan domain.Badge, func())
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, typing TypingRecorder, badges BadgeSource, dir search.Directory, jwtSecret string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // dev mode: any origin
		})
		if err != nil {
			log.Warn("ws accept failed", "err", err)
			return
		}

		searcher := search.New(dir, log)
		client := NewClient(hub, conn, userID, typing, searcher, log)
		hub.register <- client

		// Badge stream lives exactly as long as the session: subscribe on
		// activate, cancel on teardown.
		badgeCh, cancel := badges.Subscribe(userID)
		go forwardBadges(client, badgeCh, cancel, log)
		go forwardSearchResults(client, searcher)

		go client.WritePump()
		go client.ReadPump()
	}
}

func forwardBadges(client *Client, badges <-chan domain.Badge, cancel func(), log *slog.Logger) {
	defer cancel()
	for {
		select {
		case badge := <-badges:
			evt, err := NewEvent(EventTypeBadge, nil, BadgePayload{Badge: badge})
			if err != nil {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			client.Send(data)

		case <-client.Done():
			return
		}
	}
}

func forwardSearchResults(client *Client, searcher *search.Searcher) {
	for {
		select {
		case profiles := <-searcher.Updates():
			evt, err := NewEvent(EventTypeSearchResults, nil, SearchResultsPayload{Profiles: profiles})
			if err != nil {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			client.Send(data)

		case <-client.Done():
			return
		}
	}
}

func validateToken(tokenStr, secret string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(sub)
}
