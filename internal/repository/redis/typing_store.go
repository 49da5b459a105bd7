package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rosterhq/huddle/internal/domain"
)

const (
	// typingKeyPrefix namespaces one hash per channel:
	// huddle:typing:{channelID}, field = userID, value = unix-nano started_at.
	typingKeyPrefix = "huddle:typing:"

	// typingKeyTTL is garbage collection only. Liveness is always decided by
	// comparing the stored started_at against domain.TypingTTL, so a slow
	// expiry never extends a signal's visible lifetime.
	typingKeyTTL = 6 * domain.TypingTTL
)

func typingKey(channelID uuid.UUID) string {
	return typingKeyPrefix + channelID.String()
}

type TypingStore struct {
	client *redis.Client
}

func NewTypingStore(client *redis.Client) *TypingStore {
	return &TypingStore{client: client}
}

func (s *TypingStore) Start(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error {
	key := typingKey(channelID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, userID.String(), strconv.FormatInt(at.UnixNano(), 10))
	pipe.Expire(ctx, key, typingKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *TypingStore) List(ctx context.Context, channelID uuid.UUID) ([]domain.TypingIndicator, error) {
	fields, err := s.client.HGetAll(ctx, typingKey(channelID)).Result()
	if err != nil {
		return nil, err
	}
	return parseIndicators(channelID, fields), nil
}

// ListBatch fetches the hashes for every visible channel in a single
// pipelined round trip.
func (s *TypingStore) ListBatch(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID][]domain.TypingIndicator, error) {
	pipe := s.client.Pipeline()
	cmds := make(map[uuid.UUID]*redis.MapStringStringCmd, len(channelIDs))
	for _, id := range channelIDs {
		cmds[id] = pipe.HGetAll(ctx, typingKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]domain.TypingIndicator, len(channelIDs))
	for id, cmd := range cmds {
		out[id] = parseIndicators(id, cmd.Val())
	}
	return out, nil
}

func parseIndicators(channelID uuid.UUID, fields map[string]string) []domain.TypingIndicator {
	indicators := make([]domain.TypingIndicator, 0, len(fields))
	for field, value := range fields {
		userID, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		nanos, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		indicators = append(indicators, domain.TypingIndicator{
			ChannelID: channelID,
			UserID:    userID,
			StartedAt: time.Unix(0, nanos),
		})
	}
	return indicators
}
