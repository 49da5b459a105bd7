package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
	"github.com/rosterhq/huddle/pkg/apperrors"
)

// TypingService tracks the ephemeral "who is typing" signal. There is no
// stop operation: entries age out by comparing started_at against the TTL,
// so the semantics survive any change of transport underneath.
type TypingService struct {
	store repository.TypingStore
	log   *slog.Logger
	now   func() time.Time
}

func NewTypingService(store repository.TypingStore, log *slog.Logger) *TypingService {
	return &TypingService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// StartTyping upserts the signal; each keystroke burst refreshes started_at.
// The store is an ephemeral cache, so an outage surfaces as Unavailable
// rather than Internal: the caller just retries on the next keystroke.
func (s *TypingService) StartTyping(ctx context.Context, channelID, userID uuid.UUID) error {
	if err := s.store.Start(ctx, channelID, userID, s.now()); err != nil {
		return apperrors.Unavailable("typing store unreachable", err)
	}
	return nil
}

// CurrentlyTyping returns the users whose signal is younger than the TTL.
func (s *TypingService) CurrentlyTyping(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	indicators, err := s.store.List(ctx, channelID)
	if err != nil {
		return nil, apperrors.Unavailable("typing store unreachable", err)
	}
	return s.filterLive(indicators), nil
}

// CurrentlyTypingBatch answers for all visible channels in one store round
// trip rather than one call per channel.
func (s *TypingService) CurrentlyTypingBatch(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	byChannel, err := s.store.ListBatch(ctx, channelIDs)
	if err != nil {
		return nil, apperrors.Unavailable("typing store unreachable", err)
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(byChannel))
	for channelID, indicators := range byChannel {
		out[channelID] = s.filterLive(indicators)
	}
	return out, nil
}

type TypingUpdate struct {
	Typing map[uuid.UUID][]uuid.UUID `json:"typing"`
}

// Watch polls the batch query on an interval and emits snapshots until ctx
// is cancelled. The owning view cancels on teardown; a store failure keeps
// the last known value and retries on the next tick.
func (s *TypingService) Watch(ctx context.Context, channelIDs []uuid.UUID, interval time.Duration) <-chan TypingUpdate {
	updates := make(chan TypingUpdate, 1)

	go func() {
		defer close(updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				typing, err := s.CurrentlyTypingBatch(ctx, channelIDs)
				if err != nil {
					s.log.Warn("typing refresh failed", "err", err)
					continue
				}
				select {
				case updates <- TypingUpdate{Typing: typing}:
				default:
					select {
					case <-updates:
					default:
					}
					select {
					case updates <- TypingUpdate{Typing: typing}:
					default:
					}
				}
			}
		}
	}()

	return updates
}

func (s *TypingService) filterLive(indicators []domain.TypingIndicator) []uuid.UUID {
	now := s.now()
	users := make([]uuid.UUID, 0, len(indicators))
	for _, ind := range indicators {
		if !ind.Expired(now) {
			users = append(users, ind.UserID)
		}
	}
	return users
}
