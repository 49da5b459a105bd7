package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
	"github.com/rosterhq/huddle/pkg/apperrors"
)

// UnreadService derives per-channel and global unread counts from the
// message log and membership read cursors, plus the external alert count.
// Counts are always recomputed fresh from source state: the bus delivers
// events at least once and unordered, so increment/decrement bookkeeping
// would drift.
type UnreadService struct {
	unread   repository.UnreadRepository
	channels repository.ChannelRepository
	alerts   AlertSource
	events   EventPublisher
	log      *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[uuid.UUID]map[*badgeSub]struct{}
}

type badgeSub struct {
	ch chan domain.Badge
}

func NewUnreadService(unread repository.UnreadRepository, channels repository.ChannelRepository, alerts AlertSource, events EventPublisher, log *slog.Logger) *UnreadService {
	return &UnreadService{
		unread:   unread,
		channels: channels,
		alerts:   alerts,
		events:   events,
		log:      log,
		now:      time.Now,
		subs:     make(map[uuid.UUID]map[*badgeSub]struct{}),
	}
}

func (s *UnreadService) ChannelUnread(ctx context.Context, userID, channelID uuid.UUID) (int, error) {
	count, err := s.unread.ChannelUnread(ctx, channelID, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}
	return count, nil
}

// GlobalUnread builds the combined badge: one grouped query across all
// active memberships plus one unacknowledged-alert count. Two round trips
// total, regardless of how many channels the user belongs to.
func (s *UnreadService) GlobalUnread(ctx context.Context, userID uuid.UUID) (*domain.Badge, error) {
	channels, err := s.unread.UnreadByChannel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread by channel: %w", err)
	}
	alerts, err := s.alerts.UnacknowledgedCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unacknowledged alerts: %w", err)
	}

	if channels == nil {
		channels = []domain.ChannelUnread{}
	}
	total := alerts
	for _, cu := range channels {
		total += cu.Count
	}
	return &domain.Badge{
		UserID:     userID,
		Channels:   channels,
		AlertCount: alerts,
		Total:      total,
	}, nil
}

// MarkRead advances the read cursor to now. The cursor is monotonic: an
// update carrying an earlier timestamp than the stored one is a no-op, which
// makes replays from multiple devices safe.
func (s *UnreadService) MarkRead(ctx context.Context, userID, channelID uuid.UUID) error {
	m, err := s.channels.GetMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if m == nil || !m.Active() {
		return apperrors.NotFound("membership not found")
	}

	if err := s.unread.MarkRead(ctx, channelID, userID, s.now()); err != nil {
		return fmt.Errorf("advancing read cursor: %w", err)
	}

	s.events.MembershipUpdated(channelID)
	return nil
}

// Subscribe activates a badge stream for a session. The returned cancel
// must be called on view teardown; an abandoned subscription would keep
// receiving recomputations forever.
func (s *UnreadService) Subscribe(userID uuid.UUID) (<-chan domain.Badge, func()) {
	sub := &badgeSub{ch: make(chan domain.Badge, 1)}

	s.mu.Lock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[*badgeSub]struct{})
	}
	s.subs[userID][sub] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subs[userID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(s.subs, userID)
			}
		}
	}
	return sub.ch, cancel
}

// InvalidateChannel recomputes badges for subscribed members of the channel.
// Targeted: only the affected scope is recomputed, not every subscriber.
// Departed members are part of that scope: leaving is itself the membership
// change that drops the channel out of their badge, and no later event on
// the channel will target them.
func (s *UnreadService) InvalidateChannel(ctx context.Context, channelID uuid.UUID) {
	members, err := s.channels.ListMembers(ctx, channelID, true)
	if err != nil {
		// Background path: keep last known values, the next event retries.
		s.log.Warn("unread invalidation failed", "channel_id", channelID, "err", err)
		return
	}
	for _, m := range members {
		if s.subscribed(m.UserID) {
			s.refresh(ctx, m.UserID)
		}
	}
}

// InvalidateProfile recomputes one user's badge after an alert-recipient
// change.
func (s *UnreadService) InvalidateProfile(ctx context.Context, profileID uuid.UUID) {
	if s.subscribed(profileID) {
		s.refresh(ctx, profileID)
	}
}

// ResyncAll recomputes every subscribed user. Invoked after a bus reconnect,
// since the transport fills no gaps.
func (s *UnreadService) ResyncAll(ctx context.Context) {
	s.mu.Lock()
	users := make([]uuid.UUID, 0, len(s.subs))
	for userID := range s.subs {
		users = append(users, userID)
	}
	s.mu.Unlock()

	for _, userID := range users {
		s.refresh(ctx, userID)
	}
}

func (s *UnreadService) subscribed(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[userID]) > 0
}

func (s *UnreadService) refresh(ctx context.Context, userID uuid.UUID) {
	badge, err := s.GlobalUnread(ctx, userID)
	if err != nil {
		s.log.Warn("badge recompute failed", "user_id", userID, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[userID] {
		// Keep only the latest badge per subscriber; a slow consumer skips
		// intermediate values instead of blocking recomputation.
		select {
		case sub.ch <- *badge:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- *badge:
			default:
			}
		}
	}
}
