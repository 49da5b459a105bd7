package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
	"github.com/rosterhq/huddle/pkg/apperrors"
)

// DMService resolves exactly-two-member direct channels. Two concurrent
// resolutions for the same unordered pair must converge on one channel: the
// find is an exact active-set match, and the create is guarded by a unique
// index on the canonical pair key so the losing racer re-reads the winner.
type DMService struct {
	channels repository.ChannelRepository
	profiles ProfileDirectory
	events   EventPublisher
	now      func() time.Time
}

func NewDMService(channels repository.ChannelRepository, profiles ProfileDirectory, events EventPublisher) *DMService {
	return &DMService{
		channels: channels,
		profiles: profiles,
		events:   events,
		now:      time.Now,
	}
}

func (s *DMService) FindOrCreate(ctx context.Context, userID, otherUserID, seasonID uuid.UUID) (*domain.Channel, error) {
	if userID == otherUserID {
		return nil, apperrors.Validation("cannot start a direct message with yourself")
	}

	ch, err := s.channels.FindDirect(ctx, userID, otherUserID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("finding direct channel: %w", err)
	}
	if ch != nil {
		return ch, nil
	}

	names, err := displayNames(ctx, s.profiles, []uuid.UUID{userID, otherUserID})
	if err != nil {
		return nil, fmt.Errorf("resolving profiles: %w", err)
	}

	now := s.now()
	pairKey := domain.DirectPairKey(userID, otherUserID, seasonID)
	ch = &domain.Channel{
		ID:        uuid.New(),
		Name:      names[userID] + ", " + names[otherUserID],
		Type:      domain.ChannelTypeDM,
		SeasonID:  seasonID,
		CreatedBy: userID,
		CreatedAt: now,
		DMPairKey: &pairKey,
	}
	members := []domain.Membership{
		directMembership(ch.ID, userID, names[userID], now),
		directMembership(ch.ID, otherUserID, names[otherUserID], now),
	}

	err = s.channels.CreateWithMembers(ctx, ch, members)
	if errors.Is(err, repository.ErrDuplicatePair) {
		// Lost the race; the other caller's channel is the one.
		winner, ferr := s.channels.FindDirect(ctx, userID, otherUserID, seasonID)
		if ferr != nil {
			return nil, fmt.Errorf("re-reading direct channel after conflict: %w", ferr)
		}
		if winner == nil {
			return nil, apperrors.Conflict("direct channel creation raced and the winner is not visible yet")
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating direct channel: %w", err)
	}

	s.events.MembershipUpdated(ch.ID)
	return ch, nil
}

// CreateGroup creates a group_dm channel. Group DMs are ordinary
// multi-member channels; they are why the pair resolver matches the exact
// active set rather than mere overlap.
func (s *DMService) CreateGroup(ctx context.Context, creatorID uuid.UUID, memberIDs []uuid.UUID, seasonID uuid.UUID) (*domain.Channel, error) {
	participants := []uuid.UUID{creatorID}
	for _, id := range memberIDs {
		if id != creatorID {
			participants = append(participants, id)
		}
	}
	if len(participants) < 3 {
		return nil, apperrors.Validation("a group message needs at least three participants")
	}

	names, err := displayNames(ctx, s.profiles, participants)
	if err != nil {
		return nil, fmt.Errorf("resolving profiles: %w", err)
	}

	now := s.now()
	name := names[participants[0]]
	for _, id := range participants[1:] {
		name += ", " + names[id]
	}
	ch := &domain.Channel{
		ID:        uuid.New(),
		Name:      name,
		Type:      domain.ChannelTypeGroupDM,
		SeasonID:  seasonID,
		CreatedBy: creatorID,
		CreatedAt: now,
	}

	members := make([]domain.Membership, 0, len(participants))
	for _, id := range participants {
		m := directMembership(ch.ID, id, names[id], now)
		m.CanModerate = id == creatorID
		members = append(members, m)
	}

	if err := s.channels.CreateWithMembers(ctx, ch, members); err != nil {
		return nil, fmt.Errorf("creating group channel: %w", err)
	}

	s.events.MembershipUpdated(ch.ID)
	return ch, nil
}

func directMembership(channelID, userID uuid.UUID, displayName string, at time.Time) domain.Membership {
	return domain.Membership{
		ChannelID:   channelID,
		UserID:      userID,
		DisplayName: displayName,
		Role:        domain.RoleMember,
		CanPost:     true,
		JoinedAt:    at,
	}
}
