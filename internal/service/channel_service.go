package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
	"github.com/rosterhq/huddle/pkg/apperrors"
)

// ChannelService owns channel records and per-user membership: roles,
// capabilities, read-cursor rows and leave markers.
type ChannelService struct {
	channels repository.ChannelRepository
	profiles ProfileDirectory
	events   EventPublisher
	now      func() time.Time
}

func NewChannelService(channels repository.ChannelRepository, profiles ProfileDirectory, events EventPublisher) *ChannelService {
	return &ChannelService{
		channels: channels,
		profiles: profiles,
		events:   events,
		now:      time.Now,
	}
}

type CreateChannelInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Type        domain.ChannelType `json:"type"`
	AvatarURL   string             `json:"avatar_url"`
	TeamID      *uuid.UUID         `json:"team_id"`
	SeasonID    uuid.UUID          `json:"season_id"`
	MemberIDs   []uuid.UUID        `json:"member_ids"`
}

// Create inserts the channel and one membership per participant in a single
// transaction. The creator gets post+moderate; everyone else posts only.
func (s *ChannelService) Create(ctx context.Context, creatorID uuid.UUID, input CreateChannelInput) (*domain.Channel, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.Validation("channel name is required")
	}
	chType := input.Type
	if chType == "" {
		chType = domain.ChannelTypeCustom
	}
	if !chType.Valid() {
		return nil, apperrors.Validation("unknown channel type")
	}
	if chType.IsDirect() {
		return nil, apperrors.Validation("direct channels are created through the DM resolver")
	}

	participants := []uuid.UUID{creatorID}
	for _, id := range input.MemberIDs {
		if id != creatorID {
			participants = append(participants, id)
		}
	}

	names, err := displayNames(ctx, s.profiles, participants)
	if err != nil {
		return nil, fmt.Errorf("resolving member profiles: %w", err)
	}

	now := s.now()
	ch := &domain.Channel{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		Type:      chType,
		SeasonID:  input.SeasonID,
		TeamID:    input.TeamID,
		CreatedBy: creatorID,
		CreatedAt: now,
	}
	if input.Description != "" {
		ch.Description = &input.Description
	}
	if input.AvatarURL != "" {
		ch.AvatarURL = &input.AvatarURL
	}

	members := make([]domain.Membership, 0, len(participants))
	for _, id := range participants {
		members = append(members, domain.Membership{
			ChannelID:   ch.ID,
			UserID:      id,
			DisplayName: names[id],
			Role:        domain.RoleMember,
			CanPost:     true,
			CanModerate: id == creatorID,
			JoinedAt:    now,
		})
	}

	if err := s.channels.CreateWithMembers(ctx, ch, members); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}

	s.events.MembershipUpdated(ch.ID)
	return ch, nil
}

func (s *ChannelService) Get(ctx context.Context, userID, channelID uuid.UUID) (*domain.Channel, error) {
	ch, m, err := s.channelAndMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active() {
		return nil, apperrors.PermissionDenied("not a member of this channel")
	}
	return ch, nil
}

func (s *ChannelService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Channel, error) {
	channels, err := s.channels.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return channels, nil
}

// AddMember is idempotent: adding an existing active member refreshes role
// and snapshot, adding a departed member clears left_at on the same row.
func (s *ChannelService) AddMember(ctx context.Context, actorID, channelID, userID uuid.UUID, role string) error {
	ch, actor, err := s.channelAndMember(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if ch.Type.IsDirect() {
		return apperrors.Validation("direct channels never gain members")
	}
	if actor == nil || !actor.Active() || !actor.CanModerate {
		return apperrors.PermissionDenied("moderator capability required to add members")
	}

	if role == "" {
		role = domain.RoleMember
	}
	names, err := displayNames(ctx, s.profiles, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("resolving member profile: %w", err)
	}

	m := &domain.Membership{
		ChannelID:   channelID,
		UserID:      userID,
		DisplayName: names[userID],
		Role:        role,
		CanPost:     true,
		CanModerate: false,
		JoinedAt:    s.now(),
	}
	if err := s.channels.UpsertMember(ctx, m); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}

	s.events.MembershipUpdated(channelID)
	return nil
}

// RemoveMember sets the leave marker; message history and the membership row
// stay put for a later rejoin.
func (s *ChannelService) RemoveMember(ctx context.Context, actorID, channelID, userID uuid.UUID) error {
	ch, actor, err := s.channelAndMember(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if ch.Type.IsDirect() {
		return apperrors.Validation("direct channels never lose members")
	}
	if actorID != userID {
		if actor == nil || !actor.Active() || !actor.CanModerate {
			return apperrors.PermissionDenied("moderator capability required to remove members")
		}
	}

	left, err := s.channels.MarkLeft(ctx, channelID, userID, s.now())
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if !left {
		return apperrors.NotFound("membership not found")
	}

	s.events.MembershipUpdated(channelID)
	return nil
}

// SetCapabilities mutes or promotes a member without touching their row
// identity.
func (s *ChannelService) SetCapabilities(ctx context.Context, actorID, channelID, userID uuid.UUID, canPost, canModerate bool) error {
	_, actor, err := s.channelAndMember(ctx, channelID, actorID)
	if err != nil {
		return err
	}
	if actor == nil || !actor.Active() || !actor.CanModerate {
		return apperrors.PermissionDenied("moderator capability required")
	}

	updated, err := s.channels.SetCapabilities(ctx, channelID, userID, canPost, canModerate)
	if err != nil {
		return fmt.Errorf("updating capabilities: %w", err)
	}
	if !updated {
		return apperrors.NotFound("membership not found")
	}

	s.events.MembershipUpdated(channelID)
	return nil
}

func (s *ChannelService) ListMembers(ctx context.Context, userID, channelID uuid.UUID, includeLeft bool) ([]domain.Membership, error) {
	_, m, err := s.channelAndMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active() {
		return nil, apperrors.PermissionDenied("not a member of this channel")
	}
	if includeLeft && !m.CanModerate {
		return nil, apperrors.PermissionDenied("moderator capability required to list departed members")
	}

	members, err := s.channels.ListMembers(ctx, channelID, includeLeft)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.Membership{}
	}
	return members, nil
}

func (s *ChannelService) channelAndMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.Channel, *domain.Membership, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil {
		return nil, nil, apperrors.NotFound("channel not found")
	}
	m, err := s.channels.GetMember(ctx, channelID, userID)
	if err != nil {
		return nil, nil, err
	}
	return ch, m, nil
}
