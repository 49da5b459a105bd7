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

// MessageService is the append-only per-channel message log.
type MessageService struct {
	messages repository.MessageRepository
	channels repository.ChannelRepository
	events   EventPublisher
	now      func() time.Time
}

func NewMessageService(messages repository.MessageRepository, channels repository.ChannelRepository, events EventPublisher) *MessageService {
	return &MessageService{
		messages: messages,
		channels: channels,
		events:   events,
		now:      time.Now,
	}
}

type PostMessageInput struct {
	Content string             `json:"content"`
	Type    domain.MessageType `json:"type"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Post appends a message. The sender needs an active membership with the
// post capability; a member who left or was muted gets PermissionDenied and
// no row is written.
func (s *MessageService) Post(ctx context.Context, senderID, channelID uuid.UUID, input PostMessageInput) (*domain.Message, error) {
	msgType := input.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, apperrors.Validation("unknown message type")
	}
	if msgType == domain.MessageTypeText && strings.TrimSpace(input.Content) == "" {
		return nil, apperrors.Validation("message content is required")
	}

	m, err := s.activeMember(ctx, channelID, senderID)
	if err != nil {
		return nil, err
	}
	if !m.CanPost {
		return nil, apperrors.PermissionDenied("posting capability required")
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		SenderID:  senderID,
		Content:   input.Content,
		Type:      msgType,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	msg.SenderDisplayName = m.DisplayName

	s.events.MessageInserted(channelID)
	return msg, nil
}

// PostSystem appends a system message (member joined, game rescheduled and
// the like) without a capability check. Not reachable from the HTTP surface.
func (s *MessageService) PostSystem(ctx context.Context, channelID uuid.UUID, content string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		SenderID:  uuid.Nil,
		Content:   content,
		Type:      domain.MessageTypeSystem,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating system message: %w", err)
	}

	s.events.MessageInserted(channelID)
	return msg, nil
}

// ListRecent pages backwards from the newest message, excluding soft-deleted
// rows. The cursor is the id of the oldest message from the previous page;
// the sequence is restartable from any cursor.
func (s *MessageService) ListRecent(ctx context.Context, userID, channelID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if _, err := s.activeMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	return s.list(ctx, channelID, before, limit, false)
}

// ListModeration includes soft-deleted rows for audit. Moderators only.
func (s *MessageService) ListModeration(ctx context.Context, actorID, channelID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	m, err := s.activeMember(ctx, channelID, actorID)
	if err != nil {
		return nil, err
	}
	if !m.CanModerate {
		return nil, apperrors.PermissionDenied("moderator capability required")
	}
	return s.list(ctx, channelID, before, limit, true)
}

func (s *MessageService) list(ctx context.Context, channelID uuid.UUID, before *uuid.UUID, limit int, includeDeleted bool) (*MessageListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Fetch one extra row to learn whether another page exists.
	messages, err := s.messages.ListRecent(ctx, channelID, before, limit+1, includeDeleted)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{Messages: messages, HasMore: hasMore}, nil
}

// SoftDelete hides a message from listings and unread counts while keeping
// the row for audit. There is no undelete.
func (s *MessageService) SoftDelete(ctx context.Context, actorID, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.NotFound("message not found")
	}

	if msg.SenderID != actorID {
		m, err := s.channels.GetMember(ctx, msg.ChannelID, actorID)
		if err != nil {
			return err
		}
		if m == nil || !m.Active() || !m.CanModerate {
			return apperrors.PermissionDenied("only the sender or a moderator can delete a message")
		}
	}

	deleted, err := s.messages.SoftDelete(ctx, messageID)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("message not found")
	}

	s.events.MessageInserted(msg.ChannelID)
	return nil
}

func (s *MessageService) activeMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.Membership, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperrors.NotFound("channel not found")
	}
	m, err := s.channels.GetMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active() {
		return nil, apperrors.PermissionDenied("not an active member of this channel")
	}
	return m, nil
}
