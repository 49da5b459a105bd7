package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
)

// ErrDuplicatePair is returned when inserting a dm channel whose canonical
// pair key already exists. Callers re-run the find and adopt the winner.
var ErrDuplicatePair = errors.New("dm pair already exists")

type ChannelRepository interface {
	// CreateWithMembers inserts the channel row and all initial memberships
	// atomically.
	CreateWithMembers(ctx context.Context, ch *domain.Channel, members []domain.Membership) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	// FindDirect returns the dm channel in the season whose active membership
	// set is exactly {userA, userB}, or nil.
	FindDirect(ctx context.Context, userA, userB, seasonID uuid.UUID) (*domain.Channel, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Channel, error)

	// UpsertMember inserts a membership, or on an existing
	// (channel_id, user_id) row clears left_at and updates the role.
	UpsertMember(ctx context.Context, m *domain.Membership) error
	// MarkLeft sets left_at on an active membership. Returns false when no
	// active membership matched.
	MarkLeft(ctx context.Context, channelID, userID uuid.UUID, at time.Time) (bool, error)
	GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.Membership, error)
	ListMembers(ctx context.Context, channelID uuid.UUID, includeLeft bool) ([]domain.Membership, error)
	SetCapabilities(ctx context.Context, channelID, userID uuid.UUID, canPost, canModerate bool) (bool, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListRecent pages reverse-chronologically by the (created_at, id) tuple
	// so ties on created_at paginate stably. before references a message id.
	ListRecent(ctx context.Context, channelID uuid.UUID, before *uuid.UUID, limit int, includeDeleted bool) ([]domain.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
}

type UnreadRepository interface {
	ChannelUnread(ctx context.Context, channelID, userID uuid.UUID) (int, error)
	// UnreadByChannel counts unread messages across all of the user's active
	// memberships in a single grouped query.
	UnreadByChannel(ctx context.Context, userID uuid.UUID) ([]domain.ChannelUnread, error)
	// MarkRead advances the read cursor, refusing to move it backwards.
	MarkRead(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error
}

// TypingStore holds the ephemeral typing signals. Implementations never
// delete entries explicitly; expiry is an age comparison done by the caller.
type TypingStore interface {
	Start(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error
	List(ctx context.Context, channelID uuid.UUID) ([]domain.TypingIndicator, error)
	// ListBatch fetches indicators for many channels in one round trip.
	ListBatch(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID][]domain.TypingIndicator, error)
}
