package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/pkg/apperrors"
)

type messageFixture struct {
	channels *ChannelService
	messages *MessageService
	store    *memStore
	events   *memEvents
	channel  *domain.Channel
}

func newMessageFixture(t *testing.T, coach uuid.UUID, members ...uuid.UUID) *messageFixture {
	store := newMemStore()
	dir := &memDirectory{}
	events := &memEvents{}
	dir.add(coach, "Coach Dana")
	for i, id := range members {
		dir.add(id, "Member "+string(rune('A'+i)))
	}

	channels := NewChannelService(store, dir, events)
	messages := NewMessageService(messageRepo{store}, store, events)
	messages.now = clockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	ch, err := channels.Create(context.Background(), coach, CreateChannelInput{
		Name:      "U12 Tigers",
		Type:      domain.ChannelTypeTeamChat,
		SeasonID:  uuid.New(),
		MemberIDs: members,
	})
	require.NoError(t, err)

	return &messageFixture{
		channels: channels,
		messages: messages,
		store:    store,
		events:   events,
		channel:  ch,
	}
}

func TestMessageService_Post(t *testing.T) {
	ctx := context.Background()
	coach := uuid.New()
	parent := uuid.New()

	t.Run("member posts text", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		msg, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "Practice moved to 5pm"})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeText, msg.Type)
		assert.Equal(t, "Member A", msg.SenderDisplayName)
		assert.Equal(t, 1, f.events.messageInsertedCount())
	})

	t.Run("empty text rejected", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		_, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "   "})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		_, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{
			Content: "hi", Type: domain.MessageType("hologram"),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("non-member denied and nothing written", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		_, err := f.messages.Post(ctx, uuid.New(), f.channel.ID, PostMessageInput{Content: "hi"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

		resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, resp.Messages)
	})

	t.Run("departed member denied", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		require.NoError(t, f.channels.RemoveMember(ctx, parent, f.channel.ID, parent))
		_, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "hi"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	})

	t.Run("muted member denied", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		require.NoError(t, f.channels.SetCapabilities(ctx, coach, f.channel.ID, parent, false, false))
		_, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "hi"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	})

	t.Run("unknown channel not found", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent)
		_, err := f.messages.Post(ctx, parent, uuid.New(), PostMessageInput{Content: "hi"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestMessageService_ListRecent(t *testing.T) {
	ctx := context.Background()
	coach := uuid.New()
	f := newMessageFixture(t, coach)

	var posted []uuid.UUID
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		msg, err := f.messages.Post(ctx, coach, f.channel.ID, PostMessageInput{Content: text})
		require.NoError(t, err)
		posted = append(posted, msg.ID)
	}

	t.Run("newest first with has-more", func(t *testing.T) {
		resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, nil, 2)
		require.NoError(t, err)
		require.Len(t, resp.Messages, 2)
		assert.True(t, resp.HasMore)
		assert.Equal(t, "five", resp.Messages[0].Content)
		assert.Equal(t, "four", resp.Messages[1].Content)
	})

	t.Run("cursor pages without gaps or repeats", func(t *testing.T) {
		var seen []string
		var before *uuid.UUID
		for {
			resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, before, 2)
			require.NoError(t, err)
			for _, m := range resp.Messages {
				seen = append(seen, m.Content)
			}
			if !resp.HasMore {
				break
			}
			last := resp.Messages[len(resp.Messages)-1].ID
			before = &last
		}
		assert.Equal(t, []string{"five", "four", "three", "two", "one"}, seen)
	})

	t.Run("restartable from an arbitrary cursor", func(t *testing.T) {
		resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, &posted[2], 10)
		require.NoError(t, err)
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, "two", resp.Messages[0].Content)
		assert.False(t, resp.HasMore)
	})

	t.Run("non-member denied", func(t *testing.T) {
		_, err := f.messages.ListRecent(ctx, uuid.New(), f.channel.ID, nil, 10)
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	})
}

func TestMessageService_SoftDelete(t *testing.T) {
	ctx := context.Background()
	coach := uuid.New()
	parent := uuid.New()

	setup := func(t *testing.T) (*messageFixture, *domain.Message) {
		f := newMessageFixture(t, coach, parent)
		msg, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "oops"})
		require.NoError(t, err)
		return f, msg
	}

	t.Run("sender deletes own message", func(t *testing.T) {
		f, msg := setup(t)
		require.NoError(t, f.messages.SoftDelete(ctx, parent, msg.ID))

		resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, resp.Messages)
	})

	t.Run("moderator deletes another member's message", func(t *testing.T) {
		f, msg := setup(t)
		require.NoError(t, f.messages.SoftDelete(ctx, coach, msg.ID))
	})

	t.Run("plain member cannot delete another's message", func(t *testing.T) {
		f := newMessageFixture(t, coach, parent, uuid.New())
		msg, err := f.messages.Post(ctx, parent, f.channel.ID, PostMessageInput{Content: "mine"})
		require.NoError(t, err)

		members, err := f.store.ListMembers(ctx, f.channel.ID, false)
		require.NoError(t, err)
		var other uuid.UUID
		for _, m := range members {
			if m.UserID != coach && m.UserID != parent {
				other = m.UserID
			}
		}
		err = f.messages.SoftDelete(ctx, other, msg.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	})

	t.Run("deleted rows stay visible to moderation listing", func(t *testing.T) {
		f, msg := setup(t)
		require.NoError(t, f.messages.SoftDelete(ctx, parent, msg.ID))

		resp, err := f.messages.ListModeration(ctx, coach, f.channel.ID, nil, 10)
		require.NoError(t, err)
		require.Len(t, resp.Messages, 1)
		assert.True(t, resp.Messages[0].IsDeleted)

		_, err = f.messages.ListModeration(ctx, parent, f.channel.ID, nil, 10)
		assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
	})

	t.Run("unknown message not found", func(t *testing.T) {
		f, _ := setup(t)
		err := f.messages.SoftDelete(ctx, parent, uuid.New())
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestMessageService_PostSystem(t *testing.T) {
	ctx := context.Background()
	coach := uuid.New()
	f := newMessageFixture(t, coach)

	msg, err := f.messages.PostSystem(ctx, f.channel.ID, "Game rescheduled to Saturday")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeSystem, msg.Type)
	assert.Equal(t, uuid.Nil, msg.SenderID)

	resp, err := f.messages.ListRecent(ctx, coach, f.channel.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
}
