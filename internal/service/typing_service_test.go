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

func TestTypingService_TTL(t *testing.T) {
	ctx := context.Background()
	channel := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("fresh signal is visible", func(t *testing.T) {
		store := newMemTyping()
		svc := NewTypingService(store, discardLogger())
		svc.now = func() time.Time { return start }

		require.NoError(t, svc.StartTyping(ctx, channel, alice))
		typing, err := svc.CurrentlyTyping(ctx, channel)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{alice}, typing)
	})

	t.Run("signal ages out at the ttl without any stop call", func(t *testing.T) {
		store := newMemTyping()
		svc := NewTypingService(store, discardLogger())
		now := start
		svc.now = func() time.Time { return now }

		require.NoError(t, svc.StartTyping(ctx, channel, alice))

		now = start.Add(domain.TypingTTL - time.Millisecond)
		typing, err := svc.CurrentlyTyping(ctx, channel)
		require.NoError(t, err)
		assert.Len(t, typing, 1)

		now = start.Add(domain.TypingTTL)
		typing, err = svc.CurrentlyTyping(ctx, channel)
		require.NoError(t, err)
		assert.Empty(t, typing)
	})

	t.Run("keystroke refresh restarts the window", func(t *testing.T) {
		store := newMemTyping()
		svc := NewTypingService(store, discardLogger())
		now := start
		svc.now = func() time.Time { return now }

		require.NoError(t, svc.StartTyping(ctx, channel, alice))
		now = start.Add(4 * time.Second)
		require.NoError(t, svc.StartTyping(ctx, channel, alice))

		now = start.Add(8 * time.Second)
		typing, err := svc.CurrentlyTyping(ctx, channel)
		require.NoError(t, err)
		assert.Len(t, typing, 1)
	})

	t.Run("expiry is per user", func(t *testing.T) {
		store := newMemTyping()
		svc := NewTypingService(store, discardLogger())
		now := start
		svc.now = func() time.Time { return now }

		require.NoError(t, svc.StartTyping(ctx, channel, alice))
		now = start.Add(3 * time.Second)
		require.NoError(t, svc.StartTyping(ctx, channel, bob))

		now = start.Add(6 * time.Second)
		typing, err := svc.CurrentlyTyping(ctx, channel)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob}, typing)
	})
}

func TestTypingService_StoreOutage(t *testing.T) {
	ctx := context.Background()
	store := newMemTyping()
	store.err = errStoreDown
	svc := NewTypingService(store, discardLogger())

	err := svc.StartTyping(ctx, uuid.New(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))

	_, err = svc.CurrentlyTyping(ctx, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestTypingService_Batch(t *testing.T) {
	ctx := context.Background()
	chA := uuid.New()
	chB := uuid.New()
	chC := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	store := newMemTyping()
	svc := NewTypingService(store, discardLogger())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.StartTyping(ctx, chA, alice))
	require.NoError(t, svc.StartTyping(ctx, chB, bob))

	byChannel, err := svc.CurrentlyTypingBatch(ctx, []uuid.UUID{chA, chB, chC})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice}, byChannel[chA])
	assert.Equal(t, []uuid.UUID{bob}, byChannel[chB])
	assert.Empty(t, byChannel[chC])
}

func TestTypingService_Watch(t *testing.T) {
	channel := uuid.New()
	alice := uuid.New()

	store := newMemTyping()
	svc := NewTypingService(store, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	updates := svc.Watch(ctx, []uuid.UUID{channel}, 5*time.Millisecond)

	require.NoError(t, svc.StartTyping(ctx, channel, alice))

	select {
	case update := <-updates:
		assert.Equal(t, []uuid.UUID{alice}, update.Typing[channel])
	case <-time.After(time.Second):
		t.Fatal("no typing update")
	}

	// Cancellation tears the stream down.
	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("updates channel not closed after cancel")
		}
	}
}
