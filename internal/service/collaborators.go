package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
)

// ProfileDirectory is the identity subsystem. The core reads display names
// for membership snapshots and never writes back.
type ProfileDirectory interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error)
}

// AlertSource is the notification subsystem's contribution to the combined
// badge: the count of unacknowledged recipient records it owns.
type AlertSource interface {
	UnacknowledgedCount(ctx context.Context, profileID uuid.UUID) (int, error)
}

// EventPublisher fans change notifications out to the real-time bus.
// Publishing happens after the mutation is durable and never fails the call.
type EventPublisher interface {
	MessageInserted(channelID uuid.UUID)
	MembershipUpdated(channelID uuid.UUID)
}

// displayNames resolves snapshot names for a set of users, falling back to
// an empty string for ids the directory does not know.
func displayNames(ctx context.Context, dir ProfileDirectory, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	profiles, err := dir.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		names[id] = profiles[id].DisplayName
	}
	return names, nil
}
