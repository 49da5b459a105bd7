package domain

import "github.com/google/uuid"

// Profile is the slice of the identity subsystem the messaging core reads.
// Only the display name is copied into memberships as a snapshot; everything
// else stays owned by the identity store.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Role        string    `json:"role,omitempty"`
}
