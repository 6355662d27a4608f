package ports

import (
	"context"

	"github.com/hireloop/chatsync/internal/core/domain"
)

// IdentityRepository persists chat identities. A user has at most one
// identity; Create surfaces domain.ErrIdentityExists on a duplicate.
type IdentityRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.ChatIdentity, error)
	Create(ctx context.Context, identity *domain.ChatIdentity) error
}

// RoomRepository persists chat rooms. An owning entity has at most one room;
// Create surfaces domain.ErrRoomExists on a duplicate.
type RoomRepository interface {
	FindByEntity(ctx context.Context, kind domain.EntityKind, entityID string) (*domain.ChatRoom, error)
	Create(ctx context.Context, room *domain.ChatRoom) error
}

// TransitionMarker records membership transitions that have already been
// applied, so a redelivered event is not applied twice. Marker failures are
// advisory: callers proceed without the marker rather than failing.
type TransitionMarker interface {
	IsApplied(ctx context.Context, key string) (bool, error)
	MarkApplied(ctx context.Context, key string) error
}
