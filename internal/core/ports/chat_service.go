package ports

import (
	"context"

	"github.com/hireloop/chatsync/internal/core/domain"
)

// ProvisionIdentityInput carries the platform user details needed to create
// or recover a remote chat identity.
type ProvisionIdentityInput struct {
	UserID      string
	Email       string
	DisplayName string
}

// ProvisionRoomInput carries the owning entity details needed to create its
// chat room.
type ProvisionRoomInput struct {
	EntityID      string
	EntityKind    domain.EntityKind
	Title         string
	Topic         string
	CreatorUserID string
}

// SyncMembershipInput is one observed application status transition. The
// caller supplies both the previous and new status so the synchronizer can
// derive the direction from this transition alone.
type SyncMembershipInput struct {
	EntityKind     domain.EntityKind
	EntityID       string
	UserID         string
	PreviousStatus domain.ApplicationStatus
	NewStatus      domain.ApplicationStatus
	// Deleted marks the application record as destroyed; NewStatus is
	// ignored in that case.
	Deleted bool
	Reason  string
	// EventID is the caller's delivery identifier, used to skip transitions
	// that were already applied on a redelivery. Optional.
	EventID string
}

// Transition converts the input into a domain status transition.
func (in SyncMembershipInput) Transition() domain.StatusTransition {
	return domain.StatusTransition{
		Previous: in.PreviousStatus,
		Current:  in.NewStatus,
		Deleted:  in.Deleted,
	}
}

// IdentityProvisioner creates or recovers a remote identity plus session
// credential for a platform user. Errors propagate to the caller; the
// boundary facade is where they become soft failures.
type IdentityProvisioner interface {
	Provision(ctx context.Context, input ProvisionIdentityInput) (*domain.ChatIdentity, error)
}

// RoomProvisioner creates the remote room for an owning entity exactly once.
type RoomProvisioner interface {
	Provision(ctx context.Context, input ProvisionRoomInput) (*domain.ChatRoom, error)
}

// MembershipSynchronizer converts a status transition into remote membership
// mutations.
type MembershipSynchronizer interface {
	Sync(ctx context.Context, input SyncMembershipInput) error
}

// ChatSyncService is the boundary the platform's domain services call. Every
// method is a soft operation: internal failures are logged and swallowed so
// the initiating domain transaction always succeeds regardless of outcome.
//
// A no-op implementation is selected at startup when the chat backend is not
// configured, so call sites never nil-check.
type ChatSyncService interface {
	ProvisionIdentity(ctx context.Context, input ProvisionIdentityInput)
	ProvisionRoom(ctx context.Context, input ProvisionRoomInput)
	SyncMembership(ctx context.Context, input SyncMembershipInput)
	// Enabled reports whether a chat backend is configured. Informational
	// only; calling any method on a disabled service is safe.
	Enabled() bool
}
