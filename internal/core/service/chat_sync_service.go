package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/api/metrics"
	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// ChatSyncService is the failure isolation boundary: every public entry
// point catches internal errors, logs them with the operation kind and
// owning entity id, and returns without effect. The initiating domain
// transaction always succeeds regardless of this subsystem's outcome.
//
// domain.ErrIntegrity is the one security-relevant case: it is logged at
// error level with an explicit marker, but even it never escapes to the
// caller; it only fails the credential-consuming operation it occurred in.
type ChatSyncService struct {
	identities  ports.IdentityProvisioner
	rooms       ports.RoomProvisioner
	memberships ports.MembershipSynchronizer
	log         zerolog.Logger
}

var _ ports.ChatSyncService = (*ChatSyncService)(nil)

func NewChatSyncService(
	identities ports.IdentityProvisioner,
	rooms ports.RoomProvisioner,
	memberships ports.MembershipSynchronizer,
	log zerolog.Logger,
) *ChatSyncService {
	return &ChatSyncService{
		identities:  identities,
		rooms:       rooms,
		memberships: memberships,
		log:         log,
	}
}

func (s *ChatSyncService) Enabled() bool { return true }

func (s *ChatSyncService) ProvisionIdentity(ctx context.Context, input ports.ProvisionIdentityInput) {
	if _, err := s.identities.Provision(ctx, input); err != nil {
		s.soften("provision_identity", input.UserID, err)
		return
	}
	metrics.SyncOperationsTotal.WithLabelValues("provision_identity").Inc()
}

func (s *ChatSyncService) ProvisionRoom(ctx context.Context, input ports.ProvisionRoomInput) {
	if _, err := s.rooms.Provision(ctx, input); err != nil {
		s.soften("provision_room", input.EntityID, err)
		return
	}
	metrics.SyncOperationsTotal.WithLabelValues("provision_room").Inc()
}

func (s *ChatSyncService) SyncMembership(ctx context.Context, input ports.SyncMembershipInput) {
	if err := s.memberships.Sync(ctx, input); err != nil {
		s.soften("sync_membership", input.EntityID, err)
		return
	}
	metrics.SyncOperationsTotal.WithLabelValues("sync_membership").Inc()
}

// soften converts an internal failure into a logged soft failure.
func (s *ChatSyncService) soften(operation, entityID string, err error) {
	metrics.SoftFailuresTotal.WithLabelValues(operation).Inc()

	event := s.log.Warn()
	if errors.Is(err, domain.ErrIntegrity) {
		// Tampered credential or wrong vault key. Loud, but still soft:
		// unrelated domain transactions must not be aborted by it.
		event = s.log.Error().Bool("integrity_violation", true)
	}
	event.
		Err(err).
		Str("operation", operation).
		Str("entity_id", entityID).
		Msg("chat synchronization failed, continuing without effect")
}

// NoopChatSyncService is selected at startup when no chat backend is
// configured. All operations succeed without effect.
type NoopChatSyncService struct {
	log zerolog.Logger
}

var _ ports.ChatSyncService = (*NoopChatSyncService)(nil)

func NewNoopChatSyncService(log zerolog.Logger) *NoopChatSyncService {
	return &NoopChatSyncService{log: log}
}

func (s *NoopChatSyncService) Enabled() bool { return false }

func (s *NoopChatSyncService) ProvisionIdentity(_ context.Context, input ports.ProvisionIdentityInput) {
	s.log.Debug().Str("user_id", input.UserID).Msg("chat backend not configured, skipping identity provisioning")
}

func (s *NoopChatSyncService) ProvisionRoom(_ context.Context, input ports.ProvisionRoomInput) {
	s.log.Debug().Str("entity_id", input.EntityID).Msg("chat backend not configured, skipping room provisioning")
}

func (s *NoopChatSyncService) SyncMembership(_ context.Context, input ports.SyncMembershipInput) {
	s.log.Debug().Str("entity_id", input.EntityID).Msg("chat backend not configured, skipping membership sync")
}
