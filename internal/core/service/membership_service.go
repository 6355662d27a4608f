package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
)

// membershipClient is the subset of the matrix client used for membership
// mutations.
type membershipClient interface {
	InviteUser(ctx context.Context, accessToken, roomID, userID string) error
	KickUser(ctx context.Context, accessToken, roomID, userID, reason string) error
}

// MembershipService maps application status transitions onto remote
// invite/kick operations. Invites act as the room creator (who must hold
// invite rights as a participant); removals act as the administrative
// credential so they succeed even if the creator has since left the room.
//
// The service trusts the caller's previous-status bookkeeping and does not
// verify remote membership before acting. A dropped transition leaves no
// durable record to retry; membership intents are transient by contract.
type MembershipService struct {
	rooms       ports.RoomRepository
	identities  ports.IdentityRepository
	credentials *CredentialSource
	client      membershipClient
	executor    *matrix.Executor
	marker      ports.TransitionMarker
	adminToken  string
	log         zerolog.Logger
}

func NewMembershipService(
	rooms ports.RoomRepository,
	identities ports.IdentityRepository,
	credentials *CredentialSource,
	client membershipClient,
	executor *matrix.Executor,
	marker ports.TransitionMarker,
	adminToken string,
	log zerolog.Logger,
) *MembershipService {
	return &MembershipService{
		rooms:       rooms,
		identities:  identities,
		credentials: credentials,
		client:      client,
		executor:    executor,
		marker:      marker,
		adminToken:  adminToken,
		log:         log,
	}
}

// Sync applies the membership change implied by one status transition.
// Missing room or identity is a no-op: there is nothing to synchronize yet.
func (s *MembershipService) Sync(ctx context.Context, input ports.SyncMembershipInput) error {
	desired, changed := input.Transition().Desired()
	if !changed {
		s.log.Debug().
			Str("entity_id", input.EntityID).
			Str("user_id", input.UserID).
			Str("previous", string(input.PreviousStatus)).
			Str("new", string(input.NewStatus)).
			Msg("transition implies no membership change")
		return nil
	}

	// Redelivery guard, keyed by the caller's event id when supplied.
	// Advisory: a marker failure never blocks the transition.
	if input.EventID != "" {
		applied, err := s.marker.IsApplied(ctx, input.EventID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", input.EventID).Msg("transition marker check failed, applying anyway")
		} else if applied {
			s.log.Debug().Str("event_id", input.EventID).Msg("transition already applied, skipping")
			return nil
		}
	}

	room, err := s.rooms.FindByEntity(ctx, input.EntityKind, input.EntityID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.log.Debug().Str("entity_id", input.EntityID).Msg("no room recorded yet, nothing to synchronize")
			return nil
		}
		return fmt.Errorf("sync membership: %w", err)
	}

	identity, err := s.identities.FindByUserID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			s.log.Debug().Str("user_id", input.UserID).Msg("no identity recorded yet, nothing to synchronize")
			return nil
		}
		return fmt.Errorf("sync membership: %w", err)
	}

	switch desired {
	case domain.MembershipMember:
		err = s.invite(ctx, room, identity)
	case domain.MembershipNonMember:
		err = s.remove(ctx, room, identity, input.Reason)
	}
	if err != nil {
		return fmt.Errorf("sync membership for %s in %s %s: %w",
			input.UserID, input.EntityKind, input.EntityID, err)
	}

	if input.EventID != "" {
		if err := s.marker.MarkApplied(ctx, input.EventID); err != nil {
			s.log.Warn().Err(err).Str("event_id", input.EventID).Msg("failed to mark transition applied")
		}
	}

	s.log.Info().
		Str("entity_kind", string(input.EntityKind)).
		Str("entity_id", input.EntityID).
		Str("user_id", input.UserID).
		Str("desired", string(desired)).
		Msg("membership synchronized")

	return nil
}

// invite adds the user to the room as the room creator.
func (s *MembershipService) invite(ctx context.Context, room *domain.ChatRoom, identity *domain.ChatIdentity) error {
	creatorToken, err := s.credentials.Token(ctx, room.CreatorUserID)
	if err != nil {
		return err
	}

	err = s.executor.Do(ctx, "invite", func(ctx context.Context) error {
		return s.client.InviteUser(ctx, creatorToken, room.RemoteRoomID, identity.RemoteUserID)
	})
	if isAlreadyMember(err) {
		s.log.Debug().Str("remote_user_id", identity.RemoteUserID).Msg("already in the room")
		return nil
	}
	return err
}

// remove kicks the user from the room with the administrative credential.
func (s *MembershipService) remove(ctx context.Context, room *domain.ChatRoom, identity *domain.ChatIdentity, reason string) error {
	if reason == "" {
		reason = "membership revoked"
	}
	err := s.executor.Do(ctx, "kick", func(ctx context.Context) error {
		return s.client.KickUser(ctx, s.adminToken, room.RemoteRoomID, identity.RemoteUserID, reason)
	})
	if isAlreadyAbsent(err) {
		s.log.Debug().Str("remote_user_id", identity.RemoteUserID).Msg("already absent from the room")
		return nil
	}
	return err
}

// isAlreadyMember recognizes the homeserver's answer to inviting a user who
// is already joined or invited, in which case the desired state holds.
func isAlreadyMember(err error) bool {
	if err == nil {
		return false
	}
	var matrixErr *matrix.Error
	if !errors.As(err, &matrixErr) || matrixErr.Code != matrix.ErrCodeForbidden {
		return false
	}
	message := strings.ToLower(matrixErr.Message)
	return strings.Contains(message, "already in the room") || strings.Contains(message, "already invited")
}

// isAlreadyAbsent recognizes the homeserver's answer to kicking a user who
// is not in the room.
func isAlreadyAbsent(err error) bool {
	if err == nil {
		return false
	}
	var matrixErr *matrix.Error
	if !errors.As(err, &matrixErr) {
		return false
	}
	if matrixErr.Code == matrix.ErrCodeNotFound {
		return true
	}
	return matrixErr.Code == matrix.ErrCodeForbidden &&
		strings.Contains(strings.ToLower(matrixErr.Message), "not in the room")
}
