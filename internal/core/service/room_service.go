package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
)

// roomClient is the subset of the matrix client used for room provisioning.
type roomClient interface {
	FullAlias(localAlias string) string
	CreateRoom(ctx context.Context, accessToken string, request matrix.CreateRoomRequest) (*matrix.CreateRoomResponse, error)
}

// RoomService creates the remote room for an owning entity exactly once.
// The existence check runs against the local repository, never the remote
// system: remote room creation is not idempotent, so once a remote room id
// is recorded the creation call is never issued again.
type RoomService struct {
	rooms       ports.RoomRepository
	client      roomClient
	executor    *matrix.Executor
	credentials *CredentialSource
	log         zerolog.Logger
}

func NewRoomService(
	rooms ports.RoomRepository,
	client roomClient,
	executor *matrix.Executor,
	credentials *CredentialSource,
	log zerolog.Logger,
) *RoomService {
	return &RoomService{
		rooms:       rooms,
		client:      client,
		executor:    executor,
		credentials: credentials,
		log:         log,
	}
}

// Provision creates the entity's room using the creator's session
// credential. The alias is derived deterministically from the entity id so
// a replay against the remote system conflicts predictably instead of
// silently duplicating. Organizations are created without an alias.
func (s *RoomService) Provision(ctx context.Context, input ports.ProvisionRoomInput) (*domain.ChatRoom, error) {
	if !input.EntityKind.Valid() {
		return nil, fmt.Errorf("provision room: %w: %q", domain.ErrInvalidEntityKind, input.EntityKind)
	}

	existing, err := s.rooms.FindByEntity(ctx, input.EntityKind, input.EntityID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, fmt.Errorf("provision room: %w", err)
	}

	creatorToken, err := s.credentials.Token(ctx, input.CreatorUserID)
	if err != nil {
		return nil, fmt.Errorf("provision room for %s %s: %w", input.EntityKind, input.EntityID, err)
	}

	request := matrix.CreateRoomRequest{
		Name:       input.Title,
		Topic:      input.Topic,
		Visibility: "public",
		Preset:     "public_chat",
	}
	var alias string
	if input.EntityKind == domain.KindJob {
		request.Alias = RoomAlias(input.EntityKind, input.EntityID)
		alias = s.client.FullAlias(request.Alias)
	}

	var response *matrix.CreateRoomResponse
	err = s.executor.Do(ctx, "create_room", func(ctx context.Context) error {
		var createErr error
		response, createErr = s.client.CreateRoom(ctx, creatorToken, request)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("provision room for %s %s: %w", input.EntityKind, input.EntityID, err)
	}

	room := &domain.ChatRoom{
		EntityID:      input.EntityID,
		EntityKind:    input.EntityKind,
		RemoteRoomID:  response.RoomID,
		RemoteAlias:   alias,
		CreatorUserID: input.CreatorUserID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, domain.ErrRoomExists) {
			// Lost a race with a concurrent provision. The stored row
			// wins; the freshly created remote room is orphaned, which is
			// the predictable-conflict trade-off of the local guard.
			return s.rooms.FindByEntity(ctx, input.EntityKind, input.EntityID)
		}
		return nil, fmt.Errorf("provision room for %s %s: %w", input.EntityKind, input.EntityID, err)
	}

	s.log.Info().
		Str("entity_kind", string(input.EntityKind)).
		Str("entity_id", input.EntityID).
		Str("remote_room_id", response.RoomID).
		Str("alias", alias).
		Msg("chat room provisioned")

	return room, nil
}

// RoomAlias derives the deterministic local alias part for an entity.
func RoomAlias(kind domain.EntityKind, entityID string) string {
	prefix := "org"
	if kind == domain.KindJob {
		prefix = "job"
	}
	return prefix + "-" + Localpart(entityID)
}
