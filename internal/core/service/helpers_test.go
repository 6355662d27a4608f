package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/matrix"
	"github.com/hireloop/chatsync/internal/vault"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	byUserID   map[string]*domain.ChatIdentity
	findErr    error
	createErr  error
	createHook func() error
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byUserID: make(map[string]*domain.ChatIdentity)}
}

func (r *stubIdentityRepo) FindByUserID(_ context.Context, userID string) (*domain.ChatIdentity, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	identity, ok := r.byUserID[userID]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return identity, nil
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.ChatIdentity) error {
	if r.createHook != nil {
		return r.createHook()
	}
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.byUserID[identity.UserID]; ok {
		return domain.ErrIdentityExists
	}
	r.byUserID[identity.UserID] = identity
	return nil
}

type stubRoomRepo struct {
	byEntity  map[string]*domain.ChatRoom
	createErr error
}

func newStubRoomRepo() *stubRoomRepo {
	return &stubRoomRepo{byEntity: make(map[string]*domain.ChatRoom)}
}

func entityKey(kind domain.EntityKind, entityID string) string {
	return string(kind) + "/" + entityID
}

func (r *stubRoomRepo) FindByEntity(_ context.Context, kind domain.EntityKind, entityID string) (*domain.ChatRoom, error) {
	room, ok := r.byEntity[entityKey(kind, entityID)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (r *stubRoomRepo) Create(_ context.Context, room *domain.ChatRoom) error {
	if r.createErr != nil {
		return r.createErr
	}
	key := entityKey(room.EntityKind, room.EntityID)
	if _, ok := r.byEntity[key]; ok {
		return domain.ErrRoomExists
	}
	r.byEntity[key] = room
	return nil
}

type stubMarker struct {
	applied  map[string]bool
	checkErr error
	markErr  error
}

func newStubMarker() *stubMarker {
	return &stubMarker{applied: make(map[string]bool)}
}

func (m *stubMarker) IsApplied(_ context.Context, key string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.applied[key], nil
}

func (m *stubMarker) MarkApplied(_ context.Context, key string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.applied[key] = true
	return nil
}

// call records one remote operation performed through the stub client.
type call struct {
	op     string // "register", "upsert", "login", "create_room", "invite", "kick", "send", "messages"
	token  string
	roomID string
	userID string
	reason string
}

// stubMatrixClient implements the account, room, membership, and message
// client subsets with scriptable failures.
type stubMatrixClient struct {
	calls []call

	registerErr   error
	upsertErr     error
	loginErr      error
	createRoomErr error
	inviteErrs    []error // popped per invite call; nil entry means success
	kickErrs      []error
	sendErr       error
	messagesErr   error

	roomID   string
	messages *matrix.RoomMessagesResponse
}

func (c *stubMatrixClient) UserID(localpart string) string {
	return "@" + localpart + ":test.local"
}

func (c *stubMatrixClient) FullAlias(localAlias string) string {
	return "#" + localAlias + ":test.local"
}

func (c *stubMatrixClient) RegisterAccount(_ context.Context, username, _ string) error {
	c.calls = append(c.calls, call{op: "register", userID: username})
	return c.registerErr
}

func (c *stubMatrixClient) UpsertAccount(_ context.Context, adminToken, userID, _, _ string) error {
	c.calls = append(c.calls, call{op: "upsert", token: adminToken, userID: userID})
	return c.upsertErr
}

func (c *stubMatrixClient) Login(_ context.Context, username, _ string) (*matrix.AuthResponse, error) {
	c.calls = append(c.calls, call{op: "login", userID: username})
	if c.loginErr != nil {
		return nil, c.loginErr
	}
	return &matrix.AuthResponse{
		UserID:      c.UserID(username),
		AccessToken: "syt_" + username,
	}, nil
}

func (c *stubMatrixClient) SetDisplayName(_ context.Context, _, _, _ string) error {
	return nil
}

func (c *stubMatrixClient) CreateRoom(_ context.Context, accessToken string, request matrix.CreateRoomRequest) (*matrix.CreateRoomResponse, error) {
	c.calls = append(c.calls, call{op: "create_room", token: accessToken, roomID: request.Alias})
	if c.createRoomErr != nil {
		return nil, c.createRoomErr
	}
	roomID := c.roomID
	if roomID == "" {
		roomID = "!room:test.local"
	}
	return &matrix.CreateRoomResponse{RoomID: roomID}, nil
}

func (c *stubMatrixClient) InviteUser(_ context.Context, accessToken, roomID, userID string) error {
	c.calls = append(c.calls, call{op: "invite", token: accessToken, roomID: roomID, userID: userID})
	return c.pop(&c.inviteErrs)
}

func (c *stubMatrixClient) KickUser(_ context.Context, accessToken, roomID, userID, reason string) error {
	c.calls = append(c.calls, call{op: "kick", token: accessToken, roomID: roomID, userID: userID, reason: reason})
	return c.pop(&c.kickErrs)
}

func (c *stubMatrixClient) SendMessage(_ context.Context, accessToken, roomID string, _ matrix.MessageContent, txnID string) (string, error) {
	c.calls = append(c.calls, call{op: "send", token: accessToken, roomID: roomID, userID: txnID})
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return "$event:test.local", nil
}

func (c *stubMatrixClient) RoomMessages(_ context.Context, accessToken, roomID string, _ matrix.RoomMessagesOptions) (*matrix.RoomMessagesResponse, error) {
	c.calls = append(c.calls, call{op: "messages", token: accessToken, roomID: roomID})
	if c.messagesErr != nil {
		return nil, c.messagesErr
	}
	if c.messages != nil {
		return c.messages, nil
	}
	return &matrix.RoomMessagesResponse{}, nil
}

func (c *stubMatrixClient) pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (c *stubMatrixClient) ops() []string {
	ops := make([]string, 0, len(c.calls))
	for _, call := range c.calls {
		ops = append(ops, call.op)
	}
	return ops
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, vault.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	v, err := vault.New(key)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	return v
}

func instantExecutor() *matrix.Executor {
	return matrix.NewExecutor(matrix.RetryPolicy{BaseDelay: 1}, zerolog.Nop())
}

// seedIdentity stores an identity with an encrypted token for userID.
func seedIdentity(t *testing.T, repo *stubIdentityRepo, v *vault.Vault, userID, remoteUserID, token string) {
	t.Helper()
	encrypted, err := v.Encrypt([]byte(token))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	repo.byUserID[userID] = &domain.ChatIdentity{
		UserID:         userID,
		RemoteUserID:   remoteUserID,
		EncryptedToken: encrypted,
	}
}

func seedRoom(repo *stubRoomRepo, kind domain.EntityKind, entityID, remoteRoomID, creatorUserID string) *domain.ChatRoom {
	room := &domain.ChatRoom{
		EntityID:      entityID,
		EntityKind:    kind,
		RemoteRoomID:  remoteRoomID,
		CreatorUserID: creatorUserID,
	}
	repo.byEntity[entityKey(kind, entityID)] = room
	return room
}

func assertOps(t *testing.T, client *stubMatrixClient, want ...string) {
	t.Helper()
	got := client.ops()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("remote calls = %v, want %v", got, want)
	}
}
