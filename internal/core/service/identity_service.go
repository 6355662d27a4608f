package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
	"github.com/hireloop/chatsync/internal/vault"
)

// accountClient is the subset of the matrix client used for identity
// provisioning.
type accountClient interface {
	UserID(localpart string) string
	RegisterAccount(ctx context.Context, username, password string) error
	UpsertAccount(ctx context.Context, adminToken, userID, password, displayName string) error
	Login(ctx context.Context, username, password string) (*matrix.AuthResponse, error)
	SetDisplayName(ctx context.Context, accessToken, userID, displayName string) error
}

// IdentityService creates or recovers remote chat identities. Errors
// propagate; swallowing happens one layer up at the boundary facade.
type IdentityService struct {
	identities ports.IdentityRepository
	client     accountClient
	executor   *matrix.Executor
	vault      *vault.Vault
	adminToken string
	log        zerolog.Logger
}

func NewIdentityService(
	identities ports.IdentityRepository,
	client accountClient,
	executor *matrix.Executor,
	v *vault.Vault,
	adminToken string,
	log zerolog.Logger,
) *IdentityService {
	return &IdentityService{
		identities: identities,
		client:     client,
		executor:   executor,
		vault:      v,
		adminToken: adminToken,
		log:        log,
	}
}

// Provision returns the user's chat identity, creating the remote account
// and session credential when none exists yet. Safe to call on every user
// creation attempt: an existing row is returned as-is, and a remote account
// conflict is recovered by resetting its secret through the admin API so the
// outcome is indistinguishable from fresh creation.
func (s *IdentityService) Provision(ctx context.Context, input ports.ProvisionIdentityInput) (*domain.ChatIdentity, error) {
	existing, err := s.identities.FindByUserID(ctx, input.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("provision identity: %w", err)
	}

	localpart := Localpart(input.Email)
	if localpart == "" {
		return nil, fmt.Errorf("provision identity: no usable localpart in %q", input.Email)
	}
	remoteUserID := s.client.UserID(localpart)

	// Bootstrap secret for the remote account. Never shown to the end
	// user; its only purpose is the login exchange below.
	secret, err := bootstrapSecret()
	if err != nil {
		return nil, fmt.Errorf("provision identity: %w", err)
	}

	recovered := false
	err = s.executor.Do(ctx, "register_account", func(ctx context.Context) error {
		return s.client.RegisterAccount(ctx, localpart, secret)
	})
	if matrix.IsCode(err, matrix.ErrCodeUserInUse) {
		// Account recovery: the remote account exists but we hold no
		// credential for it. Reset its secret and display name via the
		// admin API, then log in as if freshly created.
		recovered = true
		err = s.executor.Do(ctx, "reset_account", func(ctx context.Context) error {
			return s.client.UpsertAccount(ctx, s.adminToken, remoteUserID, secret, input.DisplayName)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("provision identity for %s: %w", input.UserID, err)
	}

	var auth *matrix.AuthResponse
	err = s.executor.Do(ctx, "login", func(ctx context.Context) error {
		var loginErr error
		auth, loginErr = s.client.Login(ctx, localpart, secret)
		return loginErr
	})
	if err != nil {
		return nil, fmt.Errorf("provision identity for %s: %w", input.UserID, err)
	}

	if !recovered && input.DisplayName != "" {
		// Fresh registrations carry no profile yet; recovery already set
		// the display name through the admin upsert. Non-fatal.
		if err := s.client.SetDisplayName(ctx, auth.AccessToken, auth.UserID, input.DisplayName); err != nil {
			s.log.Warn().Err(err).Str("user_id", input.UserID).Msg("failed to set display name")
		}
	}

	encrypted, err := s.vault.Encrypt([]byte(auth.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("provision identity for %s: %w", input.UserID, err)
	}

	identity := &domain.ChatIdentity{
		UserID:         input.UserID,
		RemoteUserID:   auth.UserID,
		EncryptedToken: encrypted,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			// Lost a race with a concurrent provision; the stored row wins.
			return s.identities.FindByUserID(ctx, input.UserID)
		}
		return nil, fmt.Errorf("provision identity for %s: %w", input.UserID, err)
	}

	s.log.Info().
		Str("user_id", input.UserID).
		Str("remote_user_id", auth.UserID).
		Bool("recovered", recovered).
		Msg("chat identity provisioned")

	return identity, nil
}

// Localpart normalizes an identifier into a remote-compatible localpart:
// lowercase, with every run of non-alphanumeric characters collapsed to a
// single dot and no leading or trailing dot.
func Localpart(identifier string) string {
	var b strings.Builder
	pendingDot := false
	for _, r := range strings.ToLower(identifier) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
			continue
		}
		pendingDot = true
	}
	return b.String()
}

// bootstrapSecret returns a fresh 32-byte random secret, hex encoded.
func bootstrapSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate bootstrap secret: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
