package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/vault"
)

// CredentialSource decrypts a user's stored session credential on demand.
// A missing identity maps to domain.ErrMissingCredential (a precondition,
// not a failure); a tampered blob surfaces domain.ErrIntegrity from the
// vault and is never downgraded.
type CredentialSource struct {
	identities ports.IdentityRepository
	vault      *vault.Vault
}

func NewCredentialSource(identities ports.IdentityRepository, v *vault.Vault) *CredentialSource {
	return &CredentialSource{identities: identities, vault: v}
}

// Token returns the decrypted session credential for a platform user.
func (c *CredentialSource) Token(ctx context.Context, userID string) (string, error) {
	identity, err := c.identities.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", fmt.Errorf("user %s: %w", userID, domain.ErrMissingCredential)
		}
		return "", fmt.Errorf("load identity for %s: %w", userID, err)
	}

	plaintext, err := c.vault.Decrypt(identity.EncryptedToken)
	if err != nil {
		return "", fmt.Errorf("decrypt credential for %s: %w", userID, err)
	}
	return string(plaintext), nil
}
