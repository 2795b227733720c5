package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/store"
)

// Vault encrypts a principal's raw API key for at-rest storage on the
// principal record and decrypts it on demand. This path exists so a
// principal can later present its own key to a third party; it is never
// consulted during primary authentication.
//
// Operational note: blobs are bound to the master key active when they were
// written. Rotating the master key makes existing blobs permanently
// undecryptable; there is no re-encryption migration.
type Vault struct {
	cipher *crypto.Cipher
	store  *store.Store
	logger *slog.Logger
}

// NewVault creates a credential vault using the given cipher and store.
func NewVault(cipher *crypto.Cipher, st *store.Store, logger *slog.Logger) *Vault {
	return &Vault{cipher: cipher, store: st, logger: logger}
}

// Store encrypts rawKey under the master key and persists it on the
// principal record. Fails with ErrCredentialUpdate on any crypto or
// persistence failure; the stored record is unchanged on failure since the
// write is a single UPDATE.
func (v *Vault) Store(ctx context.Context, principal *model.Principal, rawKey string) error {
	encrypted, err := v.cipher.Encrypt(rawKey)
	if err != nil {
		return fmt.Errorf("%w: encrypt: %v", ErrCredentialUpdate, err)
	}
	if err := v.store.UpdatePrincipalAPIKey(ctx, principal.ID, encrypted); err != nil {
		return fmt.Errorf("%w: persist: %v", ErrCredentialUpdate, err)
	}
	principal.EncryptedAPIKey = encrypted
	v.logger.Info("encrypted api key stored", "principal_id", principal.ID)
	return nil
}

// Reveal decrypts and returns the principal's stored API key. Returns empty
// with no error when no key is set, and ErrCredential when decryption fails
// (for example after a master key rotation).
func (v *Vault) Reveal(ctx context.Context, principal *model.Principal) (string, error) {
	if principal.EncryptedAPIKey == "" {
		return "", nil
	}
	plaintext, err := v.cipher.Decrypt(principal.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredential, err)
	}
	return plaintext, nil
}
