package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/store"
)

const (
	// rawKeyTag marks raw keys so they are recognizable in configuration
	// and support tickets without revealing anything about their value.
	rawKeyTag = "kf_"

	// keyPrefixLen is how many leading characters of the raw key are
	// stored in clear for candidate lookup. The remainder of the key is
	// only ever compared through its bcrypt hash.
	keyPrefixLen = 12
)

// Manager issues opaque API keys and resolves presented raw keys back to
// their owning principal.
type Manager struct {
	store  *store.Store
	logger *slog.Logger
}

// NewManager creates an API key manager backed by the given store.
func NewManager(st *store.Store, logger *slog.Logger) *Manager {
	return &Manager{store: st, logger: logger}
}

// Issue generates a new high-entropy raw key for the principal, persists a
// hashed record expiring six months from now, and returns the raw key. The
// raw key is returned exactly this once; it is never stored or logged.
// Previously issued keys stay live; there is no revoke-on-reissue.
func (m *Manager) Issue(ctx context.Context, principal *model.Principal) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := rawKeyTag + base64.RawURLEncoding.EncodeToString(raw)

	hash, err := crypto.HashSecret(rawKey)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}

	now := time.Now().UTC()
	key := &model.APIKey{
		KeyHash:     hash,
		KeyPrefix:   rawKey[:keyPrefixLen],
		PrincipalID: principal.ID,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 6, 0),
	}
	if err := m.store.CreateAPIKey(ctx, key); err != nil {
		return "", fmt.Errorf("persist api key: %w", err)
	}

	m.logger.Info("api key issued",
		"principal_id", principal.ID,
		"key_prefix", key.KeyPrefix,
		"expires_at", key.ExpiresAt,
	)
	return rawKey, nil
}

// Resolve returns the principal owning rawKey, or ErrKeyNotFound when the
// key is blank, unknown, or expired. The stored prefix only narrows the
// candidate set; the authoritative match is the bcrypt comparison, never a
// plaintext equality check.
func (m *Manager) Resolve(ctx context.Context, rawKey string) (*model.Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if len(rawKey) < keyPrefixLen {
		return nil, ErrKeyNotFound
	}

	now := time.Now()
	candidates, err := m.store.ListLiveAPIKeysByPrefix(ctx, rawKey[:keyPrefixLen], now)
	if err != nil {
		return nil, fmt.Errorf("load key candidates: %w", err)
	}

	for i := range candidates {
		// The store already filters on expiry; re-check here so a match
		// can never be produced from an expired record.
		if candidates[i].Expired(now) {
			continue
		}
		if !crypto.VerifySecret(rawKey, candidates[i].KeyHash) {
			continue
		}
		p, err := m.store.GetPrincipal(ctx, candidates[i].PrincipalID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Orphaned key record; keep scanning.
				continue
			}
			return nil, fmt.Errorf("load key owner: %w", err)
		}
		return p, nil
	}
	return nil, ErrKeyNotFound
}
