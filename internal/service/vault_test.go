package service

import (
	"context"
	"errors"
	"testing"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/store"
)

func newTestCipher(t *testing.T, key string) *crypto.Cipher {
	t.Helper()
	c, err := crypto.NewCipher([]byte(key))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestVaultStoreAndReveal(t *testing.T) {
	st := newTestStore(t)
	v := NewVault(newTestCipher(t, "0123456789abcdef0123456789abcdef"), st, discardLogger())
	ctx := context.Background()

	alice := createPrincipal(t, st, "alice")

	if err := v.Store(ctx, alice, "kf_myexternalkey"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if alice.EncryptedAPIKey == "" {
		t.Fatal("expected encrypted blob on principal after Store")
	}
	if alice.EncryptedAPIKey == "kf_myexternalkey" {
		t.Fatal("blob stored in plaintext")
	}

	revealed, err := v.Reveal(ctx, alice)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if revealed != "kf_myexternalkey" {
		t.Errorf("revealed %q, want %q", revealed, "kf_myexternalkey")
	}

	// The blob survives a fresh load from the store.
	reloaded, err := st.GetPrincipal(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetPrincipal: %v", err)
	}
	revealed, err = v.Reveal(ctx, reloaded)
	if err != nil {
		t.Fatalf("Reveal after reload: %v", err)
	}
	if revealed != "kf_myexternalkey" {
		t.Errorf("revealed %q after reload, want %q", revealed, "kf_myexternalkey")
	}
}

func TestVaultRevealNoKeySet(t *testing.T) {
	st := newTestStore(t)
	v := NewVault(newTestCipher(t, "0123456789abcdef0123456789abcdef"), st, discardLogger())

	alice := createPrincipal(t, st, "alice")

	revealed, err := v.Reveal(context.Background(), alice)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if revealed != "" {
		t.Errorf("expected empty reveal for unset key, got %q", revealed)
	}
}

func TestVaultRevealAfterMasterKeyChange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createPrincipal(t, st, "alice")

	old := NewVault(newTestCipher(t, "0123456789abcdef0123456789abcdef"), st, discardLogger())
	if err := old.Store(ctx, alice, "kf_myexternalkey"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// A vault under a rotated master key cannot decrypt the old blob.
	rotated := NewVault(newTestCipher(t, "fedcba9876543210fedcba9876543210"), st, discardLogger())
	if _, err := rotated.Reveal(ctx, alice); !errors.Is(err, ErrCredential) {
		t.Errorf("expected ErrCredential after master key change, got %v", err)
	}
}

func TestVaultStoreUnknownPrincipal(t *testing.T) {
	st := newTestStore(t)
	v := NewVault(newTestCipher(t, "0123456789abcdef0123456789abcdef"), st, discardLogger())

	ghost := &model.Principal{ID: 999, Username: "ghost"}
	err := v.Store(context.Background(), ghost, "kf_somekey")
	if !errors.Is(err, ErrCredentialUpdate) {
		t.Errorf("expected ErrCredentialUpdate for unknown principal, got %v", err)
	}
	if ghost.EncryptedAPIKey != "" {
		t.Error("principal mutated despite failed store")
	}

	// Nothing was written.
	if _, err := st.GetPrincipal(context.Background(), 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVaultStoreOverwrites(t *testing.T) {
	st := newTestStore(t)
	v := NewVault(newTestCipher(t, "0123456789abcdef0123456789abcdef"), st, discardLogger())
	ctx := context.Background()

	alice := createPrincipal(t, st, "alice")

	if err := v.Store(ctx, alice, "first-key"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := v.Store(ctx, alice, "second-key"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	revealed, err := v.Reveal(ctx, alice)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if revealed != "second-key" {
		t.Errorf("revealed %q, want %q", revealed, "second-key")
	}
}
