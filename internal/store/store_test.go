package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyfold/keyfold/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(DriverSQLite, "")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestPrincipal(t *testing.T, s *Store, username string) *model.Principal {
	t.Helper()
	p := &model.Principal{Username: username, PasswordHash: "$2a$10$fakefakefakefakefakefake"}
	if err := s.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatalf("create principal %q: %v", username, err)
	}
	return p
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New("oracle", ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestCreateAndGetPrincipal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPrincipal(t, s, "alice")
	if p.ID == 0 {
		t.Fatal("expected ID to be populated after insert")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be populated after insert")
	}

	got, err := s.GetPrincipal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPrincipal: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username: got %q, want %q", got.Username, "alice")
	}

	got, err = s.GetPrincipalByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPrincipalByUsername: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("id: got %d, want %d", got.ID, p.ID)
	}
}

func TestGetPrincipalNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetPrincipal(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPrincipal: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPrincipalByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPrincipalByUsername: expected ErrNotFound, got %v", err)
	}
}

func TestCreatePrincipalDuplicate(t *testing.T) {
	s := newTestStore(t)

	createTestPrincipal(t, s, "alice")

	dup := &model.Principal{Username: "alice", PasswordHash: "other"}
	if err := s.CreatePrincipal(context.Background(), dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestListPrincipals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.ListPrincipals(ctx)
	if err != nil {
		t.Fatalf("ListPrincipals: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}

	createTestPrincipal(t, s, "carol")
	createTestPrincipal(t, s, "alice")
	createTestPrincipal(t, s, "bob")

	principals, err := s.ListPrincipals(ctx)
	if err != nil {
		t.Fatalf("ListPrincipals: %v", err)
	}
	if len(principals) != 3 {
		t.Fatalf("expected 3 principals, got %d", len(principals))
	}
	// Ordered by username.
	for i, want := range []string{"alice", "bob", "carol"} {
		if principals[i].Username != want {
			t.Errorf("position %d: got %q, want %q", i, principals[i].Username, want)
		}
	}
}

func TestHasAnyPrincipal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	has, err := s.HasAnyPrincipal(ctx)
	if err != nil {
		t.Fatalf("HasAnyPrincipal: %v", err)
	}
	if has {
		t.Error("expected no principals in fresh store")
	}

	createTestPrincipal(t, s, "alice")

	has, err = s.HasAnyPrincipal(ctx)
	if err != nil {
		t.Fatalf("HasAnyPrincipal: %v", err)
	}
	if !has {
		t.Error("expected principal to be counted")
	}
}

func TestUpdatePrincipalAPIKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPrincipal(t, s, "alice")

	if err := s.UpdatePrincipalAPIKey(ctx, p.ID, "encrypted-blob"); err != nil {
		t.Fatalf("UpdatePrincipalAPIKey: %v", err)
	}

	got, err := s.GetPrincipal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPrincipal: %v", err)
	}
	if got.EncryptedAPIKey != "encrypted-blob" {
		t.Errorf("encrypted key: got %q, want %q", got.EncryptedAPIKey, "encrypted-blob")
	}

	if err := s.UpdatePrincipalAPIKey(ctx, 999, "blob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing principal, got %v", err)
	}
}

func TestCreateAndListAPIKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPrincipal(t, s, "alice")
	now := time.Now().UTC()

	key := &model.APIKey{
		KeyHash:     "hash-1",
		KeyPrefix:   "kf_aaaaaaaaa",
		PrincipalID: p.ID,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 6, 0),
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if key.ID == 0 {
		t.Fatal("expected key ID to be populated")
	}

	keys, err := s.ListAPIKeysForPrincipal(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysForPrincipal: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].KeyHash != "hash-1" || keys[0].KeyPrefix != "kf_aaaaaaaaa" {
		t.Errorf("unexpected key record: %+v", keys[0])
	}
}

func TestListLiveAPIKeysByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPrincipal(t, s, "alice")
	now := time.Now().UTC()

	insert := func(hash, prefix string, expires time.Time) {
		t.Helper()
		key := &model.APIKey{
			KeyHash:     hash,
			KeyPrefix:   prefix,
			PrincipalID: p.ID,
			CreatedAt:   now,
			ExpiresAt:   expires,
		}
		if err := s.CreateAPIKey(ctx, key); err != nil {
			t.Fatalf("CreateAPIKey: %v", err)
		}
	}

	insert("live-1", "kf_aaaaaaaaa", now.AddDate(0, 6, 0))
	insert("live-2", "kf_aaaaaaaaa", now.AddDate(0, 3, 0))
	insert("expired", "kf_aaaaaaaaa", now.Add(-time.Hour))
	insert("other-prefix", "kf_bbbbbbbbb", now.AddDate(0, 6, 0))

	keys, err := s.ListLiveAPIKeysByPrefix(ctx, "kf_aaaaaaaaa", now)
	if err != nil {
		t.Fatalf("ListLiveAPIKeysByPrefix: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 live keys, got %d", len(keys))
	}
	for _, k := range keys {
		if k.KeyHash == "expired" {
			t.Error("expired key returned as live")
		}
		if k.KeyPrefix != "kf_aaaaaaaaa" {
			t.Errorf("wrong prefix returned: %q", k.KeyPrefix)
		}
	}

	none, err := s.ListLiveAPIKeysByPrefix(ctx, "kf_ccccccccc", now)
	if err != nil {
		t.Fatalf("ListLiveAPIKeysByPrefix: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no keys for unknown prefix, got %d", len(none))
	}
}

func TestDeletePrincipalCascadesKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPrincipal(t, s, "alice")
	now := time.Now().UTC()
	key := &model.APIKey{
		KeyHash:     "hash",
		KeyPrefix:   "kf_aaaaaaaaa",
		PrincipalID: p.ID,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 6, 0),
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM principals WHERE id = ?"), p.ID); err != nil {
		t.Fatalf("delete principal: %v", err)
	}

	keys, err := s.ListAPIKeysForPrincipal(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysForPrincipal: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected keys to cascade on principal delete, got %d", len(keys))
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
