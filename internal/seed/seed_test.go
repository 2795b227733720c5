package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/service"
	"github.com/keyfold/keyfold/internal/store"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func newTestDeps(t *testing.T) (*store.Store, *service.Manager, *slog.Logger) {
	t.Helper()
	st, err := store.New(store.DriverSQLite, "")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return st, service.NewManager(st, logger), logger
}

func TestLoad(t *testing.T) {
	path := writeSeedFile(t, `
principals:
  - username: alice
    password: password123
    issue_key: true
  - username: bob
    password: hunter22
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Principals) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(f.Principals))
	}
	if f.Principals[0].Username != "alice" || !f.Principals[0].IssueKey {
		t.Errorf("unexpected first entry: %+v", f.Principals[0])
	}
	if f.Principals[1].IssueKey {
		t.Error("issue_key should default to false")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing username", "principals:\n  - password: secret\n"},
		{"missing password", "principals:\n  - username: alice\n"},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeSeedFile(t, tc.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApply(t *testing.T) {
	st, keys, logger := newTestDeps(t)
	ctx := context.Background()

	f := &File{Principals: []Entry{
		{Username: "alice", Password: "password123", IssueKey: true},
		{Username: "bob", Password: "hunter22"},
	}}

	result, err := Apply(ctx, f, st, keys, logger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Created != 2 || result.Skipped != 0 {
		t.Errorf("created %d skipped %d, want 2 and 0", result.Created, result.Skipped)
	}

	// Alice asked for a key, bob did not.
	rawKey, ok := result.Keys["alice"]
	if !ok || rawKey == "" {
		t.Fatal("expected issued key for alice")
	}
	if _, ok := result.Keys["bob"]; ok {
		t.Error("unexpected key for bob")
	}

	// Passwords are stored hashed.
	alice, err := st.GetPrincipalByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPrincipalByUsername: %v", err)
	}
	if alice.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}
	if !crypto.VerifySecret("password123", alice.PasswordHash) {
		t.Error("stored hash does not verify the seed password")
	}

	// The issued key resolves to its owner.
	resolved, err := keys.Resolve(ctx, rawKey)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Username != "alice" {
		t.Errorf("key resolved to %q, want alice", resolved.Username)
	}
}

func TestApplyIdempotent(t *testing.T) {
	st, keys, logger := newTestDeps(t)
	ctx := context.Background()

	f := &File{Principals: []Entry{
		{Username: "alice", Password: "password123", IssueKey: true},
	}}

	if _, err := Apply(ctx, f, st, keys, logger); err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	result, err := Apply(ctx, f, st, keys, logger)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if result.Created != 0 || result.Skipped != 1 {
		t.Errorf("created %d skipped %d, want 0 and 1", result.Created, result.Skipped)
	}
	// Skipped entries get no new key.
	if len(result.Keys) != 0 {
		t.Errorf("expected no keys on re-apply, got %d", len(result.Keys))
	}
}
