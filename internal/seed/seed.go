// Package seed loads a declarative YAML file of principals and applies it
// to the store. It backs `keyfold user import` for bootstrapping a fresh
// deployment from checked-in (or secret-managed) configuration.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/service"
	"github.com/keyfold/keyfold/internal/store"
)

// File is the root of the seed document.
type File struct {
	Principals []Entry `yaml:"principals"`
}

// Entry describes one principal to create. When IssueKey is set, a fresh
// API key is issued and reported back through Result exactly once.
type Entry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	IssueKey bool   `yaml:"issue_key"`
}

// Result summarizes an Apply run. Keys maps username to the raw API key for
// entries that requested one; callers must surface these immediately, they
// cannot be recovered later.
type Result struct {
	Created int
	Skipped int
	Keys    map[string]string
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, e := range f.Principals {
		if e.Username == "" {
			return nil, fmt.Errorf("seed entry %d: username is required", i)
		}
		if e.Password == "" {
			return nil, fmt.Errorf("seed entry %d (%s): password is required", i, e.Username)
		}
	}
	return &f, nil
}

// Apply creates the listed principals. Entries whose username already
// exists are skipped, so re-applying the same file is safe.
func Apply(ctx context.Context, f *File, st *store.Store, keys *service.Manager, logger *slog.Logger) (*Result, error) {
	result := &Result{Keys: make(map[string]string)}

	for _, e := range f.Principals {
		hash, err := crypto.HashSecret(e.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", e.Username, err)
		}

		principal := &model.Principal{Username: e.Username, PasswordHash: hash}
		if err := st.CreatePrincipal(ctx, principal); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				logger.Info("seed: principal exists, skipping", "username", e.Username)
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("create principal %s: %w", e.Username, err)
		}
		result.Created++
		logger.Info("seed: principal created", "username", e.Username)

		if e.IssueKey {
			rawKey, err := keys.Issue(ctx, principal)
			if err != nil {
				return nil, fmt.Errorf("issue key for %s: %w", e.Username, err)
			}
			result.Keys[e.Username] = rawKey
		}
	}
	return result, nil
}
