package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keyfold/keyfold/internal/crypto"
	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/store"
)

// dummyHash is compared against when a login names an unknown username, so
// the request costs one bcrypt verification either way and missing users
// are indistinguishable from wrong passwords.
var dummyHash, _ = crypto.HashSecret("keyfold-timing-pad")

// Authenticator orchestrates registration and login across the two
// credential schemes. Each call is an independent request/response with no
// shared mutable state; all dependencies are injected at construction.
type Authenticator struct {
	store  *store.Store
	tokens *TokenIssuer
	keys   *Manager
	logger *slog.Logger
}

// NewAuthenticator wires the orchestrator from its collaborators.
func NewAuthenticator(st *store.Store, tokens *TokenIssuer, keys *Manager, logger *slog.Logger) *Authenticator {
	return &Authenticator{store: st, tokens: tokens, keys: keys, logger: logger}
}

// Register creates a new principal with a hashed password. In API-key mode
// the response carries a freshly issued raw key (shown exactly once);
// otherwise it carries a signed token for the new username. Fails with
// ErrDuplicateUsername when the name is taken; the database's unique
// constraint is the source of truth, the lookup below is only a fast path
// for a friendlier error.
func (a *Authenticator) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	if _, err := a.store.GetPrincipalByUsername(ctx, req.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := crypto.HashSecret(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	principal := &model.Principal{Username: req.Username, PasswordHash: hash}
	if err := a.store.CreatePrincipal(ctx, principal); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}
	a.logger.Info("principal registered", "username", req.Username, "principal_id", principal.ID)

	if strings.EqualFold(req.AuthType, model.ModeAPIKey) {
		rawKey, err := a.keys.Issue(ctx, principal)
		if err != nil {
			return nil, err
		}
		return &model.AuthResponse{APIKey: rawKey}, nil
	}

	token, err := a.tokens.Issue(principal.Username)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{Token: token}, nil
}

// Login authenticates either a username/password pair or a raw API key and
// returns a signed token. The response shape is identical for both flows,
// and both failure modes collapse into ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	if strings.EqualFold(req.AuthType, model.ModeAPIKey) {
		return a.loginWithKey(ctx, req.APIKey)
	}
	return a.loginWithPassword(ctx, req.Username, req.Password)
}

func (a *Authenticator) loginWithPassword(ctx context.Context, username, password string) (*model.AuthResponse, error) {
	principal, err := a.store.GetPrincipalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			crypto.VerifySecret(password, dummyHash)
			a.logger.Warn("login failed", "username", username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if !crypto.VerifySecret(password, principal.PasswordHash) {
		a.logger.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(principal.Username)
	if err != nil {
		return nil, err
	}
	a.logger.Info("login succeeded", "username", username, "scheme", "password")
	return &model.AuthResponse{Token: token}, nil
}

func (a *Authenticator) loginWithKey(ctx context.Context, rawKey string) (*model.AuthResponse, error) {
	principal, err := a.keys.Resolve(ctx, rawKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			a.logger.Warn("login failed", "scheme", "api_key")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := a.tokens.Issue(principal.Username)
	if err != nil {
		return nil, err
	}
	a.logger.Info("login succeeded", "username", principal.Username, "scheme", "api_key")
	return &model.AuthResponse{Token: token}, nil
}

// IssueKeyFor issues a new API key for an already-authenticated principal,
// looked up by ID. Fails with ErrPrincipalNotFound when the authenticated
// identity has no backing record.
func (a *Authenticator) IssueKeyFor(ctx context.Context, principalID int64) (string, error) {
	principal, err := a.store.GetPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrPrincipalNotFound
		}
		return "", fmt.Errorf("load principal: %w", err)
	}
	return a.keys.Issue(ctx, principal)
}
