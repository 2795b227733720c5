package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/service"
	"github.com/keyfold/keyfold/internal/store"
)

type contextKeyAuth string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKeyAuth = "auth_principal"

// Authenticate returns an HTTP middleware that resolves the request's
// credentials to a principal. It supports two methods:
//
//  1. API key via the X-API-Key header
//  2. Signed bearer token via the Authorization header
//
// On success the Principal is attached to the request context. Any failure
// (bad signature, expired token, unknown or expired key) is a 401 — never a
// server error — and the response does not say which scheme failed.
func Authenticate(tokens *service.TokenIssuer, keys *service.Manager, st *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *model.Principal

			if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
				p, err := keys.Resolve(r.Context(), rawKey)
				if err != nil {
					writeAuthError(w)
					return
				}
				principal = p
			}

			if principal == nil {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token := strings.TrimPrefix(authHeader, "Bearer ")
					subject, err := tokens.Subject(token)
					if err != nil {
						// Expired and invalid tokens alike mean
						// "not authenticated" at this boundary.
						writeAuthError(w)
						return
					}
					p, err := st.GetPrincipalByUsername(r.Context(), subject)
					if err != nil {
						if errors.Is(err, store.ErrNotFound) {
							writeAuthError(w)
							return
						}
						http.Error(w, "internal error", http.StatusInternalServerError)
						return
					}
					principal = p
				}
			}

			if principal == nil {
				writeAuthError(w)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present.
func GetPrincipal(ctx context.Context) *model.Principal {
	if p, ok := ctx.Value(PrincipalKey).(*model.Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// Manually construct JSON to avoid an import cycle with handler.
	w.Write([]byte(`{"error":{"code":401,"message":"Authentication required. Provide X-API-Key header or Bearer token."}}`))
}
