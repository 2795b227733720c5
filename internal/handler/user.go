package handler

import (
	"net/http"
	"strings"

	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/server/middleware"
	"github.com/keyfold/keyfold/internal/service"
)

// UserHandler exposes the authenticated principal's own key operations:
// issuing a fresh opaque key, and the credential vault boundary for storing
// and revealing the principal's encrypted key.
type UserHandler struct {
	auth  *service.Authenticator
	vault *service.Vault
}

// NewUserHandler creates the handler for /user routes.
func NewUserHandler(auth *service.Authenticator, vault *service.Vault) *UserHandler {
	return &UserHandler{auth: auth, vault: vault}
}

type apiKeyRequest struct {
	APIKey string `json:"api_key"`
}

// IssueKey handles POST /user/api-key/issue. A new key record is created;
// previously issued keys remain valid until their own expiry.
func (h *UserHandler) IssueKey(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rawKey, err := h.auth.IssueKeyFor(r.Context(), principal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue API key")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{APIKey: rawKey})
}

// SetKey handles PUT /user/api-key: encrypt the posted raw key under the
// master key and store it on the principal record.
func (h *UserHandler) SetKey(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req apiKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := h.vault.Store(r.Context(), principal, req.APIKey); err != nil {
		// An encrypt or persist failure is a configuration or storage
		// problem, not user error.
		writeError(w, http.StatusInternalServerError, "failed to update API key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// GetKey handles GET /user/api-key: decrypt and return the stored key.
func (h *UserHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rawKey, err := h.vault.Reveal(r.Context(), principal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to decrypt API key")
		return
	}
	if rawKey == "" {
		writeError(w, http.StatusNotFound, "no API key set")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{APIKey: rawKey})
}
