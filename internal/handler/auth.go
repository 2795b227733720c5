package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/keyfold/keyfold/internal/model"
	"github.com/keyfold/keyfold/internal/service"
)

// AuthHandler exposes registration and login. Both login flows return the
// same response shape; a caller cannot tell from the response which
// credential scheme was used.
type AuthHandler struct {
	auth *service.Authenticator
}

// NewAuthHandler creates the handler for /auth routes.
func NewAuthHandler(auth *service.Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /auth/register. With auth_type API_KEY the response
// carries a raw API key, shown exactly once; otherwise a signed token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login handles POST /auth/login for both the password and API-key flows.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
