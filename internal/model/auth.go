package model

// Authentication mode selectors accepted by the register and login
// endpoints. Matching is case-insensitive; anything other than ModeAPIKey
// falls back to the password flow.
const (
	ModePassword = "PASSWORD"
	ModeAPIKey   = "API_KEY"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	AuthType string `json:"auth_type,omitempty"`
}

// LoginRequest is the body of POST /auth/login. Username/Password are used
// by the password flow, APIKey by the API-key flow.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	AuthType string `json:"auth_type,omitempty"`
}

// AuthResponse carries either a signed token or a freshly issued raw API
// key, never both. The raw key appears here exactly once and cannot be
// retrieved again.
type AuthResponse struct {
	Token  string `json:"token,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}
