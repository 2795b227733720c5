package model

import "time"

// Principal is an authenticatable identity. Passwords are stored as bcrypt
// hashes. EncryptedAPIKey holds the principal's own API key encrypted under
// the master key; it is set and read only through the credential vault.
type Principal struct {
	ID              int64     `json:"id" db:"id"`
	Username        string    `json:"username" db:"username"`
	PasswordHash    string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	EncryptedAPIKey string    `json:"-" db:"encrypted_api_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
