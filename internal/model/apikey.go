package model

import "time"

// APIKey represents one issued opaque key owned by a principal. The raw key
// is never stored; only a bcrypt hash and a short non-secret prefix for
// candidate lookup are persisted. Records are immutable after creation and
// age out through ExpiresAt; a principal may hold several live keys at once.
type APIKey struct {
	ID          int64     `json:"id" db:"id"`
	KeyHash     string    `json:"-" db:"key_hash"` // bcrypt hash, never expose
	KeyPrefix   string    `json:"key_prefix" db:"key_prefix"`
	PrincipalID int64     `json:"principal_id" db:"principal_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the key is past its expiry at the given instant.
func (k *APIKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.After(now)
}
