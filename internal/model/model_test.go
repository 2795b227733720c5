package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAPIKeyExpired(t *testing.T) {
	now := time.Now()
	key := APIKey{ExpiresAt: now.Add(time.Hour)}
	if key.Expired(now) {
		t.Error("future expiry reported as expired")
	}
	key.ExpiresAt = now.Add(-time.Hour)
	if !key.Expired(now) {
		t.Error("past expiry reported as live")
	}
	// The exact boundary instant counts as expired.
	key.ExpiresAt = now
	if !key.Expired(now) {
		t.Error("boundary instant reported as live")
	}
}

func TestSecretsNeverSerialized(t *testing.T) {
	p := Principal{
		Username:        "alice",
		PasswordHash:    "bcrypt-digest",
		EncryptedAPIKey: "encrypted-blob",
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal principal: %v", err)
	}
	for _, secret := range []string{"bcrypt-digest", "encrypted-blob"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("principal JSON leaks %q: %s", secret, data)
		}
	}

	k := APIKey{KeyHash: "key-digest", KeyPrefix: "kf_aaaaaaaaa"}
	data, err = json.Marshal(k)
	if err != nil {
		t.Fatalf("marshal api key: %v", err)
	}
	if strings.Contains(string(data), "key-digest") {
		t.Errorf("api key JSON leaks the hash: %s", data)
	}
}

func TestAuthResponseOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(AuthResponse{Token: "jwt"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "api_key") {
		t.Errorf("empty api_key serialized: %s", data)
	}
}
