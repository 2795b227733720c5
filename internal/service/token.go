package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "keyfold"

// TokenIssuer mints and validates signed, time-bounded bearer tokens that
// name a principal's username as the subject. The signing secret and TTL
// are injected once at construction and never mutated.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a TokenIssuer from a base64-encoded signing secret
// and a token lifetime. The secret is distinct from the vault's master key.
func NewTokenIssuer(secretBase64 string, ttl time.Duration) (*TokenIssuer, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	return &TokenIssuer{secret: secret, ttl: ttl}, nil
}

// Issue creates a signed HS256 token for the given subject, valid from now
// until now plus the configured TTL. Tokens are self-contained and never
// persisted; two tokens for the same subject are independently valid.
func (t *TokenIssuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate reports whether tokenStr is well signed, unexpired, and issued
// for the expected subject. An expired but well-signed token is an ordinary
// false; a bad signature or malformed token is ErrInvalidToken.
func (t *TokenIssuer) Validate(tokenStr, expectedSubject string) (bool, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return false, nil
		}
		return false, err
	}
	return claims.Subject == expectedSubject, nil
}

// Subject verifies the signature of tokenStr and returns its subject.
// Fails with ErrInvalidToken on a bad signature or malformed structure and
// with ErrTokenExpired when the token is past its expiry.
func (t *TokenIssuer) Subject(tokenStr string) (string, error) {
	claims, err := t.parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) parse(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(token *jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
