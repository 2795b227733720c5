package service

import "errors"

// Error taxonomy for the authentication core. Credential failures are
// deliberately undifferentiated: a wrong password and a bad or expired API
// key both surface as ErrInvalidCredentials so the response does not leak
// which scheme failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrKeyNotFound        = errors.New("api key not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrCredential         = errors.New("credential error")
	ErrCredentialUpdate   = errors.New("credential update failed")
)
