// Package common defines shared constants and sentinel errors used across
// the PandaChat server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorValidation         = errors.New("validation error")
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// Auth errors (absent, invalid or malformed token).
	ErrTokenMissing = errors.New("token missing")
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Chat archive errors.
	ErrArchiveDisabled = errors.New("chat archive disabled")
)
