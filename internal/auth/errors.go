package auth

import "errors"

// Validation errors (client input)
var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email")
	ErrNameRequired       = errors.New("name is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrInvalidCallbackURL = errors.New("invalid callback URL")
)

// Credential and account errors
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrUserAlreadyExists    = errors.New("user already exists, use another email")
	ErrEmailAlreadyVerified = errors.New("email already verified")
)

// Token and session errors
var (
	ErrTokenRequired   = errors.New("token is required")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidCookie   = errors.New("invalid session cookie")
	ErrCacheMiss       = errors.New("session not in cache")
	errNotFound        = errors.New("record not found")
)

// ErrEmailDelivery wraps transport failures while sending verification or
// reset emails. The triggering request fails with it.
var ErrEmailDelivery = errors.New("failed to send email")
