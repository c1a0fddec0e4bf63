package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-saas-starter/internal/user"
)

const credentialProvider = "credential"

// Verification purposes
const (
	PurposeEmailVerification = "email-verification"
	PurposePasswordReset     = "password-reset"
)

// Session represents an active login session
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	TokenHash string    `json:"-"` // Never expose in JSON
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account is the credential record of a user.
type Account struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ProviderID   string
	AccountID    string
	PasswordHash string
}

// Verification is a stored single-use token.
type Verification struct {
	ID         uuid.UUID
	Identifier string
	Purpose    string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// SessionData combines user and session info
// The model returned to clients
type SessionData struct {
	User    *user.User `json:"user"`
	Session *Session   `json:"session"`
	// Refreshed reports that GetSession extended the expiry and the cookie
	// should be re-issued.
	Refreshed bool `json:"-"`
}

// SignUpInput is the payload of SignUpEmail.
type SignUpInput struct {
	Name        string
	Email       string
	Password    string
	CallbackURL string
}

// RequestMeta carries the client details recorded on new sessions.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// SignInResult is returned by SignInEmail and VerifyEmail. Token is the raw
// session token, empty when no session was issued.
type SignInResult struct {
	User    *user.User
	Session *Session
	Token   string
}
