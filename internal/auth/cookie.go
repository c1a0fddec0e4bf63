package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/hkdf"
)

// SessionCookieName is the cookie carrying the sealed session token. The
// gate checks only for its presence.
const SessionCookieName = "auth.session_token"

const sessionClaim = "sid"

// CookieSealer wraps raw session tokens in PASETO v4.local tokens so the
// cookie value cannot be forged or read without AUTH_SECRET.
type CookieSealer struct {
	key    paseto.V4SymmetricKey
	secure bool
}

// NewCookieSealer derives the cookie key from the application secret with
// HKDF-SHA256.
func NewCookieSealer(secret string, secure bool) (*CookieSealer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth secret must be at least 32 characters, got %d", len(secret))
	}

	raw := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("session-cookie"))
	if _, err := io.ReadFull(kdf, raw); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &CookieSealer{key: key, secure: secure}, nil
}

// Seal encrypts the session token. The PASETO expiration mirrors the session.
func (c *CookieSealer) Seal(sessionToken string, expiresAt time.Time) string {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(expiresAt)
	token.SetString(sessionClaim, sessionToken)
	return token.V4Encrypt(c.key, nil)
}

// Open returns the session token inside a sealed cookie value.
func (c *CookieSealer) Open(value string) (string, error) {
	token, err := paseto.NewParser().ParseV4Local(c.key, value, nil)
	if err != nil {
		return "", ErrInvalidCookie
	}
	sessionToken, err := token.GetString(sessionClaim)
	if err != nil || sessionToken == "" {
		return "", ErrInvalidCookie
	}
	return sessionToken, nil
}

// TokenFromRequest reads and opens the session cookie.
func (c *CookieSealer) TokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrSessionNotFound
	}
	return c.Open(cookie.Value)
}

func (c *CookieSealer) SetSessionCookie(w http.ResponseWriter, sessionToken string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		c.ClearSessionCookie(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    c.Seal(sessionToken, expiresAt),
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieSealer) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
