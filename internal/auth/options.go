package auth

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Options is the static configuration of the auth facade. It is built once
// at process start and shared by reference; nothing mutates it afterwards.
type Options struct {
	// BaseURL is the public origin serving both the pages and the auth API.
	BaseURL string
	// BasePath is where the auth handler is mounted.
	BasePath string
	// TrustedOrigins are accepted as absolute callback and redirect targets.
	TrustedOrigins []string

	SessionExpiresIn time.Duration
	SessionUpdateAge time.Duration
	// SessionCacheTTL bounds how long a session lookup may be served from cache.
	SessionCacheTTL time.Duration

	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	MinPasswordLength int
	MaxPasswordLength int

	RequireEmailVerification    bool
	AutoSignInAfterVerification bool

	// SecureCookies sets the Secure attribute on the session cookie.
	SecureCookies bool
}

// DefaultOptions returns the starter kit policy: 7 day sessions refreshed
// daily, 24h verification links, 1h reset links and mandatory verification.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:                     strings.TrimRight(baseURL, "/"),
		BasePath:                    "/api/auth",
		TrustedOrigins:              []string{baseURL},
		SessionExpiresIn:            7 * 24 * time.Hour,
		SessionUpdateAge:            24 * time.Hour,
		SessionCacheTTL:             5 * time.Minute,
		VerificationTokenTTL:        24 * time.Hour,
		ResetTokenTTL:               time.Hour,
		MinPasswordLength:           8,
		MaxPasswordLength:           128,
		RequireEmailVerification:    true,
		AutoSignInAfterVerification: true,
	}
}

// Validate checks internal consistency.
func (o *Options) Validate() error {
	u, err := url.Parse(o.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL must be absolute, got %q", o.BaseURL)
	}
	if o.SessionExpiresIn <= 0 || o.SessionUpdateAge <= 0 {
		return fmt.Errorf("session durations must be positive")
	}
	if o.SessionUpdateAge >= o.SessionExpiresIn {
		return fmt.Errorf("session update age %s must be shorter than expiry %s", o.SessionUpdateAge, o.SessionExpiresIn)
	}
	if o.MinPasswordLength <= 0 || o.MaxPasswordLength < o.MinPasswordLength {
		return fmt.Errorf("invalid password length bounds %d..%d", o.MinPasswordLength, o.MaxPasswordLength)
	}
	return nil
}

// isTrustedURL accepts empty values, same-site relative paths and absolute
// URLs whose origin is the base URL or one of the trusted origins.
func (o *Options) isTrustedURL(raw string) bool {
	if raw == "" {
		return true
	}
	if strings.HasPrefix(raw, "/") {
		return !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	for _, trusted := range append([]string{o.BaseURL}, o.TrustedOrigins...) {
		t, err := url.Parse(trusted)
		if err != nil {
			continue
		}
		if strings.EqualFold(origin, t.Scheme+"://"+t.Host) {
			return true
		}
	}
	return false
}
