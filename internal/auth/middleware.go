package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "auth_session"

// Middleware validates the session cookie against the store. Unlike the
// gate it checks signature, expiry and revocation.
type Middleware struct {
	service   *Service
	sealer    *CookieSealer
	signInURL func(r *http.Request) string
}

// NewMiddleware builds the session middleware. signInURL picks the
// redirect target for pages; nil means "/sign-in".
func NewMiddleware(service *Service, sealer *CookieSealer, signInURL func(r *http.Request) string) *Middleware {
	if signInURL == nil {
		signInURL = func(*http.Request) string { return "/sign-in" }
	}
	return &Middleware{service: service, sealer: sealer, signInURL: signInURL}
}

// RequireSession guards pages: without a valid session the request is
// redirected to sign-in and the stale cookie is cleared.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := m.load(w, r)
		if err != nil {
			m.sealer.ClearSessionCookie(w)
			http.Redirect(w, r, m.signInURL(r), http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), data)))
	})
}

// RequireAPISession guards JSON endpoints with a 401.
func (m *Middleware) RequireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := m.load(w, r)
		if err != nil {
			httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeUnauthorized, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), data)))
	})
}

// LoadSession attaches the session when there is one and never blocks.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, err := m.load(w, r); err == nil {
			r = r.WithContext(WithSession(r.Context(), data))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) load(w http.ResponseWriter, r *http.Request) (*SessionData, error) {
	token, err := m.sealer.TokenFromRequest(r)
	if err != nil {
		return nil, err
	}

	data, err := m.service.GetSession(r.Context(), token)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.GetLoggerFromContext(r.Context()).Error("failed to load session", "error", err.Error())
		}
		return nil, err
	}

	if data.Refreshed {
		m.sealer.SetSessionCookie(w, token, data.Session.ExpiresAt)
	}
	return data, nil
}

// WithSession stores session data in ctx.
func WithSession(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, SessionContextKey, data)
}

// SessionFromContext extracts the session loaded by the middleware
func SessionFromContext(ctx context.Context) (*SessionData, bool) {
	data, ok := ctx.Value(SessionContextKey).(*SessionData)
	return data, ok && data != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	data, ok := SessionFromContext(ctx)
	if !ok || data.User == nil {
		return uuid.Nil, false
	}
	return data.User.ID, true
}
