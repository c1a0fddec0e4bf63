package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/config"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

type fakePages struct{}

func (fakePages) Register(r chi.Router, requireSession, loadSession func(http.Handler) http.Handler) {
	page := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(i18n.FromContext(r.Context()) + " " + r.URL.Path))
	}
	r.Get("/sign-in", page)
	r.With(loadSession).Get("/", page)
	r.With(requireSession).Get("/dashboard", page)
}

func newTestRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Env: env},
		Auth:   config.AuthConfig{TrustedOrigins: []string{"https://app.test"}},
	}
	opts := auth.DefaultOptions("https://app.test")
	logger := logging.Discard()
	svc := auth.NewService(nil, nil, nil, &opts, logger)
	sealer, err := auth.NewCookieSealer("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)

	return NewRouter(cfg, auth.NewHandler(svc, sealer, nil), auth.NewMiddleware(svc, sealer, nil), fakePages{}, logger)
}

func serve(h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := serve(newTestRouter(t, "prod"), "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "api is running", body["status"])
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_GateAndLocales(t *testing.T) {
	h := newTestRouter(t, "prod")
	session := &http.Cookie{Name: auth.SessionCookieName, Value: "anything"}

	tests := []struct {
		name     string
		target   string
		cookies  []*http.Cookie
		status   int
		location string
		body     string
	}{
		{"protected without cookie", "/dashboard", nil, http.StatusTemporaryRedirect, "/sign-in", ""},
		{"localized protected without cookie", "/fr/dashboard", nil, http.StatusTemporaryRedirect, "/fr/sign-in", ""},
		{"auth page with cookie", "/fr/sign-in", []*http.Cookie{session}, http.StatusTemporaryRedirect, "/fr/dashboard", ""},
		{"default locale prefix", "/en/sign-in", nil, http.StatusTemporaryRedirect, "/sign-in", ""},
		{"localized page", "/fr/sign-in", nil, http.StatusOK, "", "fr /sign-in"},
		{"home", "/", nil, http.StatusOK, "", "en /"},
		// the gate trusts presence, the session middleware does not
		{"forged cookie", "/dashboard", []*http.Cookie{session}, http.StatusTemporaryRedirect, "/sign-in", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.target, tt.cookies...)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRouter_APIRoutesSkipGate(t *testing.T) {
	h := newTestRouter(t, "prod")

	rec := serve(h, "/api/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, "/api/auth/get-session")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestRouter_SwaggerOnlyInDevelopment(t *testing.T) {
	rec := serve(newTestRouter(t, "prod"), "/swagger/doc.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
