package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		hasSession bool
		want       Decision
	}{
		{"api skipped", "/api/auth/get-session", false, Decision{Action: Skip}},
		{"api prefix without slash", "/apidocs", false, Decision{Action: Skip}},
		{"next assets", "/_next/static/chunk", false, Decision{Action: Skip}},
		{"vercel", "/_vercel/insights", true, Decision{Action: Skip}},
		{"monitoring", "/monitoring", false, Decision{Action: Skip}},
		{"dotted path", "/favicon.ico", false, Decision{Action: Skip}},
		{"dotted protected path", "/dashboard/report.pdf", false, Decision{Action: Skip}},

		{"protected without session", "/dashboard", false, Decision{Action: Redirect, Target: "/sign-in"}},
		{"nested protected without session", "/dashboard/user-profile", false, Decision{Action: Redirect, Target: "/sign-in"}},
		{"localized protected without session", "/fr/dashboard", false, Decision{Action: Redirect, Target: "/fr/sign-in"}},
		{"protected with session", "/dashboard", true, Decision{Action: Route}},
		{"localized protected with session", "/fr/dashboard/user-profile", true, Decision{Action: Route}},

		{"sign-in with session", "/sign-in", true, Decision{Action: Redirect, Target: "/dashboard"}},
		{"localized sign-up with session", "/fr/sign-up", true, Decision{Action: Redirect, Target: "/fr/dashboard"}},
		{"reset confirm with session", "/reset-password/confirm", true, Decision{Action: Redirect, Target: "/dashboard"}},
		{"verify with session", "/en/verify-email", true, Decision{Action: Redirect, Target: "/en/dashboard"}},
		{"sign-in without session", "/sign-in", false, Decision{Action: Route}},
		{"localized verify without session", "/fr/verify-email", false, Decision{Action: Route}},

		{"locale needs trailing slash", "/fr", false, Decision{Action: Route}},
		{"three letter segment is not a locale", "/fra/dashboard", false, Decision{Action: Redirect, Target: "/sign-in"}},
		{"uppercase segment is not a locale", "/FR/dashboard", false, Decision{Action: Redirect, Target: "/sign-in"}},
		{"home", "/", false, Decision{Action: Route}},
		{"home with session", "/", true, Decision{Action: Route}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.path, tt.hasSession))
		})
	}
}

func TestDecide_ProtectedPaths(t *testing.T) {
	for _, path := range []string{"/dashboard", "/dashboard/user-profile", "/fr/dashboard", "/en/dashboard/x"} {
		assert.Equal(t, Redirect, Decide(path, false).Action, path)
		assert.Equal(t, Route, Decide(path, true).Action, path)
	}
}

func TestDecide_AuthPages(t *testing.T) {
	for _, path := range []string{"/sign-in", "/sign-up", "/reset-password", "/verify-email", "/fr/sign-in"} {
		assert.Equal(t, Redirect, Decide(path, true).Action, path)
		assert.Equal(t, Route, Decide(path, false).Action, path)
	}
}

func TestMiddleware(t *testing.T) {
	var routerHit, nextHit bool
	localeRouter := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			routerHit = true
			next.ServeHTTP(w, r)
		})
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextHit = true
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(localeRouter)(next)

	serve := func(path string, cookie bool) *httptest.ResponseRecorder {
		routerHit, nextHit = false, false
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie {
			req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "anything"})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("/fr/dashboard", false)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/fr/sign-in", rec.Header().Get("Location"))
	assert.False(t, nextHit)

	rec = serve("/sign-in", true)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	serve("/api/auth/get-session", false)
	assert.True(t, nextHit)
	assert.False(t, routerHit)

	serve("/dashboard", true)
	assert.True(t, nextHit)
	assert.True(t, routerHit)
}

func TestHasSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, HasSessionCookie(req))

	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: ""})
	assert.False(t, HasSessionCookie(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "x"})
	assert.True(t, HasSessionCookie(req))
}
