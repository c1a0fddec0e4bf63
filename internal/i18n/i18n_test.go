package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	assert.Equal(t, "/dashboard", Path("en", "/dashboard"))
	assert.Equal(t, "/", Path("en", "/"))
	assert.Equal(t, "/fr/dashboard", Path("fr", "/dashboard"))
	assert.Equal(t, "/fr", Path("fr", "/"))
	assert.Equal(t, "", Prefix("en"))
	assert.Equal(t, "/fr", Prefix("fr"))
}

func TestNegotiate(t *testing.T) {
	rt := NewRouter()
	assert.Equal(t, "fr", rt.Negotiate("fr", "en-US"))
	assert.Equal(t, "fr", rt.Negotiate("", "fr-CA,fr;q=0.9,en;q=0.5"))
	assert.Equal(t, "en", rt.Negotiate("", "en-GB"))
	assert.Equal(t, "en", rt.Negotiate("", "de-DE"))
	assert.Equal(t, "en", rt.Negotiate("xx", ""))
}

type seen struct {
	path   string
	locale string
	hit    bool
}

func serve(t *testing.T, target string, setup func(r *http.Request)) (*httptest.ResponseRecorder, seen) {
	t.Helper()
	var s seen
	h := NewRouter().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s = seen{path: r.URL.Path, locale: FromContext(r.Context()), hit: true}
	}))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, s
}

func TestRouter_DefaultLocalePrefixRedirects(t *testing.T) {
	rec, s := serve(t, "/en/sign-in?x=1", nil)
	assert.False(t, s.hit)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/sign-in?x=1", rec.Header().Get("Location"))

	rec, _ = serve(t, "/en", nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRouter_PrefixedLocaleIsStripped(t *testing.T) {
	rec, s := serve(t, "/fr/dashboard/user-profile", nil)
	require.True(t, s.hit)
	assert.Equal(t, "/dashboard/user-profile", s.path)
	assert.Equal(t, "fr", s.locale)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "fr", cookie.Value)

	_, s = serve(t, "/fr", nil)
	assert.Equal(t, "/", s.path)
	assert.Equal(t, "fr", s.locale)
}

func TestRouter_UnprefixedNegotiation(t *testing.T) {
	_, s := serve(t, "/sign-in", nil)
	assert.True(t, s.hit)
	assert.Equal(t, "en", s.locale)

	rec, s := serve(t, "/sign-in", func(r *http.Request) {
		r.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	})
	assert.False(t, s.hit)
	assert.Equal(t, "/fr/sign-in", rec.Header().Get("Location"))

	rec, _ = serve(t, "/", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "fr"})
	})
	assert.Equal(t, "/fr", rec.Header().Get("Location"))

	_, s = serve(t, "/", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "en"})
		r.Header.Set("Accept-Language", "fr")
	})
	assert.True(t, s.hit)
	assert.Equal(t, "en", s.locale)
}

func TestRouter_NonLocaleSegmentUntouched(t *testing.T) {
	_, s := serve(t, "/frank/page", nil)
	assert.True(t, s.hit)
	assert.Equal(t, "/frank/page", s.path)
}

func TestCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Equal(t, "Hello alice@example.com!", c.T("en", "Dashboard", "hello_message", map[string]string{"email": "alice@example.com"}))
	assert.Equal(t, "Bonjour alice@example.com !", c.T("fr", "Dashboard", "hello_message", map[string]string{"email": "alice@example.com"}))
	assert.Equal(t, "Yes", c.T("en", "UserProfile", "yes", nil))
	assert.Equal(t, "Sign in", c.T("de", "SignIn", "meta_title", nil))
	assert.Equal(t, "Nope.missing", c.T("en", "Nope", "missing", nil))

	tr := c.Namespace("fr", "Dashboard")
	assert.Equal(t, "Bonjour a@b.c !", tr("hello_message", "email", "a@b.c"))
}

func TestCatalog_LocalesHaveSameKeys(t *testing.T) {
	c := MustLoadCatalog()
	for _, locale := range Locales[1:] {
		assert.ElementsMatch(t, c.Keys(DefaultLocale), c.Keys(locale), locale)
	}
	for _, ns := range []string{"Index", "SignIn", "SignUp", "ResetPassword", "VerifyEmail", "Dashboard", "UserProfile"} {
		assert.NotEqual(t, ns+".meta_title", c.T("en", ns, "meta_title", nil))
	}
}
