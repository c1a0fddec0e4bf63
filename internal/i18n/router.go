package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// CookieName remembers the locale a visitor last used.
const CookieName = "locale"

// Router enforces the locale prefix policy:
//   - /en/... redirects to the unprefixed path
//   - /fr/... is served with the prefix stripped and the locale in the context
//   - unprefixed paths negotiate the locale cookie, then Accept-Language,
//     and redirect to the prefixed path for a non-default match
type Router struct {
	matcher language.Matcher
}

func NewRouter() *Router {
	return &Router{matcher: language.NewMatcher(supportedTags)}
}

// Negotiate picks a supported locale from a cookie value and an
// Accept-Language header.
func (rt *Router) Negotiate(cookie, acceptLanguage string) string {
	if IsSupported(cookie) {
		return cookie
	}
	tag, _ := language.MatchStrings(rt.matcher, acceptLanguage)
	base, _ := tag.Base()
	if IsSupported(base.String()) {
		return base.String()
	}
	return DefaultLocale
}

func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale, rest, prefixed := splitLocale(r.URL.Path)

		if prefixed {
			setLocaleCookie(w, locale)
			if locale == DefaultLocale {
				http.Redirect(w, r, withRawQuery(rest, r.URL.RawQuery), http.StatusTemporaryRedirect)
				return
			}
			r.URL.Path = rest
			r.URL.RawPath = ""
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
			return
		}

		var cookie string
		if c, err := r.Cookie(CookieName); err == nil {
			cookie = c.Value
		}
		locale = rt.Negotiate(cookie, r.Header.Get("Accept-Language"))
		if locale != DefaultLocale {
			http.Redirect(w, r, withRawQuery(Path(locale, r.URL.Path), r.URL.RawQuery), http.StatusTemporaryRedirect)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), DefaultLocale)))
	})
}

func setLocaleCookie(w http.ResponseWriter, locale string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
}

func withRawQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
