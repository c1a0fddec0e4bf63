// Package gate makes the first routing decision for page requests based on
// the path and the presence of the session cookie. It never inspects the
// cookie value; session validation belongs to auth.Middleware.
package gate

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
)

// Action is the kind of routing decision.
type Action int

const (
	// Skip passes the request through untouched.
	Skip Action = iota
	// Redirect answers with a temporary redirect to Decision.Target.
	Redirect
	// Route hands the request to the locale router.
	Route
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "skip"
	case Redirect:
		return "redirect"
	case Route:
		return "route"
	}
	return "unknown"
}

// Decision is the outcome of Decide. Target is set for Redirect only.
type Decision struct {
	Action Action
	Target string
}

var excludedPrefixes = []string{"/api", "/_next", "/_vercel", "/monitoring"}

var authPageMarkers = []string{"/sign-in", "/sign-up", "/reset-password", "/verify-email"}

var localePrefix = regexp.MustCompile(`^/([a-z]{2})/`)

func isExcluded(path string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return strings.Contains(path, ".")
}

func isProtected(path string) bool {
	return strings.Contains(path, "/dashboard")
}

func isAuthPage(path string) bool {
	for _, m := range authPageMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

// localized prefixes target with the two-letter locale segment of path, if any.
func localized(path, target string) string {
	if m := localePrefix.FindStringSubmatch(path); m != nil {
		return "/" + m[1] + target
	}
	return target
}

// Decide classifies a request path.
func Decide(path string, hasSession bool) Decision {
	if isExcluded(path) {
		return Decision{Action: Skip}
	}
	if isProtected(path) && !hasSession {
		return Decision{Action: Redirect, Target: localized(path, "/sign-in")}
	}
	if isAuthPage(path) && hasSession {
		return Decision{Action: Redirect, Target: localized(path, "/dashboard")}
	}
	return Decision{Action: Route}
}

// HasSessionCookie reports whether the session cookie is present and non-empty.
func HasSessionCookie(r *http.Request) bool {
	c, err := r.Cookie(auth.SessionCookieName)
	return err == nil && c.Value != ""
}

// Middleware applies Decide to every request. Route decisions run
// localeRouter in front of next; a nil localeRouter passes straight to next.
func Middleware(localeRouter func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		routed := next
		if localeRouter != nil {
			routed = localeRouter(next)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(r.URL.Path, HasSessionCookie(r))
			switch d.Action {
			case Skip:
				next.ServeHTTP(w, r)
			case Redirect:
				http.Redirect(w, r, d.Target, http.StatusTemporaryRedirect)
			default:
				routed.ServeHTTP(w, r)
			}
		})
	}
}
