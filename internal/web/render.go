package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/user"
	"github.com/redmonkez12/go-saas-starter/internal/verifyemail"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index",
	"sign-in",
	"sign-up",
	"reset-password",
	"reset-password-confirm",
	"verify-email",
	"dashboard",
	"user-profile",
}

func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// pageData is what every template receives.
type pageData struct {
	Locale    string
	Namespace string
	catalog   *i18n.Catalog

	Form       flow.State
	User       *user.User
	ShowResend bool
	Token      string
	TokenError string
	Verify     verifyemail.State
	Redirect   string
}

func (p pageData) T(namespace, key string, args ...string) string {
	return p.catalog.Namespace(p.Locale, namespace)(key, args...)
}

func (p pageData) Path(path string) string {
	return i18n.Path(p.Locale, path)
}

func (p pageData) Title() string {
	return p.T(p.Namespace, "meta_title")
}

func (p pageData) Description() string {
	return p.T(p.Namespace, "meta_description")
}

func (p pageData) MemberSince() string {
	if p.User == nil {
		return ""
	}
	return p.User.CreatedAt.Format("January 2, 2006")
}

func (p pageData) RedirectSeconds() int {
	return int(verifyemail.RedirectDelay / time.Second)
}

func (h *Handler) page(r *http.Request, namespace string) pageData {
	return pageData{
		Locale:    i18n.FromContext(r.Context()),
		Namespace: namespace,
		catalog:   h.catalog,
		Form:      flow.State{Values: map[string]string{}, FieldErrors: map[string]string{}},
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, status int, data pageData) {
	t, ok := h.templates[name]
	if !ok {
		logging.GetLoggerFromContext(r.Context()).Error("unknown page template", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to render page", "page", name, "error", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formStatus is 422 when the form did not go through.
func formStatus(s flow.State) int {
	if s.HasFieldErrors() || s.Phase == flow.PhaseError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
