// Package web serves the localized pages. Form posts run the flow package
// against the auth service in-process.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/ratelimit"
	"github.com/redmonkez12/go-saas-starter/internal/verifyemail"
)

type Handler struct {
	service   AuthService
	sealer    *auth.CookieSealer
	catalog   *i18n.Catalog
	templates map[string]*template.Template
	origin    string
	clock     verifyemail.Clock
	limiter   *ratelimit.Limiter
}

const (
	msgTooManyRequests = "Too many requests, please try again later."
	msgEmailCooldown   = "Please wait before requesting another email."
)

type Option func(*Handler)

// WithClock sets the clock of the verification poller.
func WithClock(c verifyemail.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// WithRateLimiter applies the API's IP windows and email cooldowns to the
// form posts. The counters are shared with /api/auth.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// NewHandler builds the page handler. origin is the public scheme and host
// used for links that leave the site, such as the password reset target.
func NewHandler(service AuthService, sealer *auth.CookieSealer, catalog *i18n.Catalog, origin string, opts ...Option) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if origin == "" {
		return nil, fmt.Errorf("web origin is required")
	}

	h := &Handler{
		service:   service,
		sealer:    sealer,
		catalog:   catalog,
		templates: templates,
		origin:    strings.TrimRight(origin, "/"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the pages on r. requireSession guards the dashboard and
// loadSession attaches the session to public pages when there is one.
func (h *Handler) Register(r chi.Router, requireSession, loadSession func(http.Handler) http.Handler) {
	r.With(loadSession).Get("/", h.Index)

	r.Get("/sign-in", h.SignInPage)
	r.Post("/sign-in", h.SignIn)
	r.Post("/sign-in/resend", h.Resend(flow.ModeSignIn))

	r.Get("/sign-up", h.SignUpPage)
	r.Post("/sign-up", h.SignUp)
	r.Post("/sign-up/resend", h.Resend(flow.ModeSignUp))

	r.Get("/reset-password", h.ResetPasswordPage)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/reset-password/confirm", h.ConfirmResetPage)
	r.Post("/reset-password/confirm", h.ConfirmReset)

	r.Get("/verify-email", h.VerifyEmail)

	r.Post("/sign-out", h.SignOut)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/dashboard/user-profile", h.UserProfile)
	})
}

func (h *Handler) api(w http.ResponseWriter, r *http.Request) *serviceAPI {
	return &serviceAPI{service: h.service, sealer: h.sealer, w: w, r: r}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Index")
	if sd, ok := auth.SessionFromContext(r.Context()); ok {
		data.User = sd.User
	}
	h.render(w, r, "index", http.StatusOK, data)
}

func (h *Handler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "sign-in", http.StatusOK, h.page(r, "SignIn"))
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "SignIn")
	data.Form.Values["email"] = r.PostFormValue("email")
	if !h.throttle(w, r, "sign-in", data, "sign-in", "") {
		return
	}

	nav := &pageNav{}
	form := flow.NewAuthForm(h.api(w, r), nav, data.Locale, flow.ModeSignIn)

	form.SubmitSignIn(r.Context(), flow.SignInValues{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if nav.target != "" {
		http.Redirect(w, r, nav.target, http.StatusSeeOther)
		return
	}

	data.Form = form.State()
	data.ShowResend = data.Form.Error == flow.MsgVerifyFirst
	h.render(w, r, "sign-in", formStatus(data.Form), data)
}

func (h *Handler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "sign-up", http.StatusOK, h.page(r, "SignUp"))
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "SignUp")
	data.Form.Values["name"] = r.PostFormValue("name")
	data.Form.Values["email"] = r.PostFormValue("email")
	if !h.throttle(w, r, "sign-up", data, "sign-up", "") {
		return
	}

	form := flow.NewAuthForm(h.api(w, r), &pageNav{}, data.Locale, flow.ModeSignUp)

	form.SubmitSignUp(r.Context(), flow.SignUpValues{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	})

	data.Form = form.State()
	h.render(w, r, "sign-up", formStatus(data.Form), data)
}

// Resend sends another verification email from the sign-in or sign-up page.
func (h *Handler) Resend(mode flow.Mode) http.HandlerFunc {
	page, namespace := "sign-in", "SignIn"
	if mode == flow.ModeSignUp {
		page, namespace = "sign-up", "SignUp"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := h.page(r, namespace)
		email := r.PostFormValue("email")
		data.Form.Values["email"] = email
		data.ShowResend = mode == flow.ModeSignIn
		if !h.throttle(w, r, page, data, "send-verification-email", email) {
			return
		}

		form := flow.NewAuthForm(h.api(w, r), &pageNav{}, data.Locale, mode)
		form.SetEmail(email)

		form.ResendVerification(r.Context())

		data.Form = form.State()
		if data.Form.EmailSent {
			h.limiter.EmailSent(r.Context(), email)
		}
		data.ShowResend = !data.Form.EmailSent && mode == flow.ModeSignIn
		h.render(w, r, page, formStatus(data.Form), data)
	}
}

func (h *Handler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "reset-password", http.StatusOK, h.page(r, "ResetPassword"))
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "ResetPassword")
	email := r.PostFormValue("email")
	data.Form.Values["email"] = email
	if !h.throttle(w, r, "reset-password", data, "forget-password", email) {
		return
	}

	form := flow.NewResetForm(h.api(w, r), h.origin, data.Locale)
	form.Submit(r.Context(), email)

	data.Form = form.State()
	if data.Form.EmailSent {
		h.limiter.EmailSent(r.Context(), email)
	}
	h.render(w, r, "reset-password", formStatus(data.Form), data)
}

// ConfirmResetPage is the callback of the emailed reset link. It receives
// ?token= or ?error=INVALID_TOKEN.
func (h *Handler) ConfirmResetPage(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "ResetPassword")
	data.Token = r.URL.Query().Get("token")
	data.TokenError = r.URL.Query().Get("error")
	if data.Token == "" && data.TokenError == "" {
		data.TokenError = "INVALID_TOKEN"
	}
	h.render(w, r, "reset-password-confirm", http.StatusOK, data)
}

func (h *Handler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "ResetPassword")
	data.Token = r.PostFormValue("token")
	if !h.throttle(w, r, "reset-password-confirm", data, "reset-password", "") {
		return
	}

	form := flow.NewConfirmResetForm(h.api(w, r), data.Token)

	form.Submit(r.Context(), r.PostFormValue("password"), r.PostFormValue("confirmPassword"))

	data.Form = form.State()
	h.render(w, r, "reset-password-confirm", formStatus(data.Form), data)
}

// VerifyEmail runs the verification poller for one page load and renders
// its terminal state. On success the page refreshes to the dashboard after
// the poller's redirect delay.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	data := h.page(r, "VerifyEmail")

	verifier := &verifyCapture{service: h.service, meta: auth.RequestMetaFrom(r)}
	opts := []verifyemail.Option{verifyemail.WithLogger(logger)}
	if h.clock != nil {
		opts = append(opts, verifyemail.WithClock(h.clock))
	}
	poller := verifyemail.New(verifier, &pageNav{}, data.Locale, opts...)

	poller.Mount(r.Context(), r.URL.Query().Get("token"))
	defer poller.Unmount()

	select {
	case <-poller.Done():
	case <-r.Context().Done():
		return
	}

	data.Verify = poller.State()
	if data.Verify.Status == verifyemail.StatusSuccess {
		if result := verifier.Result(); result != nil && result.Token != "" {
			h.sealer.SetSessionCookie(w, result.Token, result.Session.ExpiresAt)
		}
		data.Redirect = poller.DashboardURL()
		logger.Info("email verified from page")
	}
	h.render(w, r, "verify-email", http.StatusOK, data)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	nav := &pageNav{}
	button := flow.NewSignOutButton(h.api(w, r), nav, locale, logging.GetLoggerFromContext(r.Context()))

	button.SignOut(r.Context())

	target := nav.target
	if target == "" {
		target = i18n.Path(locale, "/dashboard")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.sessionPage(w, r, "dashboard", "Dashboard")
}

func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	h.sessionPage(w, r, "user-profile", "UserProfile")
}

func (h *Handler) sessionPage(w http.ResponseWriter, r *http.Request, page, namespace string) {
	sd, ok := auth.SessionFromContext(r.Context())
	if !ok || sd.User == nil {
		http.Redirect(w, r, i18n.Path(i18n.FromContext(r.Context()), "/sign-in"), http.StatusTemporaryRedirect)
		return
	}
	data := h.page(r, namespace)
	data.User = sd.User
	h.render(w, r, page, http.StatusOK, data)
}

// throttle applies the IP window for purpose and, when email is set, the
// address cooldown. A refused post re-renders page with 429.
func (h *Handler) throttle(w http.ResponseWriter, r *http.Request, page string, data pageData, purpose, email string) bool {
	err := h.limiter.AllowIP(r.Context(), httputil.ClientIP(r), purpose)
	if err == nil {
		err = h.limiter.AllowEmail(r.Context(), email)
	}
	if err == nil {
		return true
	}

	data.Form.Phase = flow.PhaseError
	data.Form.Error = msgTooManyRequests
	if errors.Is(err, ratelimit.ErrCooldownActive) {
		data.Form.Error = msgEmailCooldown
	}
	h.render(w, r, page, http.StatusTooManyRequests, data)
	return false
}
