package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/ratelimit"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	sealer      *CookieSealer
	rateLimiter *ratelimit.Limiter
}

// NewHandler wires the auth endpoints. rateLimiter may be nil.
func NewHandler(service *Service, sealer *CookieSealer, rateLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		service:     service,
		sealer:      sealer,
		rateLimiter: rateLimiter,
	}
}

// Routes returns the router mounted at Options.BasePath.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sign-up/email", h.SignUpEmail)
	r.Post("/sign-in/email", h.SignInEmail)
	r.Post("/sign-out", h.SignOut)
	r.Get("/get-session", h.GetSession)
	r.Post("/send-verification-email", h.SendVerificationEmail)
	r.Get("/verify-email", h.VerifyEmail)
	r.Post("/forget-password", h.ForgetPassword)
	r.Get("/reset-password/{token}", h.ResetPasswordCallback)
	r.Post("/reset-password", h.ResetPassword)
	return r
}

// SignUpRequest represents the sign-up request body
type SignUpRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackURL,omitempty"`
}

// SignInRequest represents the sign-in request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendVerificationRequest represents the verification email request body
type SendVerificationRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callbackURL,omitempty"`
}

// ForgetPasswordRequest represents the password reset request body
type ForgetPasswordRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse wraps a user in API responses
type UserResponse struct {
	User *user.User `json:"user"`
}

// StatusResponse is returned by endpoints without a payload
type StatusResponse struct {
	Status bool `json:"status"`
}

// SignUpEmail handles user registration
// @Summary      Sign up with email and password
// @Description  Create an unverified user and send a verification email. The user is not signed in.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Sign-up details"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      422 {object} httputil.ErrorResponse "User already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/auth/sign-up/email [post]
func (h *Handler) SignUpEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "sign-up") {
		return
	}

	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid sign-up request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	result, err := h.service.SignUpEmail(r.Context(), SignUpInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		CallbackURL: req.CallbackURL,
	}, RequestMetaFrom(r))
	if err != nil {
		h.respondServiceError(w, logger, "sign-up failed", err)
		return
	}

	if result.Token != "" {
		h.sealer.SetSessionCookie(w, result.Token, result.Session.ExpiresAt)
	}

	logger.Info("user signed up successfully", "user_id", result.User.ID)
	respondJSON(w, UserResponse{User: result.User}, http.StatusOK)
}

// SignInEmail handles user sign-in
// @Summary      Sign in with email and password
// @Description  Verify credentials and set the session cookie. Unverified users are refused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Email not verified"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /api/auth/sign-in/email [post]
func (h *Handler) SignInEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "sign-in") {
		return
	}

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	result, err := h.service.SignInEmail(r.Context(), req.Email, req.Password, RequestMetaFrom(r))
	if err != nil {
		h.respondServiceError(w, logger, "sign-in failed", err)
		return
	}

	h.sealer.SetSessionCookie(w, result.Token, result.Session.ExpiresAt)

	logger.Info("user signed in successfully", "user_id", result.User.ID)
	respondJSON(w, UserResponse{User: result.User}, http.StatusOK)
}

// SignOut handles sign-out
// @Summary      Sign out
// @Description  Destroy the current session and clear the cookie. Succeeds without a session.
// @Tags         auth
// @Produce      json
// @Success      200 {object} StatusResponse
// @Router       /api/auth/sign-out [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if token, err := h.sealer.TokenFromRequest(r); err == nil {
		if err := h.service.SignOut(r.Context(), token); err != nil {
			logger.Error("sign-out failed: internal error", "error", err.Error())
			respondError(w, "failed to sign out", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
	}

	h.sealer.ClearSessionCookie(w)

	logger.Info("user signed out")
	respondJSON(w, StatusResponse{Status: true}, http.StatusOK)
}

// GetSession returns the current session
// @Summary      Get current session
// @Description  Returns the user and session behind the cookie, or null. Refreshes the cookie when the session was extended.
// @Tags         auth
// @Produce      json
// @Success      200 {object} SessionData
// @Router       /api/auth/get-session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, err := h.sealer.TokenFromRequest(r)
	if err != nil {
		if errors.Is(err, ErrInvalidCookie) {
			h.sealer.ClearSessionCookie(w)
		}
		respondJSON(w, nil, http.StatusOK)
		return
	}

	data, err := h.service.GetSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			h.sealer.ClearSessionCookie(w)
			respondJSON(w, nil, http.StatusOK)
			return
		}
		logger.Error("get session failed: internal error", "error", err.Error())
		respondError(w, "failed to get session", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if data.Refreshed {
		h.sealer.SetSessionCookie(w, token, data.Session.ExpiresAt)
	}

	respondJSON(w, data, http.StatusOK)
}

// SendVerificationEmail handles resending the verification email
// @Summary      Send verification email
// @Description  Send a new verification link. Always succeeds for unknown or already verified addresses.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SendVerificationRequest true "Email address"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Email delivery failed"
// @Router       /api/auth/send-verification-email [post]
func (h *Handler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid send verification request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if !h.allowEmail(w, r, "send-verification-email", req.Email) {
		return
	}

	if err := h.service.SendVerificationEmail(r.Context(), req.Email, req.CallbackURL); err != nil {
		h.respondServiceError(w, logger, "send verification email failed", err)
		return
	}
	h.emailSent(r, req.Email)

	respondJSON(w, StatusResponse{Status: true}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Redeem a verification token and sign the user in. With callbackURL the response is a redirect, errors are passed as ?error=CODE.
// @Tags         auth
// @Produce      json
// @Param        token       query string true  "Verification token"
// @Param        callbackURL query string false "Where to redirect afterwards"
// @Success      200 {object} UserResponse
// @Success      302
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Router       /api/auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	callbackURL := r.URL.Query().Get("callbackURL")

	if !h.service.Options().isTrustedURL(callbackURL) {
		logger.Warn("email verification failed: untrusted callback", "callback_url", callbackURL)
		respondError(w, "invalid callback URL", httputil.CodeInvalidCallbackURL, http.StatusForbidden)
		return
	}

	result, err := h.service.VerifyEmail(r.Context(), token, RequestMetaFrom(r))
	if err != nil {
		if callbackURL != "" {
			_, code, _ := DescribeError(err)
			logger.Warn("email verification failed", "error", err.Error())
			http.Redirect(w, r, withQuery(callbackURL, "error", code), http.StatusFound)
			return
		}
		h.respondServiceError(w, logger, "email verification failed", err)
		return
	}

	if result.Token != "" {
		h.sealer.SetSessionCookie(w, result.Token, result.Session.ExpiresAt)
	}

	logger.Info("email verified successfully", "user_id", result.User.ID)

	if callbackURL != "" {
		http.Redirect(w, r, callbackURL, http.StatusFound)
		return
	}
	respondJSON(w, UserResponse{User: result.User}, http.StatusOK)
}

// ForgetPassword handles password reset requests
// @Summary      Request password reset
// @Description  Email a reset link. Always succeeds for unknown addresses to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgetPasswordRequest true "Email address and redirect target"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Email delivery failed"
// @Router       /api/auth/forget-password [post]
func (h *Handler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forget password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if !h.allowEmail(w, r, "forget-password", req.Email) {
		return
	}

	if err := h.service.ForgetPassword(r.Context(), req.Email, req.RedirectTo); err != nil {
		h.respondServiceError(w, logger, "forget password failed", err)
		return
	}
	h.emailSent(r, req.Email)

	respondJSON(w, StatusResponse{Status: true}, http.StatusOK)
}

// ResetPasswordCallback is the target of the emailed reset link
// @Summary      Follow a password reset link
// @Description  Redirects to callbackURL with ?token= when the token is valid, ?error=INVALID_TOKEN otherwise.
// @Tags         auth
// @Param        token       path  string true "Reset token"
// @Param        callbackURL query string true "Page that collects the new password"
// @Success      302
// @Failure      400 {object} httputil.ErrorResponse "Missing or untrusted callback"
// @Router       /api/auth/reset-password/{token} [get]
func (h *Handler) ResetPasswordCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")
	callbackURL := r.URL.Query().Get("callbackURL")

	if callbackURL == "" || !h.service.Options().isTrustedURL(callbackURL) {
		logger.Warn("reset password callback rejected", "callback_url", callbackURL)
		respondError(w, "invalid callback URL", httputil.CodeInvalidCallbackURL, http.StatusBadRequest)
		return
	}

	if err := h.service.CheckResetToken(r.Context(), token); err != nil {
		logger.Warn("reset password link rejected", "error", err.Error())
		http.Redirect(w, r, withQuery(callbackURL, "error", httputil.CodeInvalidToken), http.StatusFound)
		return
	}

	http.Redirect(w, r, withQuery(callbackURL, "token", token), http.StatusFound)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password with a reset token. Every session of the user is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "reset-password") {
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.respondServiceError(w, logger, "password reset failed", err)
		return
	}

	logger.Info("password reset successfully")
	respondJSON(w, StatusResponse{Status: true}, http.StatusOK)
}

// allowIP applies the per-IP window for purpose. Limiter failures let the
// request through.
func (h *Handler) allowIP(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if err := h.rateLimiter.AllowIP(r.Context(), httputil.ClientIP(r), purpose); err != nil {
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

// allowEmail applies the IP window and checks the per-address cooldown. The
// cooldown itself starts in emailSent.
func (h *Handler) allowEmail(w http.ResponseWriter, r *http.Request, purpose, email string) bool {
	if !h.allowIP(w, r, purpose) {
		return false
	}
	if err := h.rateLimiter.AllowEmail(r.Context(), email); err != nil {
		respondError(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return false
	}
	return true
}

func (h *Handler) emailSent(r *http.Request, email string) {
	h.rateLimiter.EmailSent(r.Context(), email)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, logger *logging.Logger, msg string, err error) {
	status, code, message := DescribeError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg+": internal error", "error", err.Error())
	} else {
		logger.Warn(msg, "error", err.Error())
	}
	respondError(w, message, code, status)
}

var serviceErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{ErrEmailRequired, http.StatusBadRequest, httputil.CodeEmailRequired, "Email is required"},
	{ErrInvalidEmailFormat, http.StatusBadRequest, httputil.CodeInvalidEmailFormat, "Invalid email"},
	{ErrNameRequired, http.StatusBadRequest, httputil.CodeNameRequired, "Name is required"},
	{ErrPasswordRequired, http.StatusBadRequest, httputil.CodePasswordRequired, "Password is required"},
	{ErrPasswordTooShort, http.StatusBadRequest, httputil.CodePasswordTooShort, "Password too short"},
	{ErrPasswordTooLong, http.StatusBadRequest, httputil.CodePasswordTooLong, "Password too long"},
	{ErrInvalidCallbackURL, http.StatusForbidden, httputil.CodeInvalidCallbackURL, "Invalid callback URL"},
	{ErrInvalidCredentials, http.StatusUnauthorized, httputil.CodeInvalidCredentials, "Invalid email or password"},
	{ErrEmailNotVerified, http.StatusForbidden, httputil.CodeEmailNotVerified, "Email not verified"},
	{ErrUserAlreadyExists, http.StatusUnprocessableEntity, httputil.CodeUserAlreadyExists, "User already exists. Use another email."},
	{ErrTokenRequired, http.StatusBadRequest, httputil.CodeTokenRequired, "Token is required"},
	{ErrInvalidToken, http.StatusBadRequest, httputil.CodeInvalidToken, "Invalid token"},
	{ErrTokenExpired, http.StatusBadRequest, httputil.CodeTokenExpired, "Token expired"},
	{ErrEmailDelivery, http.StatusInternalServerError, httputil.CodeEmailDeliveryFailed, "Failed to send email"},
}

// DescribeError translates service errors to status, machine code and
// client message.
func DescribeError(err error) (int, string, string) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return e.status, e.code, e.message
		}
	}
	return http.StatusInternalServerError, httputil.CodeInternalError, "Internal server error"
}

func RequestMetaFrom(r *http.Request) RequestMeta {
	return RequestMeta{
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// withQuery appends key=value to a relative or absolute URL.
func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		return target + sep + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
