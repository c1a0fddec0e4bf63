package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/authclient"
	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// AuthService is the part of auth.Service the pages call.
type AuthService interface {
	SignUpEmail(ctx context.Context, in auth.SignUpInput, meta auth.RequestMeta) (*auth.SignInResult, error)
	SignInEmail(ctx context.Context, email, password string, meta auth.RequestMeta) (*auth.SignInResult, error)
	SignOut(ctx context.Context, token string) error
	SendVerificationEmail(ctx context.Context, email, callbackURL string) error
	VerifyEmail(ctx context.Context, token string, meta auth.RequestMeta) (*auth.SignInResult, error)
	ForgetPassword(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var _ AuthService = (*auth.Service)(nil)

// serviceAPI runs the flows in-process for one request and writes the
// session cookie to its response.
type serviceAPI struct {
	service AuthService
	sealer  *auth.CookieSealer
	w       http.ResponseWriter
	r       *http.Request
}

var _ flow.API = (*serviceAPI)(nil)

func (a *serviceAPI) SignInEmail(ctx context.Context, req auth.SignInRequest) (*user.User, error) {
	result, err := a.service.SignInEmail(ctx, req.Email, req.Password, auth.RequestMetaFrom(a.r))
	if err != nil {
		return nil, toAPIError(err)
	}
	a.sealer.SetSessionCookie(a.w, result.Token, result.Session.ExpiresAt)
	return result.User, nil
}

func (a *serviceAPI) SignUpEmail(ctx context.Context, req auth.SignUpRequest) (*user.User, error) {
	result, err := a.service.SignUpEmail(ctx, auth.SignUpInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		CallbackURL: req.CallbackURL,
	}, auth.RequestMetaFrom(a.r))
	if err != nil {
		return nil, toAPIError(err)
	}
	if result.Token != "" {
		a.sealer.SetSessionCookie(a.w, result.Token, result.Session.ExpiresAt)
	}
	return result.User, nil
}

func (a *serviceAPI) SendVerificationEmail(ctx context.Context, req auth.SendVerificationRequest) error {
	return toAPIError(a.service.SendVerificationEmail(ctx, req.Email, req.CallbackURL))
}

func (a *serviceAPI) ForgetPassword(ctx context.Context, req auth.ForgetPasswordRequest) error {
	return toAPIError(a.service.ForgetPassword(ctx, req.Email, req.RedirectTo))
}

func (a *serviceAPI) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return toAPIError(a.service.ResetPassword(ctx, req.Token, req.NewPassword))
}

func (a *serviceAPI) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	result, err := a.service.VerifyEmail(ctx, token, auth.RequestMetaFrom(a.r))
	if err != nil {
		return nil, toAPIError(err)
	}
	if result.Token != "" {
		a.sealer.SetSessionCookie(a.w, result.Token, result.Session.ExpiresAt)
	}
	return result.User, nil
}

func (a *serviceAPI) SignOut(ctx context.Context) error {
	token, err := a.sealer.TokenFromRequest(a.r)
	if err == nil {
		if err := a.service.SignOut(ctx, token); err != nil {
			return err
		}
	}
	a.sealer.ClearSessionCookie(a.w)
	return nil
}

// toAPIError gives service errors the shape the flows expect from the
// HTTP API. Internal failures stay plain errors.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	status, code, message := auth.DescribeError(err)
	if status >= http.StatusInternalServerError && code != httputil.CodeEmailDeliveryFailed {
		return err
	}
	return &authclient.APIError{Status: status, Code: code, Message: message}
}

// verifyCapture runs the verification off the request goroutine and keeps
// the result so the handler sets the cookie itself.
type verifyCapture struct {
	service AuthService
	meta    auth.RequestMeta

	mu     sync.Mutex
	result *auth.SignInResult
}

func (v *verifyCapture) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	result, err := v.service.VerifyEmail(ctx, token, v.meta)
	if err != nil {
		return nil, toAPIError(err)
	}
	v.mu.Lock()
	v.result = result
	v.mu.Unlock()
	return result.User, nil
}

func (v *verifyCapture) Result() *auth.SignInResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// pageNav records the navigation a flow asked for so the handler can turn
// it into a redirect.
type pageNav struct {
	target string
}

func (n *pageNav) Navigate(path string) { n.target = path }
