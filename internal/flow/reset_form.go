package flow

import (
	"context"
	"strings"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
)

// ResetForm requests a password reset link.
type ResetForm struct {
	form
	api    API
	origin string
	locale string
}

// NewResetForm builds the form. origin is the scheme and host the reset
// link returns to, e.g. https://example.com.
func NewResetForm(api API, origin, locale string) *ResetForm {
	return &ResetForm{form: form{state: newState()}, api: api, origin: strings.TrimRight(origin, "/"), locale: locale}
}

// RedirectTo is the page that collects the new password.
func (f *ResetForm) RedirectTo() string {
	return f.origin + localized(f.locale, "/reset-password/confirm")
}

func (f *ResetForm) Submit(ctx context.Context, email string) {
	errs := map[string]string{}
	validateEmail(errs, email)
	if !f.begin(map[string]string{"email": email}, errs) {
		return
	}
	defer f.finish()

	if err := f.api.ForgetPassword(ctx, auth.ForgetPasswordRequest{Email: email, RedirectTo: f.RedirectTo()}); err != nil {
		f.fail(remoteMessage(err))
		return
	}
	f.succeed(true)
}

// ConfirmResetForm sets the new password with the token from the reset link.
type ConfirmResetForm struct {
	form
	api   API
	token string
}

func NewConfirmResetForm(api API, token string) *ConfirmResetForm {
	return &ConfirmResetForm{form: form{state: newState()}, api: api, token: token}
}

func (f *ConfirmResetForm) Submit(ctx context.Context, password, confirmPassword string) {
	errs := map[string]string{}
	validatePassword(errs, "password", password)
	if password != confirmPassword {
		errs["confirmPassword"] = MsgPasswordsMismatch
	}
	if !f.begin(nil, errs) {
		return
	}
	defer f.finish()

	if f.token == "" {
		f.fail(MsgResetTokenRequired)
		return
	}
	if err := f.api.ResetPassword(ctx, auth.ResetPasswordRequest{Token: f.token, NewPassword: password}); err != nil {
		f.fail(remoteMessage(err))
		return
	}
	f.succeed(false)
}
