package flow

import (
	"context"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/authclient"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
)

// Mode selects which half of the auth form is active.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

// SignInValues are the fields of the sign-in form.
type SignInValues struct {
	Email    string
	Password string
}

// SignUpValues are the fields of the sign-up form.
type SignUpValues struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthForm is the combined sign-in / sign-up form.
type AuthForm struct {
	form
	api    API
	nav    Navigator
	locale string
	mode   Mode
}

// NewAuthForm creates a form in mode. Navigations are localized for locale.
func NewAuthForm(api API, nav Navigator, locale string, mode Mode) *AuthForm {
	return &AuthForm{form: form{state: newState()}, api: api, nav: nav, locale: locale, mode: mode}
}

func (f *AuthForm) Mode() Mode { return f.mode }

// SubmitSignIn signs in and navigates to the dashboard. Unverified users
// stay on the form.
func (f *AuthForm) SubmitSignIn(ctx context.Context, in SignInValues) {
	errs := map[string]string{}
	validateEmail(errs, in.Email)
	validatePassword(errs, "password", in.Password)
	if !f.begin(map[string]string{"email": in.Email}, errs) {
		return
	}
	defer f.finish()

	u, err := f.api.SignInEmail(ctx, auth.SignInRequest{Email: in.Email, Password: in.Password})
	if err != nil {
		if apiErr, ok := authclient.AsAPIError(err); ok && apiErr.Code == httputil.CodeEmailNotVerified {
			f.fail(MsgVerifyFirst)
			return
		}
		f.fail(remoteMessage(err))
		return
	}
	if u == nil || !u.EmailVerified {
		f.fail(MsgVerifyFirst)
		return
	}

	f.succeed(false)
	f.nav.Navigate(localized(f.locale, "/dashboard"))
}

// SubmitSignUp creates the account and shows the "email sent" state. The
// user is not signed in.
func (f *AuthForm) SubmitSignUp(ctx context.Context, in SignUpValues) {
	errs := map[string]string{}
	if len([]rune(in.Name)) < minNameLength {
		errs["name"] = MsgNameTooShort
	}
	validateEmail(errs, in.Email)
	validatePassword(errs, "password", in.Password)
	if in.Password != in.ConfirmPassword {
		errs["confirmPassword"] = MsgPasswordsMismatch
	}
	if !f.begin(map[string]string{"name": in.Name, "email": in.Email}, errs) {
		return
	}
	defer f.finish()

	_, err := f.api.SignUpEmail(ctx, auth.SignUpRequest{
		Name:        in.Name,
		Email:       in.Email,
		Password:    in.Password,
		CallbackURL: localized(f.locale, "/dashboard"),
	})
	if err != nil {
		f.fail(remoteMessage(err))
		return
	}
	f.succeed(true)
}

// ResendVerification sends a new verification link to the email typed
// into the active form.
func (f *AuthForm) ResendVerification(ctx context.Context) {
	email := f.value("email")
	if email == "" {
		f.fail(MsgEmailRequired)
		return
	}
	if !f.begin(nil, map[string]string{}) {
		return
	}
	defer f.finish()

	err := f.api.SendVerificationEmail(ctx, auth.SendVerificationRequest{
		Email:       email,
		CallbackURL: localized(f.locale, "/dashboard"),
	})
	if err != nil {
		f.fail(MsgResendFailed)
		return
	}
	f.succeed(true)
}

// SetEmail records the email field without submitting, as typing would.
func (f *AuthForm) SetEmail(email string) {
	f.mu.Lock()
	f.state.Values["email"] = email
	f.mu.Unlock()
}
