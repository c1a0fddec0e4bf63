// Package flow runs the form flows of the auth pages: local validation,
// the remote call, and the resulting form state.
package flow

import (
	"context"
	"net/mail"
	"sync"
	"unicode/utf8"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/authclient"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// API is the remote side of the flows. authclient.Client implements it over
// HTTP; the pages use an in-process implementation.
type API interface {
	SignInEmail(ctx context.Context, req auth.SignInRequest) (*user.User, error)
	SignUpEmail(ctx context.Context, req auth.SignUpRequest) (*user.User, error)
	SendVerificationEmail(ctx context.Context, req auth.SendVerificationRequest) error
	ForgetPassword(ctx context.Context, req auth.ForgetPasswordRequest) error
	ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, token string) (*user.User, error)
	SignOut(ctx context.Context) error
}

var _ API = (*authclient.Client)(nil)

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Messages shown to the user. Remote errors carrying a message are shown
// verbatim instead.
const (
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgPasswordTooShort   = "Password must be at least 8 characters"
	MsgNameTooShort       = "Name must be at least 2 characters"
	MsgPasswordsMismatch  = "Passwords do not match"
	MsgGenericRemote      = "An error occurred"
	MsgVerifyFirst        = "Please verify your email address before signing in."
	MsgUnexpected         = "An unexpected error occurred. Please try again."
	MsgEmailRequired      = "Please enter your email address"
	MsgResendFailed       = "Failed to send verification email. Please try again."
	MsgResetTokenRequired = "The reset link is invalid or has expired."
)

const (
	minPasswordLength = 8
	minNameLength     = 2
)

// Phase is the submission lifecycle of a form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// State is the transient state of one form.
type State struct {
	Values      map[string]string
	FieldErrors map[string]string
	Phase       Phase
	Error       string
	Loading     bool
	EmailSent   bool
}

// HasFieldErrors reports whether local validation blocked the submission.
func (s State) HasFieldErrors() bool {
	return len(s.FieldErrors) > 0
}

// form holds the state shared by every flow. Loading disables submission
// the way a disabled button would.
type form struct {
	mu    sync.Mutex
	state State
}

func newState() State {
	return State{Values: map[string]string{}, FieldErrors: map[string]string{}}
}

// State returns a copy of the current state.
func (f *form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.state
	s.Values = copyMap(f.state.Values)
	s.FieldErrors = copyMap(f.state.FieldErrors)
	return s
}

// begin records the submitted values and field errors. It returns false
// when the form is busy or invalid.
func (f *form) begin(values, fieldErrors map[string]string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Loading {
		return false
	}
	for k, v := range values {
		f.state.Values[k] = v
	}
	f.state.FieldErrors = fieldErrors
	if len(fieldErrors) > 0 {
		f.state.Phase = PhaseIdle
		return false
	}
	f.state.Loading = true
	f.state.Phase = PhaseSubmitting
	f.state.Error = ""
	return true
}

func (f *form) finish() {
	f.mu.Lock()
	f.state.Loading = false
	f.mu.Unlock()
}

func (f *form) fail(msg string) {
	f.mu.Lock()
	f.state.Phase = PhaseError
	f.state.Error = msg
	f.mu.Unlock()
}

func (f *form) succeed(emailSent bool) {
	f.mu.Lock()
	f.state.Phase = PhaseSuccess
	if emailSent {
		f.state.EmailSent = true
	}
	f.mu.Unlock()
}

func (f *form) value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Values[key]
}

// remoteMessage maps a failed call to the message shown on the form.
func remoteMessage(err error) string {
	if apiErr, ok := authclient.AsAPIError(err); ok {
		if apiErr.Message == "" {
			return MsgGenericRemote
		}
		return apiErr.Message
	}
	return MsgUnexpected
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validatePassword(errs map[string]string, field, password string) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs[field] = MsgPasswordTooShort
	}
}

func validateEmail(errs map[string]string, email string) {
	if !validEmail(email) {
		errs["email"] = MsgInvalidEmail
	}
}

func localized(locale, path string) string {
	return i18n.Path(locale, path)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
