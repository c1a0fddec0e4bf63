package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/go-saas-starter/cmd/authctl/ui"
	"github.com/redmonkez12/go-saas-starter/internal/authclient"
	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/verifyemail"
)

type app struct {
	out         io.Writer
	baseURL     string
	locale      string
	sessionPath string

	client  *authclient.Client
	session sessionFile
	logger  *logging.Logger
}

func (a *app) init() error {
	if !i18n.IsSupported(a.locale) {
		return fmt.Errorf("unsupported locale %q", a.locale)
	}

	client, err := authclient.New(a.baseURL)
	if err != nil {
		return err
	}
	a.client = client

	if a.sessionPath == "" {
		p, err := defaultSessionPath()
		if err != nil {
			return err
		}
		a.sessionPath = p
	}
	a.session = sessionFile{path: a.sessionPath}
	if a.logger == nil {
		a.logger = logging.Discard()
	}

	token, err := a.session.Load()
	if err != nil {
		return err
	}
	if token != "" {
		a.client.SetSessionToken(token)
	}
	return nil
}

// terminalNav prints where the browser would go.
type terminalNav struct {
	out    io.Writer
	origin string
	done   chan struct{}
	once   sync.Once
	target string
}

func newTerminalNav(out io.Writer, origin string) *terminalNav {
	return &terminalNav{out: out, origin: origin, done: make(chan struct{})}
}

func (n *terminalNav) Navigate(path string) {
	n.once.Do(func() {
		n.target = path
		fmt.Fprintf(n.out, "→ %s%s\n", n.origin, path)
		close(n.done)
	})
}

func (a *app) saveSession() error {
	return a.session.Save(a.client.SessionToken())
}

func (a *app) runSignIn(cmd *cobra.Command, _ []string) error {
	var in flow.SignInValues
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")
	interactive := in.Email == "" || in.Password == ""

	if interactive {
		ui.PrintTitle(a.out, "Sign in")
		if err := ui.SignInForm(&in); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	nav := newTerminalNav(a.out, a.client.Origin())
	form := flow.NewAuthForm(a.client, nav, a.locale, flow.ModeSignIn)
	form.SubmitSignIn(cmd.Context(), in)

	state := form.State()
	if !ui.PrintState(a.out, state) {
		if state.Error == flow.MsgVerifyFirst && interactive {
			return a.offerResend(cmd.Context(), form)
		}
		return fmt.Errorf("sign-in failed")
	}

	if err := a.saveSession(); err != nil {
		return err
	}
	ui.PrintSuccess(a.out, "Signed in.")
	return nil
}

func (a *app) offerResend(ctx context.Context, form *flow.AuthForm) error {
	ok, err := ui.Confirm("Send the verification email again?")
	if err != nil || !ok {
		return fmt.Errorf("sign-in failed")
	}
	form.ResendVerification(ctx)
	if !ui.PrintState(a.out, form.State()) {
		return fmt.Errorf("resend failed")
	}
	ui.PrintSuccess(a.out, "Verification email sent. Check your inbox.")
	return nil
}

func (a *app) runSignUp(cmd *cobra.Command, _ []string) error {
	var in flow.SignUpValues
	in.Name, _ = cmd.Flags().GetString("name")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")
	in.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")

	if in.Name != "" && in.Email != "" && in.Password != "" {
		if in.ConfirmPassword == "" {
			in.ConfirmPassword = in.Password
		}
	} else {
		ui.PrintTitle(a.out, "Create your account")
		if err := ui.SignUpForm(&in); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	form := flow.NewAuthForm(a.client, newTerminalNav(a.out, a.client.Origin()), a.locale, flow.ModeSignUp)
	form.SubmitSignUp(cmd.Context(), in)

	if !ui.PrintState(a.out, form.State()) {
		return fmt.Errorf("sign-up failed")
	}
	ui.PrintSuccess(a.out, "Check your email")
	ui.PrintNote(a.out, "We've sent a verification link to "+in.Email+".")
	return nil
}

func (a *app) runResend(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		if err := ui.EmailForm(&email); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	form := flow.NewAuthForm(a.client, newTerminalNav(a.out, a.client.Origin()), a.locale, flow.ModeSignIn)
	form.SetEmail(email)
	form.ResendVerification(cmd.Context())

	if !ui.PrintState(a.out, form.State()) {
		return fmt.Errorf("resend failed")
	}
	ui.PrintSuccess(a.out, "Verification email sent.")
	return nil
}

func (a *app) runResetRequest(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		ui.PrintTitle(a.out, "Reset your password")
		if err := ui.EmailForm(&email); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	form := flow.NewResetForm(a.client, a.client.Origin(), a.locale)
	form.Submit(cmd.Context(), email)

	if !ui.PrintState(a.out, form.State()) {
		return fmt.Errorf("reset request failed")
	}
	ui.PrintSuccess(a.out, "Check your email")
	ui.PrintNote(a.out, "The link opens "+form.RedirectTo()+"; run `authctl reset-password confirm` with its token.")
	return nil
}

func (a *app) runResetConfirm(cmd *cobra.Command, _ []string) error {
	token, _ := cmd.Flags().GetString("token")
	password, _ := cmd.Flags().GetString("password")
	confirm := password

	if token == "" || password == "" {
		if err := ui.NewPasswordForm(&token, &password, &confirm); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	form := flow.NewConfirmResetForm(a.client, token)
	form.Submit(cmd.Context(), password, confirm)

	if !ui.PrintState(a.out, form.State()) {
		return fmt.Errorf("password reset failed")
	}
	// every session was revoked by the reset
	if err := a.session.Clear(); err != nil {
		return err
	}
	ui.PrintSuccess(a.out, "Password updated. You can now sign in.")
	return nil
}

func (a *app) runVerifyEmail(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	}

	nav := newTerminalNav(a.out, a.client.Origin())
	poller := verifyemail.New(a.client, nav, a.locale, verifyemail.WithLogger(a.logger))
	ui.PrintNote(a.out, "Verifying your email...")

	poller.Mount(cmd.Context(), token)
	defer poller.Unmount()

	select {
	case <-poller.Done():
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	state := poller.State()
	if state.Status != verifyemail.StatusSuccess {
		ui.PrintError(a.out, state.Error)
		return fmt.Errorf("verification failed")
	}

	if err := a.saveSession(); err != nil {
		return err
	}
	ui.PrintSuccess(a.out, "Email Verified!")
	ui.PrintNote(a.out, "Redirecting you to your dashboard in a few seconds...")

	select {
	case <-nav.done:
	case <-cmd.Context().Done():
	}
	return nil
}

func (a *app) runSignOut(cmd *cobra.Command, _ []string) error {
	nav := newTerminalNav(a.out, a.client.Origin())
	button := flow.NewSignOutButton(a.client, nav, a.locale, a.logger)
	button.SignOut(cmd.Context())

	if nav.target == "" {
		return fmt.Errorf("sign-out failed")
	}
	if err := a.session.Clear(); err != nil {
		return err
	}
	ui.PrintSuccess(a.out, "Signed out.")
	return nil
}

func (a *app) runSession(cmd *cobra.Command, _ []string) error {
	data, err := a.client.GetSession(cmd.Context())
	if err != nil {
		return err
	}
	if data == nil || data.User == nil {
		ui.PrintNote(a.out, "Not signed in.")
		return a.session.Clear()
	}

	ui.PrintTitle(a.out, "User Profile")
	ui.PrintUser(a.out, data.User)
	fmt.Fprintf(a.out, "  Session expires: %s\n", data.Session.ExpiresAt.Format("2006-01-02 15:04"))
	// the server may have slid the session forward
	return a.saveSession()
}
