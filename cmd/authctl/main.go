package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "authctl",
		Short: "Drive the sign-in, sign-up, reset and verification flows from a terminal",
		Long:  "Interactive client for the go-saas-starter auth API. Missing values are asked for in a form; pass them as flags for scripting.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&a.locale, "locale", "en", "Locale of the pages to navigate to (en, fr)")
	rootCmd.PersistentFlags().StringVar(&a.sessionPath, "session-file", "", "Where the session cookie is kept (default: user config dir)")

	signInCmd := &cobra.Command{
		Use:   "sign-in",
		Short: "Sign in with email and password",
		RunE:  a.runSignIn,
	}
	signInCmd.Flags().String("email", "", "Email address")
	signInCmd.Flags().String("password", "", "Password")

	signUpCmd := &cobra.Command{
		Use:   "sign-up",
		Short: "Create an account and send the verification email",
		RunE:  a.runSignUp,
	}
	signUpCmd.Flags().String("name", "", "Display name")
	signUpCmd.Flags().String("email", "", "Email address")
	signUpCmd.Flags().String("password", "", "Password")
	signUpCmd.Flags().String("confirm-password", "", "Password confirmation (defaults to --password)")

	resendCmd := &cobra.Command{
		Use:   "resend-verification",
		Short: "Send the verification email again",
		RunE:  a.runResend,
	}
	resendCmd.Flags().String("email", "", "Email address")

	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		RunE:  a.runResetRequest,
	}
	resetCmd.Flags().String("email", "", "Email address")

	resetConfirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password with the token from the reset link",
		RunE:  a.runResetConfirm,
	}
	resetConfirmCmd.Flags().String("token", "", "Reset token")
	resetConfirmCmd.Flags().String("password", "", "New password")
	resetCmd.AddCommand(resetConfirmCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify-email TOKEN",
		Short: "Redeem a verification token",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runVerifyEmail,
	}

	signOutCmd := &cobra.Command{
		Use:   "sign-out",
		Short: "End the current session",
		RunE:  a.runSignOut,
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Show the signed-in user",
		RunE:  a.runSession,
	}

	rootCmd.AddCommand(signInCmd, signUpCmd, resendCmd, resetCmd, verifyCmd, signOutCmd, sessionCmd)
	return rootCmd
}
