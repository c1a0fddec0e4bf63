package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/go-saas-starter/internal/flow"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func emailInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Value(value).
		Validate(required("email"))
}

func passwordInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(value)
}

// SignInForm asks for the credentials not given as flags.
func SignInForm(in *flow.SignInValues) error {
	return huh.NewForm(
		huh.NewGroup(
			emailInput(&in.Email),
			passwordInput("Password", &in.Password),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
}

func SignUpForm(in *flow.SignUpValues) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&in.Name).
				Validate(required("name")),
			emailInput(&in.Email),
			passwordInput("Password", &in.Password).
				Description("At least 8 characters"),
			passwordInput("Confirm password", &in.ConfirmPassword),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
}

func EmailForm(email *string) error {
	return huh.NewForm(
		huh.NewGroup(emailInput(email)),
	).WithTheme(huh.ThemeCatppuccin()).Run()
}

func NewPasswordForm(token, password, confirm *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reset token").
				Description("The token from the link in the reset email").
				Value(token).
				Validate(required("token")),
			passwordInput("New password", password),
			passwordInput("Confirm password", confirm),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	return ok, err
}
