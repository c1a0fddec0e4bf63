package ui

import (
	"fmt"
	"io"
	"sort"

	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

func PrintTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+msg))
}

func PrintNote(w io.Writer, msg string) {
	fmt.Fprintln(w, subtleStyle.Render(msg))
}

// PrintState shows the outcome of a form submission. It reports whether
// the form ended without errors.
func PrintState(w io.Writer, s flow.State) bool {
	if s.HasFieldErrors() {
		fields := make([]string, 0, len(s.FieldErrors))
		for f := range s.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s %s\n", fieldStyle.Render(f+":"), s.FieldErrors[f])
		}
		return false
	}
	if s.Error != "" {
		PrintError(w, s.Error)
		return false
	}
	return true
}

// PrintUser prints the profile fields shown on the user profile page.
func PrintUser(w io.Writer, u *user.User) {
	verified := "No"
	if u.EmailVerified {
		verified = "Yes"
	}
	fmt.Fprintf(w, "  Name:           %s\n", u.Name)
	fmt.Fprintf(w, "  Email:          %s\n", u.Email)
	fmt.Fprintf(w, "  Email Verified: %s\n", verified)
	fmt.Fprintf(w, "  Member Since:   %s\n", u.CreatedAt.Format("January 2, 2006"))
}
