package email

import (
	"context"
	"fmt"

	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

// Message is a single HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages. SMTPSender is the production transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders the auth emails and hands them to a Sender.
type Mailer struct {
	sender Sender
	from   string
}

func NewMailer(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// SendVerificationEmail sends the email verification link.
func (m *Mailer) SendVerificationEmail(ctx context.Context, toEmail, name, link string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(verificationTmpl, templateData{Name: name, Link: link, Expiry: "24 hours"})
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := m.sender.Send(ctx, Message{From: m.from, To: toEmail, Subject: "Verify your email address", HTML: body}); err != nil {
		logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends the password reset link.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, toEmail, name, link string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(passwordResetTmpl, templateData{Name: name, Link: link, Expiry: "1 hour"})
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := m.sender.Send(ctx, Message{From: m.from, To: toEmail, Subject: "Reset your password", HTML: body}); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}
