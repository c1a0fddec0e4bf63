package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestMailer_SendVerificationEmail(t *testing.T) {
	sender := &recordingSender{}
	m := NewMailer(sender, "noreply@example.com")

	link := "http://localhost:3000/verify-email?token=abc&callbackURL=%2Fdashboard"
	require.NoError(t, m.SendVerificationEmail(context.Background(), "alice@example.com", "Alice <3", link))

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Verify your email address", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi Alice &lt;3,")
	assert.Contains(t, msg.HTML, `href="http://localhost:3000/verify-email?token=abc&amp;callbackURL=`)
	assert.Contains(t, msg.HTML, "24 hours")
}

func TestMailer_SendPasswordResetEmail(t *testing.T) {
	sender := &recordingSender{}
	m := NewMailer(sender, "noreply@example.com")

	require.NoError(t, m.SendPasswordResetEmail(context.Background(), "alice@example.com", "Alice", "http://localhost:3000/api/auth/reset-password/tok"))

	msg := sender.msgs[0]
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.HTML, "Reset Password")
	assert.Contains(t, msg.HTML, "1 hour")
}

func TestMailer_SenderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	m := NewMailer(&recordingSender{err: boom}, "noreply@example.com")

	err := m.SendVerificationEmail(context.Background(), "alice@example.com", "Alice", "http://x")
	assert.ErrorIs(t, err, boom)
}

func TestLazySender_BuildsOnFirstSendOnly(t *testing.T) {
	calls := 0
	inner := &recordingSender{}
	lazy := NewLazySender(func() (Sender, error) {
		calls++
		return inner, nil
	})
	assert.Zero(t, calls)

	require.NoError(t, lazy.Send(context.Background(), Message{To: "a@example.com"}))
	require.NoError(t, lazy.Send(context.Background(), Message{To: "b@example.com"}))
	assert.Equal(t, 1, calls)
	assert.Len(t, inner.msgs, 2)
}

func TestLazySender_StickyError(t *testing.T) {
	boom := errors.New("bad smtp config")
	calls := 0
	lazy := NewLazySender(func() (Sender, error) {
		calls++
		return nil, boom
	})

	assert.ErrorIs(t, lazy.Send(context.Background(), Message{}), boom)
	assert.ErrorIs(t, lazy.Send(context.Background(), Message{}), boom)
	assert.Equal(t, 1, calls)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := string(buildMessage(Message{From: "a@example.com", To: "b@example.com", Subject: "Réinitialiser", HTML: "<p>hi</p>"}, now))

	assert.True(t, strings.HasPrefix(raw, "From: a@example.com\r\nTo: b@example.com\r\n"))
	assert.Contains(t, raw, "Subject: =?utf-8?q?R=C3=A9initialiser?=\r\n")
	assert.Contains(t, raw, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestNewSMTPSender_Validates(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Host: "", Port: 587})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 465, Secure: true})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:465", s.addr())
	assert.Equal(t, 10*time.Second, s.cfg.Timeout)
}
