package ratelimit

import (
	"context"
	"errors"

	"github.com/redmonkez12/go-saas-starter/internal/logging"
)

var (
	ErrTooManyRequests = errors.New("too many requests")
	ErrCooldownActive  = errors.New("email cooldown active")
)

// AllowIP counts one request from ip for purpose and returns
// ErrTooManyRequests once the window is used up. A nil Limiter and Redis
// failures let the request through.
func (l *Limiter) AllowIP(ctx context.Context, ip, purpose string) error {
	if l == nil {
		return nil
	}
	logger := logging.GetLoggerFromContext(ctx)

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return nil
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		return ErrTooManyRequests
	}

	if err := l.RecordIPRequestWithPurpose(ctx, ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return nil
}

// AllowEmail returns ErrCooldownActive while an email to this address is
// cooling down. It does not start a cooldown; see EmailSent.
func (l *Limiter) AllowEmail(ctx context.Context, email string) error {
	if l == nil || email == "" {
		return nil
	}
	logger := logging.GetLoggerFromContext(ctx)

	onCooldown, err := l.CheckEmailCooldown(ctx, email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
		return nil
	}
	if onCooldown {
		logger.Warn("email on cooldown", "email", email)
		return ErrCooldownActive
	}
	return nil
}

// EmailSent starts the cooldown for email. Call it only once delivery
// succeeded so a failed send can be retried right away.
func (l *Limiter) EmailSent(ctx context.Context, email string) {
	if l == nil || email == "" {
		return
	}
	if err := l.SetEmailCooldown(ctx, email); err != nil {
		logging.GetLoggerFromContext(ctx).Error("failed to set email cooldown", "error", err.Error())
	}
}
