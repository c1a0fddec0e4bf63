package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// EmailService sends the transactional emails of the auth flows.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, link string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, link string) error
}

// Service handles authentication business logic
type Service struct {
	storage Storage
	emails  EmailService
	cache   SessionCache
	opts    *Options
	logger  *logging.Logger
	now     func() time.Time
}

// NewService builds the facade. cache may be nil.
func NewService(storage Storage, emails EmailService, cache SessionCache, opts *Options, logger *logging.Logger) *Service {
	if cache == nil {
		cache = noopSessionCache{}
	}
	return &Service{
		storage: storage,
		emails:  emails,
		cache:   cache,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Options returns the facade configuration.
func (s *Service) Options() *Options {
	return s.opts
}

// SignUpEmail creates an unverified user with a credential account and sends
// the verification link. The user row is rolled back if the email cannot be
// delivered. When verification is not required the user is signed in.
func (s *Service) SignUpEmail(ctx context.Context, in SignUpInput, meta RequestMeta) (*SignInResult, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.validatePassword(in.Password); err != nil {
		return nil, err
	}
	if !s.opts.isTrustedURL(in.CallbackURL) {
		return nil, ErrInvalidCallbackURL
	}

	passwordHash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var result SignInResult
	err = s.storage.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		newUser, err := tx.Users().Create(ctx, name, email)
		if err != nil {
			if errors.Is(err, user.ErrDuplicateEmail) {
				return ErrUserAlreadyExists
			}
			return err
		}
		result.User = newUser

		if err := tx.Accounts().CreateCredential(ctx, newUser.ID, passwordHash); err != nil {
			return err
		}

		if !s.opts.RequireEmailVerification {
			session, token, err := s.createSession(ctx, tx, newUser.ID, meta)
			if err != nil {
				return err
			}
			result.Session, result.Token = session, token
			return nil
		}

		return s.sendVerification(ctx, tx, newUser, in.CallbackURL)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", result.User.ID)
	return &result, nil
}

// SignInEmail checks credentials and issues a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) SignInEmail(ctx context.Context, email, password string, meta RequestMeta) (*SignInResult, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	existingUser, err := s.storage.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	account, err := s.storage.Accounts().GetCredential(ctx, existingUser.ID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !verifyPassword(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if s.opts.RequireEmailVerification && !existingUser.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	session, token, err := s.createSession(ctx, s.storage, existingUser.ID, meta)
	if err != nil {
		return nil, err
	}

	return &SignInResult{User: existingUser, Session: session, Token: token}, nil
}

// SignOut destroys the session behind token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	tokenHash := hashToken(token)
	if err := s.storage.Sessions().DeleteByTokenHash(ctx, tokenHash); err != nil {
		return err
	}
	s.evict(ctx, tokenHash)
	return nil
}

// GetSession resolves a session token. Expired sessions are deleted on
// sight. A session past its update age gets a new expiry.
func (s *Service) GetSession(ctx context.Context, token string) (*SessionData, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	tokenHash := hashToken(token)
	now := s.now()

	if cached, err := s.cache.Get(ctx, tokenHash); err == nil {
		if now.Before(cached.Session.ExpiresAt) && !s.dueForRefresh(cached.Session, now) {
			return cached, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("session cache read failed", "error", err)
	}

	session, err := s.storage.Sessions().GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, errNotFound) {
			s.evict(ctx, tokenHash)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if !now.Before(session.ExpiresAt) {
		if err := s.storage.Sessions().DeleteByTokenHash(ctx, tokenHash); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		s.evict(ctx, tokenHash)
		return nil, ErrSessionExpired
	}

	data := &SessionData{Session: session}
	if s.dueForRefresh(session, now) {
		expiresAt := now.Add(s.opts.SessionExpiresIn)
		if err := s.storage.Sessions().UpdateExpiry(ctx, session.ID, expiresAt); err != nil {
			return nil, err
		}
		session.ExpiresAt = expiresAt
		session.UpdatedAt = now
		data.Refreshed = true
	}

	u, err := s.storage.Users().GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	data.User = u

	ttl := min(s.opts.SessionCacheTTL, session.ExpiresAt.Sub(now))
	if err := s.cache.Set(ctx, tokenHash, data, ttl); err != nil {
		s.logger.Warn("session cache write failed", "error", err)
	}

	return data, nil
}

// SendVerificationEmail issues a fresh verification link. Unknown and
// already verified addresses succeed silently.
func (s *Service) SendVerificationEmail(ctx context.Context, email, callbackURL string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if !s.opts.isTrustedURL(callbackURL) {
		return ErrInvalidCallbackURL
	}

	existingUser, err := s.storage.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if existingUser.EmailVerified {
		return nil
	}

	return s.sendVerification(ctx, s.storage, existingUser, callbackURL)
}

// VerifyEmail redeems a verification token, marks the email verified and,
// with AutoSignInAfterVerification, opens a session.
func (s *Service) VerifyEmail(ctx context.Context, token string, meta RequestMeta) (*SignInResult, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	var result SignInResult
	err := s.storage.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		userID, err := s.consumeToken(ctx, tx, token, PurposeEmailVerification)
		if err != nil {
			return err
		}

		if _, err := tx.Users().MarkEmailVerified(ctx, userID); err != nil {
			return err
		}
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		result.User = u

		if !s.opts.AutoSignInAfterVerification {
			return nil
		}
		session, sessionToken, err := s.createSession(ctx, tx, userID, meta)
		if err != nil {
			return err
		}
		result.Session, result.Token = session, sessionToken
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("email verified", "user_id", result.User.ID)
	return &result, nil
}

// ForgetPassword emails a reset link pointing at the reset-password
// endpoint, which forwards to redirectTo with the token attached.
// Unknown addresses succeed silently.
func (s *Service) ForgetPassword(ctx context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if !s.opts.isTrustedURL(redirectTo) {
		return ErrInvalidCallbackURL
	}

	existingUser, err := s.storage.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.issueToken(ctx, s.storage, existingUser.ID, PurposePasswordReset, s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s%s/reset-password/%s?callbackURL=%s",
		s.opts.BaseURL, s.opts.BasePath, url.PathEscape(token), url.QueryEscape(redirectTo))
	if err := s.emails.SendPasswordResetEmail(ctx, existingUser.Email, existingUser.Name, link); err != nil {
		return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}
	return nil
}

// CheckResetToken reports whether a reset token is still redeemable without
// consuming it.
func (s *Service) CheckResetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenRequired
	}
	v, err := s.storage.Verifications().Get(ctx, hashToken(token), PurposePasswordReset)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !s.now().Before(v.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// ResetPassword redeems a reset token, replaces the password and signs the
// user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrTokenRequired
	}
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var revoked []string
	err = s.storage.WithTx(ctx, func(ctx context.Context, tx Storage) error {
		userID, err := s.consumeToken(ctx, tx, token, PurposePasswordReset)
		if err != nil {
			return err
		}

		err = tx.Accounts().UpdatePassword(ctx, userID, passwordHash)
		if errors.Is(err, errNotFound) {
			err = tx.Accounts().CreateCredential(ctx, userID, passwordHash)
		}
		if err != nil {
			return err
		}

		revoked, err = tx.Sessions().DeleteByUser(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}

	s.evict(ctx, revoked...)
	return nil
}

// RevokeUserSessions signs a user out of every device.
func (s *Service) RevokeUserSessions(ctx context.Context, userID uuid.UUID) error {
	revoked, err := s.storage.Sessions().DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.evict(ctx, revoked...)
	return nil
}

func (s *Service) createSession(ctx context.Context, store Storage, userID uuid.UUID, meta RequestMeta) (*Session, string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.opts.SessionExpiresIn),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Sessions().Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// dueForRefresh implements the sliding window: a session is extended once
// updateAge has passed since it was last extended.
func (s *Service) dueForRefresh(session *Session, now time.Time) bool {
	refreshAt := session.ExpiresAt.Add(-s.opts.SessionExpiresIn).Add(s.opts.SessionUpdateAge)
	return !now.Before(refreshAt)
}

func (s *Service) sendVerification(ctx context.Context, store Storage, u *user.User, callbackURL string) error {
	token, err := s.issueToken(ctx, store, u.ID, PurposeEmailVerification, s.opts.VerificationTokenTTL)
	if err != nil {
		return err
	}

	link := s.opts.BaseURL + "/verify-email?token=" + url.QueryEscape(token)
	if callbackURL != "" {
		link += "&callbackURL=" + url.QueryEscape(callbackURL)
	}
	if err := s.emails.SendVerificationEmail(ctx, u.Email, u.Name, link); err != nil {
		return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}
	return nil
}

// issueToken replaces any outstanding token of the same purpose.
func (s *Service) issueToken(ctx context.Context, store Storage, userID uuid.UUID, purpose string, ttl time.Duration) (string, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	identifier := userID.String()
	if err := store.Verifications().DeleteByIdentifier(ctx, identifier, purpose); err != nil {
		return "", err
	}

	now := s.now()
	err = store.Verifications().Create(ctx, &Verification{
		ID:         uuid.New(),
		Identifier: identifier,
		Purpose:    purpose,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) consumeToken(ctx context.Context, store Storage, token, purpose string) (uuid.UUID, error) {
	v, err := store.Verifications().Consume(ctx, hashToken(token), purpose)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return uuid.Nil, ErrInvalidToken
		}
		return uuid.Nil, err
	}
	if !s.now().Before(v.ExpiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	userID, err := uuid.Parse(v.Identifier)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (s *Service) evict(ctx context.Context, tokenHashes ...string) {
	if err := s.cache.Delete(ctx, tokenHashes...); err != nil {
		s.logger.Warn("session cache eviction failed", "error", err)
	}
}

func (s *Service) validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	n := utf8.RuneCountInString(password)
	if n < s.opts.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if n > s.opts.MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	return nil
}
