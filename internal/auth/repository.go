package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-saas-starter/internal/database"
)

// AccountRepository persists credential accounts.
type AccountRepository struct {
	db bun.IDB
}

func NewAccountRepository(db bun.IDB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateCredential stores the password hash of a new user. For the
// credential provider the account ID is the user ID.
func (r *AccountRepository) CreateCredential(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	dbAccount := &database.Account{
		UserID:       userID,
		ProviderID:   credentialProvider,
		AccountID:    userID.String(),
		PasswordHash: &passwordHash,
	}

	if _, err := r.db.NewInsert().Model(dbAccount).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetCredential(ctx context.Context, userID uuid.UUID) (*Account, error) {
	dbAccount := new(database.Account)
	err := r.db.NewSelect().
		Model(dbAccount).
		Where("user_id = ?", userID).
		Where("provider_id = ?", credentialProvider).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	acc := &Account{
		ID:         dbAccount.ID,
		UserID:     dbAccount.UserID,
		ProviderID: dbAccount.ProviderID,
		AccountID:  dbAccount.AccountID,
	}
	if dbAccount.PasswordHash != nil {
		acc.PasswordHash = *dbAccount.PasswordHash
	}
	return acc, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("user_id = ?", userID).
		Where("provider_id = ?", credentialProvider).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errNotFound
	}
	return nil
}

// SessionRepository persists sessions by token hash.
type SessionRepository struct {
	db bun.IDB
}

func NewSessionRepository(db bun.IDB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	dbSession := &database.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		TokenHash: s.TokenHash,
		ExpiresAt: s.ExpiresAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}

	if _, err := r.db.NewInsert().Model(dbSession).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("token_hash = ?", tokenHash).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return mapDBSessionToModel(dbSession), nil
}

func (r *SessionRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*database.Session)(nil)).
		Set("expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("token_hash = ?", tokenHash).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var deleted []database.Session
	_, err := r.db.NewDelete().
		Model(&deleted).
		Where("user_id = ?", userID).
		Returning("token_hash").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to delete user sessions: %w", err)
	}

	hashes := make([]string, 0, len(deleted))
	for _, s := range deleted {
		hashes = append(hashes, s.TokenHash)
	}
	return hashes, nil
}

// CleanupExpired removes sessions past their expiry.
// Should be run periodically (e.g., via cron job)
func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at < NOW()").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func mapDBSessionToModel(dbs *database.Session) *Session {
	return &Session{
		ID:        dbs.ID,
		UserID:    dbs.UserID,
		TokenHash: dbs.TokenHash,
		ExpiresAt: dbs.ExpiresAt,
		IPAddress: dbs.IPAddress,
		UserAgent: dbs.UserAgent,
		CreatedAt: dbs.CreatedAt,
		UpdatedAt: dbs.UpdatedAt,
	}
}

// VerificationRepository persists hashed verification and reset tokens.
type VerificationRepository struct {
	db bun.IDB
}

func NewVerificationRepository(db bun.IDB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(ctx context.Context, v *Verification) error {
	dbVerification := &database.Verification{
		ID:         v.ID,
		Identifier: v.Identifier,
		Purpose:    v.Purpose,
		TokenHash:  v.TokenHash,
		ExpiresAt:  v.ExpiresAt,
		CreatedAt:  v.CreatedAt,
	}

	if _, err := r.db.NewInsert().Model(dbVerification).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}
	return nil
}

func (r *VerificationRepository) Get(ctx context.Context, tokenHash, purpose string) (*Verification, error) {
	dbVerification := new(database.Verification)
	err := r.db.NewSelect().
		Model(dbVerification).
		Where("token_hash = ?", tokenHash).
		Where("purpose = ?", purpose).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}
	return mapDBVerificationToModel(dbVerification), nil
}

func (r *VerificationRepository) Consume(ctx context.Context, tokenHash, purpose string) (*Verification, error) {
	dbVerification := new(database.Verification)
	result, err := r.db.NewDelete().
		Model(dbVerification).
		Where("token_hash = ?", tokenHash).
		Where("purpose = ?", purpose).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, errNotFound
	}
	return mapDBVerificationToModel(dbVerification), nil
}

func (r *VerificationRepository) DeleteByIdentifier(ctx context.Context, identifier, purpose string) error {
	_, err := r.db.NewDelete().
		Model((*database.Verification)(nil)).
		Where("identifier = ?", identifier).
		Where("purpose = ?", purpose).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete verification tokens: %w", err)
	}
	return nil
}

func mapDBVerificationToModel(dbv *database.Verification) *Verification {
	return &Verification{
		ID:         dbv.ID,
		Identifier: dbv.Identifier,
		Purpose:    dbv.Purpose,
		TokenHash:  dbv.TokenHash,
		ExpiresAt:  dbv.ExpiresAt,
		CreatedAt:  dbv.CreatedAt,
	}
}
