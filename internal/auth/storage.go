package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// UserStore is implemented by user.Repository.
type UserStore interface {
	Create(ctx context.Context, name, email string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) (bool, error)
}

type AccountStore interface {
	CreateCredential(ctx context.Context, userID uuid.UUID, passwordHash string) error
	GetCredential(ctx context.Context, userID uuid.UUID) (*Account, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteByUser removes every session of a user and returns their token hashes.
	DeleteByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type VerificationStore interface {
	Create(ctx context.Context, v *Verification) error
	Get(ctx context.Context, tokenHash, purpose string) (*Verification, error)
	// Consume deletes and returns the token in one step so it can be redeemed once.
	Consume(ctx context.Context, tokenHash, purpose string) (*Verification, error)
	DeleteByIdentifier(ctx context.Context, identifier, purpose string) error
}

// Storage groups the credential tables. WithTx runs fn against a
// transactional view; returning an error rolls everything back.
type Storage interface {
	Users() UserStore
	Accounts() AccountStore
	Sessions() SessionStore
	Verifications() VerificationStore
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error
}

// BunStorage is the Postgres-backed Storage.
type BunStorage struct {
	db bun.IDB
}

func NewBunStorage(db bun.IDB) *BunStorage {
	return &BunStorage{db: db}
}

func (s *BunStorage) Users() UserStore                 { return user.NewRepository(s.db) }
func (s *BunStorage) Accounts() AccountStore           { return NewAccountRepository(s.db) }
func (s *BunStorage) Sessions() SessionStore           { return NewSessionRepository(s.db) }
func (s *BunStorage) Verifications() VerificationStore { return NewVerificationRepository(s.db) }

func (s *BunStorage) WithTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, NewBunStorage(tx))
	})
}
