package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-saas-starter/internal/database"
)

func newMockStorage(t *testing.T) (*BunStorage, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := database.NewBunDB(sqlDB)
	t.Cleanup(func() { db.Close() })
	return NewBunStorage(db), mock
}

var verificationColumns = []string{"id", "identifier", "purpose", "token_hash", "expires_at", "created_at"}

func TestVerificationRepository_ConsumeFound(t *testing.T) {
	store, mock := newMockStorage(t)
	id, userID := uuid.New(), uuid.New()
	expires := time.Now().Add(time.Hour)

	mock.ExpectQuery(`DELETE FROM "verifications".*token_hash = 'h1'.*purpose = 'password-reset'.*RETURNING`).
		WillReturnRows(sqlmock.NewRows(verificationColumns).
			AddRow(id.String(), userID.String(), PurposePasswordReset, "h1", expires, time.Now()))

	v, err := store.Verifications().Consume(context.Background(), "h1", PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), v.Identifier)
	assert.Equal(t, "h1", v.TokenHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepository_ConsumeMissing(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(`DELETE FROM "verifications"`).
		WillReturnRows(sqlmock.NewRows(verificationColumns))

	_, err := store.Verifications().Consume(context.Background(), "nope", PurposeEmailVerification)
	assert.ErrorIs(t, err, errNotFound)
}

func TestSessionRepository_GetByTokenHashMissing(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT .* FROM "sessions" AS "s" WHERE \(token_hash = 'h1'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Sessions().GetByTokenHash(context.Background(), "h1")
	assert.ErrorIs(t, err, errNotFound)
}

func TestSessionRepository_DeleteByUserReturnsHashes(t *testing.T) {
	store, mock := newMockStorage(t)
	userID := uuid.New()

	mock.ExpectQuery(`DELETE FROM "sessions".*user_id = .*` + userID.String() + `.*RETURNING "?token_hash"?`).
		WillReturnRows(sqlmock.NewRows([]string{"token_hash"}).AddRow("h1").AddRow("h2"))

	hashes, err := store.Sessions().DeleteByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"h1", "h2"}, hashes)
}

func TestAccountRepository_UpdatePasswordMissing(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE "accounts".*SET password_hash = 'new-hash'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Accounts().UpdatePassword(context.Background(), uuid.New(), "new-hash")
	assert.ErrorIs(t, err, errNotFound)
}

func TestBunStorage_WithTxRollsBack(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "verifications"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(ctx context.Context, tx Storage) error {
		if err := tx.Verifications().DeleteByIdentifier(ctx, "u1", PurposeEmailVerification); err != nil {
			return err
		}
		return ErrEmailDelivery
	})
	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.NoError(t, mock.ExpectationsWereMet())
}
