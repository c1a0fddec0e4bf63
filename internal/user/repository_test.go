package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-saas-starter/internal/database"
)

var userColumns = []string{"id", "name", "email", "email_verified", "image", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := database.NewBunDB(sqlDB)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestCreate_LowercasesEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO "users" .*'alice@example\.com'.*RETURNING`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "Alice", "alice@example.com", false, nil, now, now))

	got, err := repo.Create(context.Background(), "Alice", "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.False(t, got.EmailVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	_, err := repo.Create(context.Background(), "Alice", "alice@example.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM "users" AS "u" WHERE \(email = 'bob@example\.com'\)`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "BOB@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "users" AS "u" WHERE \(id = .*` + id.String()).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "Bob", "bob@example.com", true, nil, now, now))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
	assert.True(t, got.EmailVerified)
}

func TestMarkEmailVerified_FlipsOnce(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "users".*SET email_verified = .*WHERE \(id = .*` + id.String() + `.*AND \(email_verified = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkEmailVerified(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkEmailVerified(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
