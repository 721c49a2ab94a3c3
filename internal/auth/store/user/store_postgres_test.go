package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
)

var userRowColumns = []string{
	"id", "tenant_id", "role", "status", "name", "last_name", "username", "email", "mobile",
	"avatar", "password_hash", "session_token", "pairing_code",
	"reset_code", "reset_expires_at", "permissions", "device_name", "date_of_birth",
	"gender", "primary_hand", "address", "city", "country", "postal_code",
	"experience_level", "stress_level", "notes", "created_at", "updated_at",
}

func seededRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userRowColumns).AddRow(
		int64(1), int64(7), "operator", "active", "Alice", "Range", "alice", "alice@example.com", "+100",
		"", "$2a$10$hash", "tok-1", "",
		"", nil, []byte(`{}`), "Chrome on Mac OS X", nil,
		"female", "right", "", "", "", "",
		0.0, 0.0, "", now, now,
	)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresFindBySessionToken(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE session_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(seededRow(now))

	user, err := store.FindBySessionToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleOperator, user.Role)
	assert.EqualValues(t, 7, user.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindBySessionTokenMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE session_token = \$1`).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindBySessionToken(context.Background(), "gone")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindBySessionTokenEmptyShortCircuits(t *testing.T) {
	store, mock := newMockStore(t)

	// logged-out principals carry an empty token; that must never hit the db
	_, err := store.FindBySessionToken(context.Background(), "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindActiveByIdentifierScopesAdmins(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users`).
		WithArgs("alice", false).
		WillReturnRows(seededRow(now))

	user, err := store.FindActiveByIdentifier(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	// same identifier in admin scope matches nothing
	mock.ExpectQuery(`SELECT (.+) FROM users`).
		WithArgs("alice", true).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err = store.FindActiveByIdentifier(context.Background(), "alice", true)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteSoftDeletesAndClearsCredentials(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET status = 'deleted', session_token = NULL, pairing_code = NULL`).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), 1))

	mock.ExpectExec(`UPDATE users SET status = 'deleted'`).
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExistsIdentifier(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT username, email, mobile FROM users`).
		WithArgs("alice", "new@example.com", "", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"username", "email", "mobile"}).
			AddRow("alice", "alice@example.com", "+100"))

	taken, err := store.ExistsIdentifier(context.Background(), "alice", "new@example.com", "", 0)
	require.NoError(t, err)
	assert.True(t, taken["username"])
	assert.False(t, taken["email"], "row matched on username only")
	assert.False(t, taken["mobile"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	user, err := models.NewUser(7, models.RoleUser, "Bob", "bob", "bob@example.com", "+200", "$2a$10$hash", now)
	require.NoError(t, err)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_live"})

	err = store.Create(context.Background(), user)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	// non-unique-violation errors pass through untouched
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(errors.New("connection reset"))

	err = store.Create(context.Background(), user)
	require.Error(t, err)
	assert.False(t, errors.Is(err, sentinel.ErrAlreadyUsed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
