package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*RefreshRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRefreshRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestSaveAndGet(t *testing.T) {
	r, mock := newMockRepo(t)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	row := RefreshRow{ID: "1", UserID: "u", ClientID: "adminctl", Version: 3, ExpiresAt: exp}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO auth_refresh_sessions`)).
		WithArgs("digest", "1", "u", "adminctl", int64(3), exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM auth_refresh_sessions WHERE token_digest = \$1`).
		WithArgs("digest").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "client_id", "version", "expires_at"}).AddRow("1", "u", "adminctl", int64(3), exp))

	require.NoError(t, r.Save(context.Background(), "digest", row))
	got, err := r.Get(context.Background(), "digest")
	require.NoError(t, err)
	assert.Equal(t, row, *got)
}

func TestDeleteReportsExistence(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM auth_refresh_sessions WHERE token_digest`).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM auth_refresh_sessions WHERE token_digest`).WithArgs("b").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Delete(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteExpired(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectExec(`DELETE FROM auth_refresh_sessions WHERE expires_at < \$1`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := r.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeleteByUser(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM auth_refresh_sessions WHERE user_id = \$1`).WithArgs("u").WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := r.DeleteByUser(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
