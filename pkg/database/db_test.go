package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'UTC'`, quoteLiteral("UTC"))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}

func TestApplySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`SET TIME ZONE 'Asia/Shanghai'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET client_encoding = 'UTF8'`).WillReturnResult(sqlmock.NewResult(0, 0))

	cfg := Config{Timeout: time.Second, TimeZone: "Asia/Shanghai", ClientEncoding: "UTF8"}
	require.NoError(t, applySession(db, cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySessionSkipsWhenUnset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, applySession(db, Config{Timeout: time.Second}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_MAX_CONNS", "12")
	cfg := ConfigFromEnv()
	assert.Contains(t, cfg.DSN, "localhost:5432")
	assert.Equal(t, 12, cfg.MaxConns)
}
