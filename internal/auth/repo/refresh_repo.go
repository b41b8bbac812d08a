package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RefreshRow is a persisted refresh session. Tokens are stored as SHA-256
// digests, never in the clear.
type RefreshRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ClientID  string    `db:"client_id"`
	Version   int64     `db:"version"`
	ExpiresAt time.Time `db:"expires_at"`
}

type RefreshRepo struct {
	db *sqlx.DB
}

func NewRefreshRepo(db *sqlx.DB) *RefreshRepo {
	return &RefreshRepo{db: db}
}

// EnsureTable creates the refresh session table if it does not exist.
func (r *RefreshRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_refresh_sessions (
  token_digest TEXT PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  client_id TEXT NOT NULL DEFAULT '',
  version BIGINT NOT NULL DEFAULT 1,
  expires_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE auth_refresh_sessions ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1;
CREATE INDEX IF NOT EXISTS idx_auth_refresh_sessions_user ON auth_refresh_sessions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RefreshRepo) Save(ctx context.Context, digest string, row RefreshRow) error {
	const q = `INSERT INTO auth_refresh_sessions (token_digest, id, user_id, client_id, version, expires_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, digest, row.ID, row.UserID, row.ClientID, row.Version, row.ExpiresAt)
	return err
}

func (r *RefreshRepo) Get(ctx context.Context, digest string) (*RefreshRow, error) {
	var row RefreshRow
	const q = `SELECT id, user_id, client_id, version, expires_at FROM auth_refresh_sessions WHERE token_digest = $1`
	if err := r.db.GetContext(ctx, &row, q, digest); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes one session and reports whether it existed.
func (r *RefreshRepo) Delete(ctx context.Context, digest string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_refresh_sessions WHERE token_digest = $1`, digest)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteByUser removes every session of one account.
func (r *RefreshRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired prunes sessions whose expiry is before now.
func (r *RefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_refresh_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
