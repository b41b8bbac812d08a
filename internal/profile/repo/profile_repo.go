package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// ProfileRepo provides data access for the profiles table using sqlx.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `id, first_name, last_name, user_type, status, avatar_url, updated_at`

// EnsureTable creates the profiles table if not exists. Rows share their id
// with users and go away with the account.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  first_name TEXT,
  last_name TEXT,
  user_type TEXT,
  status TEXT,
  avatar_url TEXT,
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_profiles_user_type ON profiles(user_type);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// List returns every profile in insertion-independent, stable id order.
func (r *ProfileRepo) List(ctx context.Context) ([]entity.Profile, error) {
	out := []entity.Profile{}
	if err := r.db.SelectContext(ctx, &out, `SELECT `+profileColumns+` FROM profiles ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one profile or sql.ErrNoRows.
func (r *ProfileRepo) Get(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// Seed inserts an empty profile row for a new account; existing rows are kept.
func (r *ProfileRepo) Seed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	return err
}

// Upsert writes the non-nil patch fields and stamps updated_at, creating the
// row when it does not exist yet.
func (r *ProfileRepo) Upsert(ctx context.Context, id string, p entity.Patch, at time.Time) (*entity.Profile, error) {
	const q = `INSERT INTO profiles (id, first_name, last_name, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
		  first_name = COALESCE(EXCLUDED.first_name, profiles.first_name),
		  last_name  = COALESCE(EXCLUDED.last_name, profiles.last_name),
		  avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
		  updated_at = EXCLUDED.updated_at
		RETURNING ` + profileColumns
	var out entity.Profile
	if err := r.db.GetContext(ctx, &out, q, id, p.FirstName, p.LastName, p.AvatarURL, at); err != nil {
		return nil, err
	}
	return &out, nil
}

// Classify sets user_type and status, which are not self-editable. It returns
// false when no profile row exists for id.
func (r *ProfileRepo) Classify(ctx context.Context, id, userType, status string, at time.Time) (bool, error) {
	const q = `UPDATE profiles SET user_type=$2, status=$3, updated_at=$4 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, userType, status, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
