package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", b.cost()), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than configured.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c < b.cost()
}

// Store is the persistence surface UserService needs; *repo.UserRepo satisfies it.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetMinimalAuthView(ctx context.Context, id string) (*entity.MinimalAuthView, error)
	ListSummaries(ctx context.Context) ([]entity.Summary, error)
	IncrementFailedLogin(ctx context.Context, id string) (int, error)
	LockIfThreshold(ctx context.Context, id string, threshold int, lockMinutes int) (bool, error)
	ResetLoginSuccess(ctx context.Context, id string) error
	UnlockIfExpired(ctx context.Context, id string) (bool, error)
	UpdatePassword(ctx context.Context, id string, hash, algo string, bumpVersion bool) error
	BumpVersion(ctx context.Context, id string) error
}

// SessionRevoker drops the refresh sessions of an account; *auth.TokenService satisfies it.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) error
}

// ProfileSeeder creates the empty profile row that belongs to a new account.
type ProfileSeeder interface {
	Seed(ctx context.Context, id string) error
}

// UserService orchestrates authentication and user lifecycle flows.
type UserService struct {
	repo   Store
	hasher PasswordHasher
	seeder ProfileSeeder
	// Sessions, when set, is told to drop refresh sessions on every version bump.
	Sessions SessionRevoker
	// configuration knobs
	MaxFailed   int
	LockMinutes int
}

func NewUserService(db *sqlx.DB, r Store, hasher PasswordHasher, seeder ProfileSeeder) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher, seeder: seeder, MaxFailed: 6, LockMinutes: 15}
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrLocked            = errors.New("user locked")
	ErrDisabled          = errors.New("user disabled")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrMustResetPassword = errors.New("must reset password")
	ErrInvalidSignup     = errors.New("username or email and password required")
)

// AuthenticatePassword performs password authentication by email or username (one must be non-empty).
// On success resets counters and returns the user minimal auth view.
func (s *UserService) AuthenticatePassword(ctx context.Context, identifier, password string) (*entity.MinimalAuthView, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrBadCredentials
	}

	var u *entity.User
	var err error
	if strings.Contains(identifier, "@") {
		u, err = s.repo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.repo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}

	// Expired lock auto-unlock attempt
	if u.Status == entity.StatusLocked && u.LockedUntil != nil && u.LockedUntil.Before(time.Now()) {
		if unlocked, _ := s.repo.UnlockIfExpired(ctx, u.ID); unlocked {
			u.Status = entity.StatusActive
			u.LockedUntil = nil
		}
	}

	switch u.Status {
	case entity.StatusLocked:
		return nil, ErrLocked
	case entity.StatusDisabled:
		return nil, ErrDisabled
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, ErrBadCredentials
	}

	if !s.hasher.Verify(*u.PasswordHash, password) {
		if _, incErr := s.repo.IncrementFailedLogin(ctx, u.ID); incErr == nil {
			_, _ = s.repo.LockIfThreshold(ctx, u.ID, s.MaxFailed, s.LockMinutes)
		}
		return nil, ErrBadCredentials
	}

	if err := s.repo.ResetLoginSuccess(ctx, u.ID); err != nil {
		return nil, err
	}
	if u.MustResetPassword {
		return nil, ErrMustResetPassword
	}

	view, err := s.repo.GetMinimalAuthView(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	if s.hasher.NeedsRehash(*u.PasswordHash) {
		if newHash, algo, hErr := s.hasher.Hash(password); hErr == nil {
			_ = s.repo.UpdatePassword(ctx, u.ID, newHash, algo, false)
		}
	}
	return view, nil
}

// SignupUser creates an account with password (hashing inside) and seeds its
// empty profile. Minimal required: username OR email, password.
func (s *UserService) SignupUser(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if (username == "" && email == "") || password == "" {
		return "", ErrInvalidSignup
	}
	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}
	u := &entity.User{
		ID:           utilities.NewAccountID(),
		PasswordHash: &hash,
		PasswordAlgo: &algo,
		Status:       entity.StatusActive,
		Version:      1,
	}
	if username != "" {
		u.Username = &username
	}
	if email != "" {
		u.Email = &email
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return "", err
	}
	if s.seeder != nil {
		if err := s.seeder.Seed(ctx, u.ID); err != nil {
			return "", fmt.Errorf("seed profile: %w", err)
		}
	}
	return u.ID, nil
}

// ChangePassword verifies the current password and stores a new hash, then
// bumps the version and revokes refresh sessions so earlier credentials stop working.
func (s *UserService) ChangePassword(ctx context.Context, identifier, current, next string) error {
	view, err := s.AuthenticatePassword(ctx, identifier, current)
	if err != nil && !errors.Is(err, ErrMustResetPassword) {
		return err
	}
	if next == "" {
		return ErrBadCredentials
	}
	id := ""
	if view != nil {
		id = view.ID
	} else {
		// must-reset accounts authenticate without returning a view
		u, lookupErr := s.lookup(ctx, identifier)
		if lookupErr != nil {
			return lookupErr
		}
		id = u.ID
	}
	hash, algo, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, algo, false); err != nil {
		return err
	}
	_, err = s.BumpVersionAndRevoke(ctx, id)
	return err
}

func (s *UserService) lookup(ctx context.Context, identifier string) (*entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	var u *entity.User
	var err error
	if strings.Contains(identifier, "@") {
		u, err = s.repo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.repo.GetByUsername(ctx, identifier)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// BumpVersionAndRevoke invalidates every access token and refresh session of
// the account and returns the new version.
func (s *UserService) BumpVersionAndRevoke(ctx context.Context, userID string) (int64, error) {
	if err := s.repo.BumpVersion(ctx, userID); err != nil {
		return 0, err
	}
	if s.Sessions != nil {
		if err := s.Sessions.RevokeUserSessions(ctx, userID); err != nil {
			return 0, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	v, err := s.repo.GetMinimalAuthView(ctx, userID)
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

// GetMinimalAuthView retrieves the minimal projection for a user by ID.
func (s *UserService) GetMinimalAuthView(ctx context.Context, id string) (*entity.MinimalAuthView, error) {
	v, err := s.repo.GetMinimalAuthView(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return v, err
}

// ListSummaries returns every account for the admin listing.
func (s *UserService) ListSummaries(ctx context.Context) ([]entity.Summary, error) {
	return s.repo.ListSummaries(ctx)
}

// FindID resolves an email or username to the account id.
func (s *UserService) FindID(ctx context.Context, identifier string) (string, error) {
	u, err := s.lookup(ctx, identifier)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}
