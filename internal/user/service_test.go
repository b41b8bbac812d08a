package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

type memStore struct {
	users    map[string]*entity.User
	failures map[string]int
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*entity.User{}, failures: map[string]int{}}
}

func (m *memStore) Create(ctx context.Context, u *entity.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) find(match func(*entity.User) bool) (*entity.User, error) {
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Email != nil && *u.Email == email })
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Username != nil && *u.Username == username })
}

func (m *memStore) GetMinimalAuthView(ctx context.Context, id string) (*entity.MinimalAuthView, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entity.MinimalAuthView{ID: u.ID, Version: u.Version, Email: u.Email, Username: u.Username, Status: u.Status}, nil
}

func (m *memStore) ListSummaries(ctx context.Context) ([]entity.Summary, error) {
	out := []entity.Summary{}
	for _, u := range m.users {
		out = append(out, entity.Summary{ID: u.ID, Email: u.Email, Username: u.Username, Status: u.Status})
	}
	return out, nil
}

func (m *memStore) IncrementFailedLogin(ctx context.Context, id string) (int, error) {
	m.failures[id]++
	return m.failures[id], nil
}

func (m *memStore) LockIfThreshold(ctx context.Context, id string, threshold int, lockMinutes int) (bool, error) {
	if m.failures[id] < threshold {
		return false, nil
	}
	until := time.Now().Add(time.Duration(lockMinutes) * time.Minute)
	m.users[id].Status = entity.StatusLocked
	m.users[id].LockedUntil = &until
	return true, nil
}

func (m *memStore) ResetLoginSuccess(ctx context.Context, id string) error {
	m.failures[id] = 0
	return nil
}

func (m *memStore) UnlockIfExpired(ctx context.Context, id string) (bool, error) {
	u := m.users[id]
	if u.Status == entity.StatusLocked && u.LockedUntil != nil && u.LockedUntil.Before(time.Now()) {
		u.Status = entity.StatusActive
		u.LockedUntil = nil
		return true, nil
	}
	return false, nil
}

func (m *memStore) UpdatePassword(ctx context.Context, id string, hash, algo string, bumpVersion bool) error {
	u := m.users[id]
	u.PasswordHash = &hash
	u.PasswordAlgo = &algo
	u.MustResetPassword = false
	if bumpVersion {
		u.Version++
	}
	return nil
}

func (m *memStore) BumpVersion(ctx context.Context, id string) error {
	m.users[id].Version++
	return nil
}

type seedRecorder struct {
	ids []string
	err error
}

func (s *seedRecorder) Seed(ctx context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func newTestService(t *testing.T) (*UserService, *memStore, *seedRecorder) {
	t.Helper()
	store := newMemStore()
	seeder := &seedRecorder{}
	return NewUserService(nil, store, BcryptHasher{Cost: bcrypt.MinCost}, seeder), store, seeder
}

func TestSignupSeedsProfile(t *testing.T) {
	svc, store, seeder := newTestService(t)
	ctx := context.Background()

	id, err := svc.SignupUser(ctx, "", "  Ada@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, seeder.ids)

	u := store.users[id]
	require.NotNil(t, u.Email)
	assert.Equal(t, "ada@example.com", *u.Email)
	assert.Nil(t, u.Username)
	assert.Equal(t, entity.StatusActive, u.Status)
	assert.NotEqual(t, "pw", *u.PasswordHash)
}

func TestSignupValidation(t *testing.T) {
	svc, _, seeder := newTestService(t)
	_, err := svc.SignupUser(context.Background(), " ", "", "pw")
	assert.ErrorIs(t, err, ErrInvalidSignup)
	_, err = svc.SignupUser(context.Background(), "ada", "", "")
	assert.ErrorIs(t, err, ErrInvalidSignup)
	assert.Empty(t, seeder.ids)
}

func TestSignupSeedFailure(t *testing.T) {
	svc, _, seeder := newTestService(t)
	seeder.err = errors.New("db down")
	_, err := svc.SignupUser(context.Background(), "ada", "", "pw")
	assert.ErrorContains(t, err, "seed profile: db down")
}

func TestAuthenticatePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "ada@example.com", "pw")
	require.NoError(t, err)

	view, err := svc.AuthenticatePassword(ctx, "ADA@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)

	view, err = svc.AuthenticatePassword(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)

	_, err = svc.AuthenticatePassword(ctx, "ada", "nope")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.AuthenticatePassword(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.AuthenticatePassword(ctx, "  ", "pw")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticateLocksAfterRepeatedFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	svc.MaxFailed = 2
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "", "pw")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.AuthenticatePassword(ctx, "ada", "wrong")
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
	_, err = svc.AuthenticatePassword(ctx, "ada", "pw")
	assert.ErrorIs(t, err, ErrLocked)

	past := time.Now().Add(-time.Minute)
	store.users[id].LockedUntil = &past
	_, err = svc.AuthenticatePassword(ctx, "ada", "pw")
	assert.NoError(t, err)
}

func TestAuthenticateDisabled(t *testing.T) {
	svc, store, _ := newTestService(t)
	id, err := svc.SignupUser(context.Background(), "ada", "", "pw")
	require.NoError(t, err)
	store.users[id].Status = entity.StatusDisabled
	_, err = svc.AuthenticatePassword(context.Background(), "ada", "pw")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestChangePasswordBumpsVersion(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "", "old")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "ada", "old", "new"))
	assert.Equal(t, int64(2), store.users[id].Version)

	_, err = svc.AuthenticatePassword(ctx, "ada", "old")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.AuthenticatePassword(ctx, "ada", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "ada", "new", ""), ErrBadCredentials)
}

type revokeRecorder struct {
	ids []string
	err error
}

func (r *revokeRecorder) RevokeUserSessions(ctx context.Context, userID string) error {
	r.ids = append(r.ids, userID)
	return r.err
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, store, _ := newTestService(t)
	revoker := &revokeRecorder{}
	svc.Sessions = revoker
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "", "old")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "ada", "old", "new"))
	assert.Equal(t, []string{id}, revoker.ids)
	assert.Equal(t, int64(2), store.users[id].Version)

	revoker.err = errors.New("db down")
	v, err := svc.BumpVersionAndRevoke(ctx, id)
	assert.ErrorContains(t, err, "revoke sessions: db down")
	assert.Zero(t, v)
}

func TestChangePasswordForMustReset(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "", "temp")
	require.NoError(t, err)
	store.users[id].MustResetPassword = true

	_, err = svc.AuthenticatePassword(ctx, "ada", "temp")
	assert.ErrorIs(t, err, ErrMustResetPassword)

	require.NoError(t, svc.ChangePassword(ctx, "ada", "temp", "final"))
	assert.False(t, store.users[id].MustResetPassword)
}

func TestFindIDAndMinimalView(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id, err := svc.SignupUser(ctx, "ada", "", "pw")
	require.NoError(t, err)

	got, err := svc.FindID(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.FindID(ctx, "grace")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.GetMinimalAuthView(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStatusFor(t *testing.T) {
	status, msg := StatusFor(ErrMustResetPassword)
	assert.Equal(t, 401, status)
	assert.Equal(t, "invalid credentials", msg)

	status, msg = StatusFor(ErrLocked)
	assert.Equal(t, 403, status)
	assert.Equal(t, "account locked", msg)

	status, _ = StatusFor(errors.New("boom"))
	assert.Equal(t, 500, status)
}

func TestBcryptNeedsRehash(t *testing.T) {
	low := BcryptHasher{Cost: bcrypt.MinCost}
	hash, algo, err := low.Hash("pw")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt:4", algo)
	assert.True(t, low.Verify(hash, "pw"))
	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(hash))
}
