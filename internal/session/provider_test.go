package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/directory"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	userentity "github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

type fakeRemote struct {
	sessionCalls int
	refreshCalls int
	logoutToken  string
	logoutErr    error
	token        string
	userID       string
	validToken   string
	profile      *entity.Profile
}

func (f *fakeRemote) Session(ctx context.Context) (*directory.Session, error) {
	f.sessionCalls++
	if f.token != f.validToken {
		return nil, &directory.APIError{Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return &directory.Session{User: &userentity.MinimalAuthView{ID: "me", Version: 1}, Profile: f.profile}, nil
}

func (f *fakeRemote) Refresh(ctx context.Context, rt string) (*directory.Tokens, error) {
	f.refreshCalls++
	if rt != "good-refresh" {
		return nil, &directory.APIError{Status: http.StatusUnauthorized}
	}
	f.validToken = "fresh"
	return &directory.Tokens{AccessToken: "fresh", RefreshToken: "good-refresh", ExpiresIn: 900}, nil
}

func (f *fakeRemote) Logout(ctx context.Context, rt string) error {
	f.logoutToken = rt
	return f.logoutErr
}

func (f *fakeRemote) SetToken(t string)   { f.token = t }
func (f *fakeRemote) SetUserID(id string) { f.userID = id }

func newTestProvider(t *testing.T, remote *fakeRemote) (*Provider, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "cfg", "session.json"))
	return NewProvider(store, remote), store
}

func TestInitWithoutTokenIsNoSession(t *testing.T) {
	p, _ := newTestProvider(t, &fakeRemote{})
	assert.ErrorIs(t, p.Init(context.Background()), ErrNoSession)
	_, err := p.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSignInQueriesOnce(t *testing.T) {
	super := entity.Profile{ID: "me", UserType: entity.StringPtr("super_user"), Status: entity.StringPtr("verified")}
	remote := &fakeRemote{validToken: "a", profile: &super}
	p, store := newTestProvider(t, remote)

	require.NoError(t, p.SignIn(context.Background(), &directory.Tokens{AccessToken: "a", RefreshToken: "good-refresh", ExpiresIn: 900}))
	require.NoError(t, p.Init(context.Background()))
	_, err := p.Current()
	require.NoError(t, err)

	assert.Equal(t, 1, remote.sessionCalls)
	assert.Equal(t, "me", remote.userID)
	assert.True(t, p.IsSuperUser())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestInitRefreshesRejectedToken(t *testing.T) {
	remote := &fakeRemote{validToken: "not-yet"}
	p, store := newTestProvider(t, remote)
	require.NoError(t, store.Save(Token{AccessToken: "stale", RefreshToken: "good-refresh", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, 1, remote.refreshCalls)
	assert.Equal(t, 2, remote.sessionCalls)
	assert.False(t, p.IsSuperUser())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
}

func TestInitRefreshesExpiredTokenFirst(t *testing.T) {
	remote := &fakeRemote{}
	p, store := newTestProvider(t, remote)
	require.NoError(t, store.Save(Token{AccessToken: "old", RefreshToken: "good-refresh", ExpiresAt: time.Now().Add(-time.Minute)}))

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, 1, remote.refreshCalls)
	assert.Equal(t, 1, remote.sessionCalls)
	assert.Equal(t, "fresh", remote.token)
}

func TestInitRevokedRefreshClearsFile(t *testing.T) {
	remote := &fakeRemote{validToken: "never"}
	p, store := newTestProvider(t, remote)
	require.NoError(t, store.Save(Token{AccessToken: "stale", RefreshToken: "revoked"}))

	assert.ErrorIs(t, p.Init(context.Background()), ErrNoSession)
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCloseRevokesAndClears(t *testing.T) {
	remote := &fakeRemote{validToken: "a", logoutErr: errors.New("offline")}
	p, store := newTestProvider(t, remote)
	require.NoError(t, p.SignIn(context.Background(), &directory.Tokens{AccessToken: "a", RefreshToken: "good-refresh", ExpiresIn: 900}))

	err := p.Close(context.Background())
	assert.EqualError(t, err, "offline")
	assert.Equal(t, "good-refresh", remote.logoutToken)
	assert.Equal(t, "", remote.token)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCloseWithoutInitUsesStoredToken(t *testing.T) {
	remote := &fakeRemote{}
	p, store := newTestProvider(t, remote)
	require.NoError(t, store.Save(Token{AccessToken: "a", RefreshToken: "stored"}))

	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, "stored", remote.logoutToken)
	assert.NoError(t, p.Close(context.Background()))
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{"), 0o600))
	_, err := store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
