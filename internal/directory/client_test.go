package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestListProfiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"users":[{"id":"u1","status":"active","created_at":"2024-01-01T00:00:00Z"}],"profiles":[{"id":"u1","first_name":"Ann"}]}`))
	})
	c.SetToken("tok")

	got, err := c.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "Ann", got[0].Value("first_name"))
	assert.Nil(t, got[0].LastName)
}

func TestListProfilesMissingListIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[]}`))
	})
	got, err := c.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListProfilesServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"permission denied for table profiles"}`))
	})
	_, err := c.ListProfiles(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "permission denied for table profiles", err.Error())
}

func TestNonJSONErrorUsesStatusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := c.ListProfiles(context.Background())
	require.Error(t, err)
	assert.Equal(t, "502 Bad Gateway", err.Error())
}

func TestMalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"profiles":`))
	})
	_, err := c.ListProfiles(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "decode GET /api/users")
}

func TestEmptyPayloadIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	got, err := c.ListProfiles(context.Background())
	assert.Nil(t, got)
	assert.EqualError(t, err, "decode GET /api/users: empty body")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.ListProfiles(context.Background())
	assert.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/profile", r.URL.Path)
		var patch entity.Patch
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.NotNil(t, patch.FirstName)
		assert.Nil(t, patch.LastName)
		_ = json.NewEncoder(w).Encode(entity.Profile{ID: "me", FirstName: patch.FirstName})
	})
	c.SetUserID("me")

	p, err := c.UpdateProfile(context.Background(), "me", entity.Patch{FirstName: entity.StringPtr("Ann")})
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Value("first_name"))

	_, err = c.UpdateProfile(context.Background(), "someone-else", entity.Patch{})
	assert.ErrorIs(t, err, ErrNotOwnProfile)
}

func TestLoginAndLogout(t *testing.T) {
	var loggedOut string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer","expires_in":900}`))
		case "/api/auth/logout":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			loggedOut = body["refresh_token"]
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	toks, err := c.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", toks.AccessToken)
	assert.Equal(t, int64(900), toks.ExpiresIn)

	_, err = c.Login(context.Background(), "ann@example.com", "nope")
	assert.EqualError(t, err, "invalid credentials")

	require.NoError(t, c.Logout(context.Background(), "r"))
	assert.Equal(t, "r", loggedOut)
}

func TestSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"me","version":2,"email_verified":false},"profile":null}`))
	})
	s, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me", s.User.ID)
	assert.Equal(t, int64(2), s.User.Version)
	assert.Nil(t, s.Profile)
}
