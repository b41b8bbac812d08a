package user

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignupHandler(t *testing.T) {
	svc, store, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"username":"ada","password":"pw"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)
	assert.Len(t, store.users, 1)

	rec = httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"username":"ada"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"username or email and password required"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordHandler(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())
	_, err := svc.SignupUser(t.Context(), "ada", "", "old")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	body := `{"identifier":"ada","current_password":"wrong","new_password":"new"}`
	h.ChangePassword(rec, httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	body = `{"identifier":"ada","current_password":"old","new_password":"new"}`
	h.ChangePassword(rec, httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
