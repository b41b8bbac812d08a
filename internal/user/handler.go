package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Handler exposes HTTP endpoints for account lifecycle (signup / password change).
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse response body containing new user id.
type SignupResponse struct {
	ID string `json:"id"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	id, err := h.svc.SignupUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidSignup) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Warnw("signup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		return
	}
	h.logger.Infow("account created", "user_id", id)
	writeJSON(w, http.StatusCreated, SignupResponse{ID: id})
}

// PasswordRequest changes the password of the identified account.
type PasswordRequest struct {
	Identifier string `json:"identifier"`
	Current    string `json:"current_password"`
	New        string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.ChangePassword(r.Context(), req.Identifier, req.Current, req.New); err != nil {
		h.logger.Debugw("password change failed", "err", err)
		status, msg := StatusFor(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor maps authentication errors to a status code and a client-safe message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrMustResetPassword), errors.Is(err, ErrUserNotFound):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, ErrLocked):
		return http.StatusForbidden, "account locked"
	case errors.Is(err, ErrDisabled):
		return http.StatusForbidden, "account disabled"
	default:
		return http.StatusInternalServerError, "login failed"
	}
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
