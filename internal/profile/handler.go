package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/auth"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

type Handler struct {
	svc      *Service
	accounts AccountLister
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, accounts AccountLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, accounts: accounts, logger: logger}
}

// ListDirectory serves the admin listing. Failures are reported as 500 with the message.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := h.svc.Directory(r.Context(), h.accounts)
	if err != nil {
		h.logger.Warnw("directory listing failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Debugw("directory listed", "users", len(dir.Users), "profiles", len(dir.Profiles))
	writeJSON(w, http.StatusOK, dir)
}

func (h *Handler) GetOwn(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	p, err := h.svc.Get(r.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Warnw("get profile failed", "user_id", s.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateOwn upserts the caller's profile with the submitted patch.
func (h *Handler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return
	}
	var patch entity.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Debugw("invalid profile payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	p, err := h.svc.Update(r.Context(), s.UserID, patch)
	if err != nil {
		h.logger.Warnw("update profile failed", "user_id", s.UserID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}
	h.logger.Infow("profile updated", "user_id", s.UserID)
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
