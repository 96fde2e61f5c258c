package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/aromastream/internal/service"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if !h.decodeJSON(w, r, &req) {
		return
	}
	token, _, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// RefreshToken renews a sliding token
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req tokenResponse
	if !h.decodeJSON(w, r, &req) {
		return
	}
	token, err := h.svc.RefreshToken(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Profile returns the authenticated user
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile applies a partial profile update
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdate
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UpdateProfile(r.Context(), userID(r), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordChange creates a pending password change
func (h *Handler) RequestPasswordChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password *string `json:"password"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordChange(r.Context(), userID(r), req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmPasswordChange applies a pending password change
func (h *Handler) ConfirmPasswordChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfirmCode json.RawMessage `json:"confirm_code"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	code, _ := scalarString(req.ConfirmCode)
	if err := h.svc.ConfirmPasswordChange(r.Context(), userID(r), code); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
